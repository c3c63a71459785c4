package n2n

// Mini-protocol identifiers for Ouroboros Node-to-Node, per spec.md §6.
const (
	ProtocolHandshake     uint16 = 0
	ProtocolChainSync     uint16 = 2
	ProtocolBlockFetch    uint16 = 3
	ProtocolTxSubmission2 uint16 = 4
	ProtocolKeepAlive     uint16 = 8
	ProtocolPeerSharing   uint16 = 10
)

// inboundQueueDepth bounds each per-protocol inbound channel. Spec.md §5:
// "overflow (producer outruns consumer) indicates a protocol violation by
// the peer and aborts the connection."
const inboundQueueDepth = 16
