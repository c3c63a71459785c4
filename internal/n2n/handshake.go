package n2n

import (
	"context"
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"

	"github.com/beacnpool/ledger-scrolls/internal/cborutil"
	"github.com/beacnpool/ledger-scrolls/internal/chain"
	"github.com/beacnpool/ledger-scrolls/internal/mux"
)

// handshake proposes HandshakeVersion with vt and awaits the peer's
// accept/refuse, per spec.md §4.C and §6.
func (c *Conn) handshake(ctx context.Context, vt VersionTable) error {
	propose := []any{
		uint64(0), // MsgProposeVersions tag
		map[uint64]any{
			uint64(HandshakeVersion): []any{
				vt.NetworkMagic,
				vt.InitiatorOnly,
				uint64(vt.PeerSharing),
				vt.Query,
			},
		},
	}
	payload, err := cbor.Encode(propose)
	if err != nil {
		return fmt.Errorf("n2n: encode MsgProposeVersions: %w", err)
	}
	if len(payload) > mux.MaxPayloadSize { //nolint:staticcheck // guard kept explicit per spec.md §4.A
		return fmt.Errorf("n2n: handshake payload exceeds a single frame, must never be split")
	}
	if err := c.send(ProtocolHandshake, payload); err != nil {
		return err
	}

	raw, err := c.recv(ctx, ProtocolHandshake, HandshakeSDUTimeout)
	if err != nil {
		return err
	}
	v, err := cborutil.Decode(raw)
	if err != nil {
		return &chain.HandshakeRefusedError{Reason: chain.ReasonHandshakeDecodeError}
	}
	if v.Kind != cborutil.KindArray || len(v.Array) < 2 {
		return &chain.HandshakeRefusedError{Reason: chain.ReasonHandshakeDecodeError}
	}
	tag, ok := v.Array[0].Int()
	if !ok {
		return &chain.HandshakeRefusedError{Reason: chain.ReasonHandshakeDecodeError}
	}
	switch tag {
	case 1: // MsgAcceptVersion = [1, version, versionData]
		version, ok := v.Array[1].Int()
		if !ok {
			return &chain.HandshakeRefusedError{Reason: chain.ReasonHandshakeDecodeError}
		}
		c.negotiatedVersion = uint16(version)
		return nil
	case 2: // MsgRefuse = [2, refuseReason]
		return &chain.HandshakeRefusedError{Reason: decodeRefuseReason(v.Array[1])}
	default:
		return &chain.HandshakeRefusedError{Reason: chain.ReasonHandshakeDecodeError}
	}
}

func decodeRefuseReason(v cborutil.Value) chain.HandshakeRefusedReason {
	v = v.Unwrap()
	if v.Kind != cborutil.KindArray || len(v.Array) == 0 {
		return chain.ReasonRefused
	}
	tag, ok := v.Array[0].Int()
	if !ok {
		return chain.ReasonRefused
	}
	switch tag {
	case 0:
		return chain.ReasonVersionMismatch
	case 1:
		return chain.ReasonHandshakeDecodeError
	default:
		return chain.ReasonRefused
	}
}
