package chain

// ScrollDescriptor is the tagged variant describing where to find a
// scroll's bytes. Exactly one of InlineDatum or Cip25Pages is non-nil.
type ScrollDescriptor struct {
	InlineDatum *InlineDatumScroll
	Cip25Pages  *Cip25PagesScroll
}

// InlineDatumScroll locates a scroll in the inline datum of a single
// transaction output. BlockPoint must already be resolved by the caller
// (e.g. from a catalog entry, or via the indexer fallback's tx_hash ->
// Point query, component J) — the core does not scan the chain to find
// an unlocated transaction.
type InlineDatumScroll struct {
	BlockPoint     Point
	TxID           []byte // 32 bytes; nil means "the block's only tx"
	TxIx           uint32
	ExpectedSHA256 []byte // nil if not asserted
	ContentType    string
}

// Cip25PagesScroll locates a scroll scattered across CIP-25 page assets
// under a policy, starting the chain scan at StartPoint.
type Cip25PagesScroll struct {
	PolicyID           string
	ManifestAssetName  string // "" to classify by field-presence only
	StartPoint         Point
	MaxScanBlocks       int
	ExpectedSHA256      []byte // nil if not asserted
}

// ScrollResult is the output of a successful reconstruction.
type ScrollResult struct {
	Bytes       []byte
	ContentType string
	CodecUsed   string // "none" or "gzip"
	SHA256      []byte
}

// RegistryEntry describes a published scroll by name.
type RegistryEntry struct {
	Name        string
	Pointer     RegistryPointer
	ContentType string
	SHA256      []byte
}

// RegistryPointer is the tagged variant of ways a registry entry can
// locate its scroll's carrier.
type RegistryPointer struct {
	InlineUTxO   *TxRef
	Cip25Manifest *PolicyAsset
	URL          string // "" unless this is a url(...) pointer
}

// TxRef addresses a single transaction output.
type TxRef struct {
	TxID []byte
	Ix   uint32
}

// PolicyAsset addresses a CIP-25 manifest asset under a policy.
type PolicyAsset struct {
	PolicyID         string
	ManifestAssetName string
}
