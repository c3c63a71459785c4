package chain

// Era identifies a Hard-Fork Combinator era.
type Era int

const (
	EraByron Era = iota
	EraShelley
	EraAllegra
	EraMary
	EraAlonzo
	EraBabbage
	EraConway
)

var eraNames = [...]string{"Byron", "Shelley", "Allegra", "Mary", "Alonzo", "Babbage", "Conway"}

// String returns the era name, or "Unknown" for an out-of-range value.
func (e Era) String() string {
	if e < 0 || int(e) >= len(eraNames) {
		return "Unknown"
	}
	return eraNames[e]
}

// TxBody is an opaque, still-CBOR-encoded transaction body together with
// its decoded generic CBOR form. The block parser stops at this level;
// ledger-rule decoding of individual fields is out of scope (spec.md §1
// Non-goals).
type TxBody struct {
	Raw     []byte
	Decoded any // cborutil.Value, kept as `any` to avoid an import cycle
}

// AuxiliaryData maps a 16-bit metadata label to its decoded CBOR value.
// The value is always a cborutil.Value in practice; it is typed `any`
// here to avoid chain importing cborutil (which itself has no reason to
// know about chain).
type AuxiliaryData map[uint16]any

// Block is a decoded HFC envelope. TxIndexAux keys into TxBodies lie in
// [0, len(TxBodies)) by construction (see internal/blockparser).
type Block struct {
	Era        Era
	TxBodies   []TxBody
	TxIndexAux map[int]AuxiliaryData
	RawCBOR    []byte
	// Warnings accumulates non-fatal parse issues; the block parser never
	// fails outright on a partially recognized structure.
	Warnings []string
}

// TxOutput is the subset of a transaction output the core needs: the
// optional inline datum bytes.
type TxOutput struct {
	Address         []byte
	InlineDatumBytes []byte // nil if the output carries no inline datum
}

// Metadata labels of interest, per spec.md §3 and §6.
const (
	LabelCIP25    = 721
	LabelCIP20Msg = 674
	// BeaconLabelPrimary and BeaconLabelHistorical are the two scroll
	// registry beacon labels observed across source variants; the spec
	// names both and leaves the active one a deployment decision
	// (spec.md §9 Open Questions).
	BeaconLabelPrimary    = 888
	BeaconLabelHistorical = 777
)
