// Package blockparser unwraps a raw block body's Hard-Fork Combinator
// CBOR envelope into a chain.Block: era, transaction bodies, and the
// tx_index -> auxiliary-data mapping, per spec.md §4.F.
//
// Failures are isolated: the parser never raises on a partially
// recognized structure, it returns whatever it extracted plus a warning,
// and RawCBOR is always retained (spec.md §4.F, §7).
package blockparser

import (
	"fmt"

	"github.com/beacnpool/ledger-scrolls/internal/cborutil"
	"github.com/beacnpool/ledger-scrolls/internal/chain"
)

// auxIndexCandidates is the ordered table of array indices the aux-data
// mapping might live at: Alonzo-onward blocks use 3, pre-Alonzo use 2
// (spec.md §4.F, §9 — "try 3 first, then 2", kept as a table so a future
// era can extend it without an inline branch).
var auxIndexCandidates = []int{3, 2}

// Parse decodes rawCBOR into a chain.Block.
func Parse(rawCBOR []byte) *chain.Block {
	block := &chain.Block{RawCBOR: rawCBOR, TxIndexAux: map[int]chain.AuxiliaryData{}}

	v, err := cborutil.Decode(rawCBOR)
	if err != nil {
		block.Warnings = append(block.Warnings, fmt.Sprintf("blockparser: top-level CBOR decode failed: %v", err))
		return block
	}
	v = v.Unwrap()

	inner, era, ok := unwrapEra(v)
	if ok {
		block.Era = era
	} else {
		inner = v
		block.Warnings = append(block.Warnings, "blockparser: could not identify era wrapper, treating value as unwrapped block body")
	}
	inner = inner.Unwrap()

	if inner.Kind != cborutil.KindArray || len(inner.Array) < 2 {
		block.Warnings = append(block.Warnings, "blockparser: block body is not a sequence with at least [header, tx_bodies]")
		return block
	}

	txBodiesVal := inner.Array[1].Unwrap()
	if txBodiesVal.Kind != cborutil.KindArray {
		block.Warnings = append(block.Warnings, "blockparser: tx_bodies element is not an array")
		return block
	}
	for _, tb := range txBodiesVal.Array {
		raw, err := cborutil.Reencode(tb)
		if err != nil {
			block.Warnings = append(block.Warnings, fmt.Sprintf("blockparser: failed to re-encode a tx body: %v", err))
			continue
		}
		block.TxBodies = append(block.TxBodies, chain.TxBody{Raw: raw, Decoded: tb})
	}

	auxVal, auxIdx, found := findAuxData(inner)
	if !found {
		return block
	}
	aux, warnings := decodeAuxData(auxVal, len(block.TxBodies))
	block.Warnings = append(block.Warnings, warnings...)
	for idx, data := range aux {
		block.TxIndexAux[idx] = data
	}
	_ = auxIdx
	return block
}

// unwrapEra recognizes [era_int, inner] where era_int is in 0..6.
func unwrapEra(v cborutil.Value) (inner cborutil.Value, era chain.Era, ok bool) {
	if v.Kind != cborutil.KindArray || len(v.Array) != 2 {
		return cborutil.Value{}, 0, false
	}
	eraInt, isInt := v.Array[0].Int()
	if !isInt || eraInt < 0 || eraInt > 6 {
		return cborutil.Value{}, 0, false
	}
	return v.Array[1], chain.Era(eraInt), true
}

// findAuxData tries auxIndexCandidates in order against the block-body
// sequence.
func findAuxData(inner cborutil.Value) (cborutil.Value, int, bool) {
	for _, idx := range auxIndexCandidates {
		if idx < len(inner.Array) {
			candidate := inner.Array[idx].Unwrap()
			if candidate.Kind == cborutil.KindMap || candidate.Kind == cborutil.KindBytes || candidate.Kind == cborutil.KindArray {
				return candidate, idx, true
			}
		}
	}
	return cborutil.Value{}, -1, false
}

// decodeAuxData normalizes the raw aux-data value into tx_index ->
// AuxiliaryData, per spec.md §4.F step 4: it may itself be bytes
// (re-decode), a list whose first element is the metadata mapping, or a
// plain mapping. Metadata keys are coerced to integers; non-integer keys
// are dropped.
func decodeAuxData(v cborutil.Value, numTx int) (map[int]chain.AuxiliaryData, []string) {
	var warnings []string
	if v.Kind == cborutil.KindBytes {
		redecoded, err := cborutil.Decode(v.Bytes)
		if err != nil {
			return nil, []string{fmt.Sprintf("blockparser: aux data bytes did not decode: %v", err)}
		}
		v = redecoded.Unwrap()
	}

	result := map[int]chain.AuxiliaryData{}
	if v.Kind != cborutil.KindMap {
		warnings = append(warnings, "blockparser: aux data mapping is not a CBOR map after normalization")
		return result, warnings
	}
	for _, entry := range v.Map {
		idx, ok := entry.Key.Int()
		if !ok {
			warnings = append(warnings, "blockparser: dropped a non-integer tx_index key in aux data")
			continue
		}
		if idx < 0 || int(idx) >= numTx {
			warnings = append(warnings, fmt.Sprintf("blockparser: dropped aux data for out-of-range tx_index %d", idx))
			continue
		}
		metaVal := entry.Value.Unwrap()
		// Per-tx auxiliary data may itself be a list whose first element
		// is the metadata mapping, or a plain mapping.
		if metaVal.Kind == cborutil.KindArray && len(metaVal.Array) > 0 {
			metaVal = metaVal.Array[0].Unwrap()
		}
		aux := chain.AuxiliaryData{}
		if metaVal.Kind == cborutil.KindMap {
			for _, me := range metaVal.Map {
				label, ok := me.Key.Int()
				if !ok {
					continue // non-integer metadata label dropped
				}
				// Stored as a cborutil.Value (through the `any` field) so
				// downstream consumers like internal/cip25 can pattern
				// match on Kind instead of re-decoding.
				aux[uint16(label)] = me.Value
			}
		}
		result[int(idx)] = aux
	}
	return result, warnings
}
