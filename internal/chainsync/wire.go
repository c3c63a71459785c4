package chainsync

import (
	"github.com/beacnpool/ledger-scrolls/internal/cborutil"
	"github.com/beacnpool/ledger-scrolls/internal/chain"
)

// encodePoint renders a chain.Point on the wire: an empty list for
// Origin, else [slot, hash].
func encodePoint(p chain.Point) any {
	if p.IsOrigin() {
		return []any{}
	}
	return []any{p.Slot, p.Hash}
}

// decodePoint is the inverse of encodePoint.
func decodePoint(v cborutil.Value) (chain.Point, error) {
	v = v.Unwrap()
	if v.Kind != cborutil.KindArray {
		return chain.Point{}, &chain.MalformedError{Where: "point: not an array"}
	}
	if len(v.Array) == 0 {
		return chain.Origin, nil
	}
	if len(v.Array) < 2 {
		return chain.Point{}, &chain.MalformedError{Where: "point: expected [slot, hash]"}
	}
	slot, ok := v.Array[0].Int()
	if !ok {
		return chain.Point{}, &chain.MalformedError{Where: "point: slot not an integer"}
	}
	hashBytes, ok := v.Array[1].AsBytes()
	if !ok {
		return chain.Point{}, &chain.MalformedError{Where: "point: hash not bytes"}
	}
	return chain.NewPoint(uint64(slot), hashBytes)
}

// decodeTip decodes a [point, blockNo] tip structure.
func decodeTip(v cborutil.Value) (Tip, error) {
	v = v.Unwrap()
	if v.Kind != cborutil.KindArray || len(v.Array) < 2 {
		return Tip{}, &chain.MalformedError{Where: "tip: expected [point, blockNo]"}
	}
	pt, err := decodePoint(v.Array[0])
	if err != nil {
		return Tip{}, err
	}
	blockNo, ok := v.Array[1].Int()
	if !ok {
		return Tip{}, &chain.MalformedError{Where: "tip: blockNo not an integer"}
	}
	return Tip{Point: pt, BlockNo: uint64(blockNo)}, nil
}

// extractHeaderBytes unwraps a roll-forward header field, which arrives
// as either [era, header_bytes] or a tagged header_bytes (spec.md §4.D).
func extractHeaderBytes(v cborutil.Value) ([]byte, error) {
	unwrapped := v.Unwrap()
	if unwrapped.Kind == cborutil.KindBytes {
		return unwrapped.Bytes, nil
	}
	if unwrapped.Kind == cborutil.KindArray && len(unwrapped.Array) == 2 {
		if b, ok := unwrapped.Array[1].AsBytes(); ok {
			return b, nil
		}
	}
	return nil, &chain.MalformedError{Where: "chainsync: unrecognized header encoding"}
}

// pointFromHeader derives a chain.Point from raw header bytes: the point
// hash is Blake2b-256(header_bytes); the slot is header_body[1] inside
// the decoded [[header_body, ...], ...] structure (spec.md §4.D).
func pointFromHeader(headerBytes []byte) (chain.Point, error) {
	v, err := cborutil.Decode(headerBytes)
	if err != nil {
		return chain.Point{}, &chain.MalformedError{Where: "chainsync: header not valid CBOR"}
	}
	v = v.Unwrap()
	if v.Kind != cborutil.KindArray || len(v.Array) == 0 {
		return chain.Point{}, &chain.MalformedError{Where: "chainsync: header is not [[header_body,...],...]"}
	}
	headerBody := v.Array[0].Unwrap()
	if headerBody.Kind != cborutil.KindArray || len(headerBody.Array) < 2 {
		return chain.Point{}, &chain.MalformedError{Where: "chainsync: header_body too short"}
	}
	slot, ok := headerBody.Array[1].Int()
	if !ok {
		return chain.Point{}, &chain.MalformedError{Where: "chainsync: header_body[1] is not the slot"}
	}
	hash := cborutil.Blake2b256(headerBytes)
	return chain.NewPoint(uint64(slot), hash)
}
