package cborutil

import (
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
)

// ToGo converts a tagged Value back into a plain Go value suitable for
// gouroboros/cbor.Encode — the inverse of fromAny, minus the original
// distinction between uint/int Go types (both become uint64/int64).
func ToGo(v Value) (any, error) {
	switch v.Kind {
	case KindUint:
		return v.Uint, nil
	case KindNint:
		return v.Nint, nil
	case KindBytes:
		return v.Bytes, nil
	case KindText:
		return v.Text, nil
	case KindBool:
		return v.Bool, nil
	case KindNull:
		return nil, nil
	case KindArray:
		arr := make([]any, 0, len(v.Array))
		for _, e := range v.Array {
			gv, err := ToGo(e)
			if err != nil {
				return nil, err
			}
			arr = append(arr, gv)
		}
		return arr, nil
	case KindMap:
		m := make(map[any]any, len(v.Map))
		for _, e := range v.Map {
			k, err := ToGo(e.Key)
			if err != nil {
				return nil, err
			}
			val, err := ToGo(e.Value)
			if err != nil {
				return nil, err
			}
			m[k] = val
		}
		return m, nil
	case KindTag:
		inner, err := ToGo(v.Tag.Content)
		if err != nil {
			return nil, err
		}
		return cbor.Tag{Number: v.Tag.Number, Content: inner}, nil
	default:
		return nil, fmt.Errorf("cborutil: cannot convert kind %d to a Go value", v.Kind)
	}
}

// Reencode canonically re-encodes v to CBOR bytes. Used when an original
// byte slice isn't available (e.g. a structure decoded in place rather
// than sliced from its parent buffer) but deterministic bytes are still
// needed downstream (hashing, re-emission).
func Reencode(v Value) ([]byte, error) {
	goVal, err := ToGo(v)
	if err != nil {
		return nil, err
	}
	return cbor.Encode(goVal)
}
