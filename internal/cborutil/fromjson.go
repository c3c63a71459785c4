package cborutil

import (
	"encoding/json"
	"fmt"
)

// FromJSON converts a json.Unmarshal-produced value (map[string]any,
// []any, string, json.Number/float64, bool, nil) into the tagged Value
// variant, so the CIP-25 extractor (internal/cip25) can run unmodified
// whether its metadata came from the P2P block parser or the indexer
// fallback adapter (spec.md §4.J's normalization requirement).
//
// Object keys always decode to KindText, including keys that look like
// decimal integers, so a JSON-sourced policy map keys the same way a
// CBOR text-keyed one does.
func FromJSON(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Value{Kind: KindNull}, nil
	case bool:
		return Value{Kind: KindBool, Bool: v}, nil
	case string:
		return Value{Kind: KindText, Text: v}, nil
	case json.Number:
		return numberValue(v.String())
	case float64:
		return numberValue(fmt.Sprintf("%d", int64(v)))
	case []any:
		arr := make([]Value, 0, len(v))
		for _, elem := range v {
			ev, err := FromJSON(elem)
			if err != nil {
				return Value{}, err
			}
			arr = append(arr, ev)
		}
		return Value{Kind: KindArray, Array: arr}, nil
	case map[string]any:
		entries := make([]MapEntry, 0, len(v))
		for k, val := range v {
			vv, err := FromJSON(val)
			if err != nil {
				return Value{}, err
			}
			entries = append(entries, MapEntry{Key: Value{Kind: KindText, Text: k}, Value: vv})
		}
		return Value{Kind: KindMap, Map: entries}, nil
	default:
		return Value{}, fmt.Errorf("cborutil: unsupported JSON-decoded type %T", raw)
	}
}

func numberValue(s string) (Value, error) {
	var i int64
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return Value{}, fmt.Errorf("cborutil: non-integer JSON number %q", s)
	}
	if i >= 0 {
		return Value{Kind: KindUint, Uint: uint64(i)}, nil
	}
	return Value{Kind: KindNint, Nint: i}, nil
}
