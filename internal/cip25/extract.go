// Package cip25 locates and classifies CIP-25 (transaction-metadata
// label 721) asset records under a given policy, per spec.md §4.G.
package cip25

import (
	"strings"

	"github.com/beacnpool/ledger-scrolls/internal/cborutil"
	"github.com/beacnpool/ledger-scrolls/internal/chain"
)

// Extract enumerates the assets under wantedPolicy (lower-case hex) in a
// decoded label-721 metadata map, normalizing policy keys to hex and
// string keys to lower-case, per spec.md §4.G.
func Extract(metadata721 any, wantedPolicy string) ([]chain.Asset721, error) {
	v, ok := metadata721.(cborutil.Value)
	if !ok {
		return nil, &chain.MalformedError{Where: "cip25: label 721 value is not a decoded CBOR map"}
	}
	v = v.Unwrap()
	if v.Kind != cborutil.KindMap {
		return nil, &chain.MalformedError{Where: "cip25: label 721 is not a CBOR map"}
	}

	wantedPolicy = strings.ToLower(wantedPolicy)
	var out []chain.Asset721
	for _, policyEntry := range v.Map {
		policyKey, err := normalizeKey(policyEntry.Key)
		if err != nil {
			continue
		}
		if strings.ToLower(policyKey) != wantedPolicy {
			continue
		}
		assetsVal := policyEntry.Value.Unwrap()
		if assetsVal.Kind != cborutil.KindMap {
			continue
		}
		for _, assetEntry := range assetsVal.Map {
			assetName := normalizeAssetNameKey(assetEntry.Key)
			fields, err := decodeFields(assetEntry.Value.Unwrap())
			if err != nil {
				return nil, err
			}
			out = append(out, chain.Asset721{
				PolicyID:  policyKey,
				AssetName: assetName,
				Fields:    fields,
			})
		}
	}
	return out, nil
}

// normalizeKey normalizes a policy-id key: bytes become lower-case hex,
// strings are lower-cased as-is.
func normalizeKey(k cborutil.Value) (string, error) {
	switch k.Kind {
	case cborutil.KindBytes:
		return cborutil.ToLowerHex(k.Bytes), nil
	case cborutil.KindText:
		return strings.ToLower(k.Text), nil
	default:
		return "", &chain.MalformedError{Where: "cip25: policy key is neither bytes nor text"}
	}
}

// normalizeAssetNameKey normalizes an asset-name key: bytes decode to
// UTF-8 when clean, else lower-case hex; strings pass through unchanged.
func normalizeAssetNameKey(k cborutil.Value) string {
	switch k.Kind {
	case cborutil.KindBytes:
		return cborutil.NormalizeAssetName(k.Bytes)
	case cborutil.KindText:
		return k.Text
	default:
		return ""
	}
}

// fieldKeyAliases maps the known field key names to a single canonical
// key, per spec.md §3's Field keys of interest.
var fieldKeyAliases = map[string]string{
	"i": "index", "index": "index",
	"n": "total", "total": "total",
	"payload": "payload", "segments": "payload", "seg": "payload",
	"codec":        "codec",
	"content_type": "content_type",
	"sha256":       "sha256", "sha": "sha256",
	"sha256_gz": "sha256_gz", "sha_gz": "sha256_gz",
}

// decodeFields converts a CIP-25 asset's field map into a canonical-key
// Go value map, keeping values as cborutil.Value for the caller to
// interpret (payload segments need structural handling; scalars don't).
func decodeFields(v cborutil.Value) (map[string]any, error) {
	if v.Kind != cborutil.KindMap {
		return nil, &chain.MalformedError{Where: "cip25: asset record is not a CBOR map"}
	}
	fields := map[string]any{}
	for _, e := range v.Map {
		var rawKey string
		switch e.Key.Kind {
		case cborutil.KindText:
			rawKey = strings.ToLower(e.Key.Text)
		case cborutil.KindBytes:
			rawKey = strings.ToLower(cborutil.NormalizeAssetName(e.Key.Bytes))
		default:
			continue
		}
		canonical, known := fieldKeyAliases[rawKey]
		if !known {
			continue
		}
		val := e.Value.Unwrap()
		existing, exists := fields[canonical]
		if !exists {
			fields[canonical] = val
			continue
		}
		// Two raw keys mapping to the same canonical one (e.g. "sha" and
		// "sha256") are only a problem if they disagree; per spec.md §9's
		// Open Question, digests are rejected only when both are present
		// and differ. Everywhere else, the first one wins.
		if (canonical == "sha256" || canonical == "sha256_gz") && !valuesEqual(existing.(cborutil.Value), val) {
			return nil, &chain.MalformedError{Where: "cip25: conflicting " + canonical + " aliases in asset record"}
		}
	}
	return fields, nil
}

// valuesEqual compares two decoded CBOR values by their canonical
// re-encoding.
func valuesEqual(a, b cborutil.Value) bool {
	ab, aerr := cborutil.Reencode(a)
	bb, berr := cborutil.Reencode(b)
	if aerr != nil || berr != nil {
		return false
	}
	return string(ab) == string(bb)
}
