package cip25

import (
	"github.com/beacnpool/ledger-scrolls/internal/cborutil"
	"github.com/beacnpool/ledger-scrolls/internal/chain"
)

// Classify splits assets into pages and an optional manifest, per
// spec.md §3: an asset is the manifest if its name matches
// manifestAssetName, or if any of codec/content_type/sha256/sha256_gz is
// present; otherwise it is a page if it carries a payload field.
func Classify(assets []chain.Asset721, manifestAssetName string) (pages []chain.Page, manifest *chain.Manifest, err error) {
	for _, a := range assets {
		isManifest := (manifestAssetName != "" && a.AssetName == manifestAssetName) || hasManifestField(a.Fields)
		if isManifest {
			m, merr := toManifest(a)
			if merr != nil {
				return nil, nil, merr
			}
			manifest = m
			continue
		}
		if _, hasPayload := a.Fields["payload"]; hasPayload {
			p, perr := toPage(a)
			if perr != nil {
				return nil, nil, perr
			}
			pages = append(pages, p)
		}
	}
	return pages, manifest, nil
}

func hasManifestField(fields map[string]any) bool {
	for _, k := range []string{"codec", "content_type", "sha256", "sha256_gz"} {
		if _, ok := fields[k]; ok {
			return true
		}
	}
	return false
}

func toManifest(a chain.Asset721) (*chain.Manifest, error) {
	m := &chain.Manifest{AssetName: a.AssetName}
	if v, ok := a.Fields["codec"]; ok {
		m.Codec, _ = textValue(v)
	}
	if v, ok := a.Fields["content_type"]; ok {
		m.ContentType, _ = textValue(v)
	}
	if v, ok := a.Fields["total"]; ok {
		if n, ok := intValue(v); ok {
			m.TotalPages = int(n)
			m.HasTotal = true
		}
	}
	sha256, hasSha := a.Fields["sha256"]
	sha256Gz, hasShaGz := a.Fields["sha256_gz"]
	if hasSha {
		b, err := bytesValue(sha256)
		if err != nil {
			return nil, &chain.MalformedError{Where: "cip25: manifest sha256 field"}
		}
		m.SHA256 = b
	}
	if hasShaGz {
		b, err := bytesValue(sha256Gz)
		if err != nil {
			return nil, &chain.MalformedError{Where: "cip25: manifest sha256_gz field"}
		}
		m.SHA256Gz = b
	}
	return m, nil
}

func toPage(a chain.Asset721) (chain.Page, error) {
	p := chain.Page{AssetName: a.AssetName, Index: -1}
	if v, ok := a.Fields["index"]; ok {
		if n, ok := intValue(v); ok {
			p.Index = int(n)
		}
	}
	payloadVal, ok := a.Fields["payload"]
	if !ok {
		return p, nil
	}
	segments, err := decodeSegments(payloadVal)
	if err != nil {
		return chain.Page{}, err
	}
	p.Segments = segments
	return p, nil
}

// decodeSegments normalizes a payload/segments field, which is an
// ordered list of hex strings or raw byte strings, per spec.md §4.G.
func decodeSegments(v any) ([][]byte, error) {
	cv, ok := v.(cborutil.Value)
	if !ok {
		return nil, &chain.MalformedError{Where: "cip25: payload field is not a decoded CBOR value"}
	}
	cv = cv.Unwrap()
	switch cv.Kind {
	case cborutil.KindBytes:
		return [][]byte{cv.Bytes}, nil
	case cborutil.KindText:
		b, err := cborutil.DecodeHexSegment(cv.Text)
		if err != nil {
			return nil, &chain.MalformedError{Where: "cip25: payload field: " + err.Error()}
		}
		return [][]byte{b}, nil
	case cborutil.KindArray:
		out := make([][]byte, 0, len(cv.Array))
		for _, elem := range cv.Array {
			elem = elem.Unwrap()
			switch elem.Kind {
			case cborutil.KindBytes:
				out = append(out, elem.Bytes)
			case cborutil.KindText:
				b, err := cborutil.DecodeHexSegment(elem.Text)
				if err != nil {
					return nil, &chain.MalformedError{Where: "cip25: payload segment: " + err.Error()}
				}
				out = append(out, b)
			default:
				return nil, &chain.MalformedError{Where: "cip25: payload segment is neither hex text nor bytes"}
			}
		}
		return out, nil
	default:
		return nil, &chain.MalformedError{Where: "cip25: payload field is neither bytes nor an array"}
	}
}

func textValue(v any) (string, bool) {
	cv, ok := v.(cborutil.Value)
	if !ok {
		return "", false
	}
	cv = cv.Unwrap()
	if cv.Kind != cborutil.KindText {
		return "", false
	}
	return cv.Text, true
}

func intValue(v any) (int64, bool) {
	cv, ok := v.(cborutil.Value)
	if !ok {
		return 0, false
	}
	return cv.Unwrap().Int()
}

func bytesValue(v any) ([]byte, error) {
	cv, ok := v.(cborutil.Value)
	if !ok {
		return nil, &chain.MalformedError{Where: "cip25: expected a decoded CBOR value"}
	}
	cv = cv.Unwrap()
	switch cv.Kind {
	case cborutil.KindBytes:
		return cv.Bytes, nil
	case cborutil.KindText:
		return cborutil.DecodeHexSegment(cv.Text)
	default:
		return nil, &chain.MalformedError{Where: "cip25: expected bytes or hex text"}
	}
}
