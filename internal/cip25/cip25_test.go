package cip25

import (
	"testing"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beacnpool/ledger-scrolls/internal/cborutil"
	"github.com/beacnpool/ledger-scrolls/internal/chain"
)

const testPolicy = "abcd1234abcd1234abcd1234abcd1234abcd1234abcd1234abcd1234"

func decodeLabel721(t *testing.T, raw map[any]any) cborutil.Value {
	t.Helper()
	enc, err := cbor.Encode(raw)
	require.NoError(t, err)
	v, err := cborutil.Decode(enc)
	require.NoError(t, err)
	return v
}

func TestExtractEnumeratesAssetsUnderPolicy(t *testing.T) {
	meta := map[any]any{
		testPolicy: map[any]any{
			"manifest": map[any]any{
				"codec":        "gzip",
				"content_type": "image/png",
				"n":            uint64(2),
			},
			"page0": map[any]any{
				"i":       uint64(0),
				"payload": "deadbeef",
			},
		},
		"other-policy-not-wanted": map[any]any{
			"x": map[any]any{"i": uint64(0)},
		},
	}
	v := decodeLabel721(t, meta)

	assets, err := Extract(v, testPolicy)
	require.NoError(t, err)
	require.Len(t, assets, 2)

	byName := map[string]chain.Asset721{}
	for _, a := range assets {
		byName[a.AssetName] = a
		assert.Equal(t, testPolicy, a.PolicyID)
	}
	require.Contains(t, byName, "manifest")
	require.Contains(t, byName, "page0")
}

func TestExtractWrongPolicyReturnsEmpty(t *testing.T) {
	meta := map[any]any{
		testPolicy: map[any]any{"x": map[any]any{"i": uint64(0)}},
	}
	v := decodeLabel721(t, meta)

	assets, err := Extract(v, "ffffffffffffffffffffffffffffffffffffffffffffffffffffff")
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestClassifySeparatesManifestAndPages(t *testing.T) {
	meta := map[any]any{
		testPolicy: map[any]any{
			"manifest": map[any]any{
				"codec":        "none",
				"content_type": "image/png",
				"n":            uint64(2),
				"sha256":       "aa00ff",
			},
			"page0": map[any]any{"i": uint64(0), "payload": "deadbeef"},
			"page1": map[any]any{"i": uint64(1), "payload": []any{"0x1122", "33 44"}},
		},
	}
	v := decodeLabel721(t, meta)
	assets, err := Extract(v, testPolicy)
	require.NoError(t, err)

	pages, manifest, err := Classify(assets, "manifest")
	require.NoError(t, err)

	require.NotNil(t, manifest)
	assert.Equal(t, "none", manifest.Codec)
	assert.Equal(t, "image/png", manifest.ContentType)
	assert.True(t, manifest.HasTotal)
	assert.Equal(t, 2, manifest.TotalPages)
	assert.Equal(t, []byte{0xaa, 0x00, 0xff}, manifest.SHA256)

	require.Len(t, pages, 2)
	byIndex := map[int]chain.Page{}
	for _, p := range pages {
		byIndex[p.Index] = p
	}
	require.Contains(t, byIndex, 0)
	assert.Equal(t, [][]byte{{0xde, 0xad, 0xbe, 0xef}}, byIndex[0].Segments)

	require.Contains(t, byIndex, 1)
	assert.Equal(t, [][]byte{{0x11, 0x22}, {0x33, 0x44}}, byIndex[1].Segments)
}

// TestDecodeSegmentsBoundary: a segment prefixed "0x" and containing
// whitespace decodes equal to the stripped-and-lowercased hex.
func TestDecodeSegmentsBoundary(t *testing.T) {
	meta := map[any]any{
		testPolicy: map[any]any{
			"page0": map[any]any{"i": uint64(0), "payload": []any{" 0xDE AD be EF "}},
		},
	}
	v := decodeLabel721(t, meta)
	assets, err := Extract(v, testPolicy)
	require.NoError(t, err)

	pages, _, err := Classify(assets, "manifest")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, [][]byte{{0xde, 0xad, 0xbe, 0xef}}, pages[0].Segments)
}

func TestDecodeSegmentsRejectsOddLength(t *testing.T) {
	meta := map[any]any{
		testPolicy: map[any]any{
			"page0": map[any]any{"i": uint64(0), "payload": "abc"},
		},
	}
	v := decodeLabel721(t, meta)
	assets, err := Extract(v, testPolicy)
	require.NoError(t, err)

	_, _, err = Classify(assets, "manifest")
	require.Error(t, err)
	assert.ErrorIs(t, err, chain.ErrMalformed)
}

func TestExtractRejectsConflictingShaAliases(t *testing.T) {
	meta := map[any]any{
		testPolicy: map[any]any{
			"manifest": map[any]any{
				"sha":    "aa",
				"sha256": "bb",
			},
		},
	}
	v := decodeLabel721(t, meta)

	_, err := Extract(v, testPolicy)
	require.Error(t, err)
	assert.ErrorIs(t, err, chain.ErrMalformed)
}

func TestExtractAllowsAgreeingShaAliases(t *testing.T) {
	meta := map[any]any{
		testPolicy: map[any]any{
			"manifest": map[any]any{
				"sha":    "aabb",
				"sha256": "aabb",
			},
		},
	}
	v := decodeLabel721(t, meta)

	assets, err := Extract(v, testPolicy)
	require.NoError(t, err)
	require.Len(t, assets, 1)
}

func TestClassifyByFieldPresenceWithoutNameMatch(t *testing.T) {
	// No asset is named "manifest" here; the one carrying codec/content_type
	// is still recognized as the manifest by field presence alone.
	meta := map[any]any{
		testPolicy: map[any]any{
			"info": map[any]any{"codec": "gzip", "content_type": "application/octet-stream"},
			"p0":   map[any]any{"i": uint64(0), "payload": "aa"},
		},
	}
	v := decodeLabel721(t, meta)
	assets, err := Extract(v, testPolicy)
	require.NoError(t, err)

	pages, manifest, err := Classify(assets, "manifest")
	require.NoError(t, err)
	require.NotNil(t, manifest)
	assert.Equal(t, "info", manifest.AssetName)
	require.Len(t, pages, 1)
}
