package chainsync

import (
	"testing"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beacnpool/ledger-scrolls/internal/cborutil"
	"github.com/beacnpool/ledger-scrolls/internal/chain"
)

func TestPointRoundTrip(t *testing.T) {
	hash := make([]byte, 32)
	for i := range hash {
		hash[i] = byte(i)
	}
	pt, err := chain.NewPoint(12345, hash)
	require.NoError(t, err)

	raw, err := cbor.Encode(encodePoint(pt))
	require.NoError(t, err)
	v, err := cborutil.Decode(raw)
	require.NoError(t, err)

	got, err := decodePoint(v)
	require.NoError(t, err)
	assert.True(t, pt.Equal(got))
}

func TestOriginPointRoundTrip(t *testing.T) {
	raw, err := cbor.Encode(encodePoint(chain.Origin))
	require.NoError(t, err)
	v, err := cborutil.Decode(raw)
	require.NoError(t, err)

	got, err := decodePoint(v)
	require.NoError(t, err)
	assert.True(t, got.IsOrigin())
}

func TestExtractHeaderBytesFromEraWrapped(t *testing.T) {
	inner := []byte("fake-header-bytes")
	raw, err := cbor.Encode([]any{uint64(5), inner})
	require.NoError(t, err)
	v, err := cborutil.Decode(raw)
	require.NoError(t, err)

	got, err := extractHeaderBytes(v)
	require.NoError(t, err)
	assert.Equal(t, inner, got)
}
