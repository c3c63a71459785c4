package blockfrost

import (
	"context"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTxPoint(t *testing.T) {
	hash := make([]byte, 32)
	hash[0] = 0xAB
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/txs/deadbeef", r.URL.Path)
		assert.Equal(t, "proj123", r.Header.Get("project_id"))
		w.Write([]byte(`{"block":"` + hex.EncodeToString(hash) + `","slot":12345}`))
	}))
	defer srv.Close()

	a := New(srv.URL, "proj123")
	pt, err := a.ResolveTxPoint(context.Background(), "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, uint64(12345), pt.Slot)
	assert.Equal(t, hash, pt.Hash)
}

func TestLabel721MetadataAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"label":"674","json_metadata":{"msg":["hi"]}}]`))
	}))
	defer srv.Close()

	a := New(srv.URL, "proj123")
	_, found, err := a.Label721Metadata(context.Background(), "deadbeef")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAssetsUnderPolicy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"asset":"policy1234706167653030303100"}]`))
	}))
	defer srv.Close()

	a := New(srv.URL, "proj123")
	names, err := a.AssetsUnderPolicy(context.Background(), "policy1234")
	require.NoError(t, err)
	require.Len(t, names, 1)
}

func TestOutputInlineDatumBytesNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"outputs":[{"output_index":0,"inline_datum":null}]}`))
	}))
	defer srv.Close()

	a := New(srv.URL, "proj123")
	_, err := a.OutputInlineDatumBytes(context.Background(), "deadbeef", 0)
	require.Error(t, err)
}
