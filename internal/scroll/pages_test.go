package scroll

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/beacnpool/ledger-scrolls/internal/blockfetch"
	"github.com/beacnpool/ledger-scrolls/internal/chain"
	"github.com/beacnpool/ledger-scrolls/internal/chainsync"
	"github.com/beacnpool/ledger-scrolls/internal/mux"
	"github.com/beacnpool/ledger-scrolls/internal/n2n"
)

const pagesTestPolicy = "cafe1234cafe1234cafe1234cafe1234cafe1234cafe1234cafe123"

// buildCip25Header builds a header whose encoded bytes decode cleanly
// through pointFromHeader: [[0, slot], h''].
func buildCip25Header(t *testing.T, slot uint64) []byte {
	t.Helper()
	headerBody := []any{uint64(0), slot}
	raw, err := cbor.Encode([]any{headerBody, []byte{}})
	require.NoError(t, err)
	return raw
}

// buildCip25BlockBody wraps a single label-721 entry for tx_index 0 in a
// block body blockparser.Parse will accept: one placeholder tx (so
// tx_index 0 is in range) and the aux-data map at index 3.
func buildCip25BlockBody(t *testing.T, label721 map[any]any) []byte {
	t.Helper()
	txBodies := []any{map[any]any{}}
	auxMap := map[any]any{
		uint64(0): map[any]any{uint64(chain.LabelCIP25): label721},
	}
	body := []any{[]any{"fake-header"}, txBodies, map[any]any{}, auxMap}
	raw, err := cbor.Encode([]any{uint64(5), body})
	require.NoError(t, err)
	return raw
}

func hexPayload(b []byte) string { return hex.EncodeToString(b) }

func encodeCSPoint(p chain.Point) any {
	if p.IsOrigin() {
		return []any{}
	}
	return []any{p.Slot, p.Hash}
}

func TestReconstructCip25PagesSingleBlockNoGzip(t *testing.T) {
	conn, server := dialPair(t)
	defer conn.Close()
	defer server.Close()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	cs := chainsync.NewClient(conn, logger)
	bf := blockfetch.NewClient(conn, logger)

	startHash := make([]byte, 32)
	startHash[0] = 0x01
	startPoint, err := chain.NewPoint(10, startHash)
	require.NoError(t, err)

	content := []byte("hello cip25 scroll, no gzip here")
	sum := sha256.Sum256(content)

	label721 := map[any]any{
		pagesTestPolicy: map[any]any{
			"manifest": map[any]any{
				"codec":        "none",
				"content_type": "text/plain",
				"n":            uint64(1),
				"sha256":       hexPayload(sum[:]),
			},
			"page0": map[any]any{
				"i":       uint64(0),
				"payload": hexPayload(content),
			},
		},
	}
	blockBody := buildCip25BlockBody(t, label721)
	header := buildCip25Header(t, 11)
	tip := []any{encodeCSPoint(startPoint), uint64(1)}

	go func() {
		readOneFrame(t, server) // MsgFindIntersect
		found, _ := cbor.Encode([]any{uint64(5), encodeCSPoint(startPoint), tip})
		writeFrame(t, server, n2n.ProtocolChainSync, mux.ModeResponder, found)

		readOneFrame(t, server) // MsgRequestNext
		rollFwd, _ := cbor.Encode([]any{uint64(2), header, tip})
		writeFrame(t, server, n2n.ProtocolChainSync, mux.ModeResponder, rollFwd)

		readOneFrame(t, server) // MsgRequestRange
		start, _ := cbor.Encode([]any{uint64(2)})
		writeFrame(t, server, n2n.ProtocolBlockFetch, mux.ModeResponder, start)
		block, _ := cbor.Encode([]any{uint64(4), blockBody})
		writeFrame(t, server, n2n.ProtocolBlockFetch, mux.ModeResponder, block)
		done, _ := cbor.Encode([]any{uint64(5)})
		writeFrame(t, server, n2n.ProtocolBlockFetch, mux.ModeResponder, done)

		readOneFrame(t, server) // MsgClientDone
	}()

	desc := &chain.Cip25PagesScroll{
		PolicyID:          pagesTestPolicy,
		ManifestAssetName: "manifest",
		StartPoint:        startPoint,
	}

	result, err := Reconstruct(context.Background(), chain.ScrollDescriptor{Cip25Pages: desc}, Deps{ChainSync: cs, BlockFetch: bf})
	require.NoError(t, err)
	require.Equal(t, content, result.Bytes)
	require.Equal(t, "text/plain", result.ContentType)
	require.Equal(t, "none", result.CodecUsed)
	require.Equal(t, sum[:], result.SHA256)
}

func TestReconstructCip25PagesGzipWithDigests(t *testing.T) {
	conn, server := dialPair(t)
	defer conn.Close()
	defer server.Close()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	cs := chainsync.NewClient(conn, logger)
	bf := blockfetch.NewClient(conn, logger)

	startHash := make([]byte, 32)
	startHash[0] = 0x03
	startPoint, err := chain.NewPoint(20, startHash)
	require.NoError(t, err)

	plain := []byte("this scroll is gzip-compressed before being split into pages")
	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	_, err = w.Write(plain)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	compressed := gz.Bytes()

	gzSum := sha256.Sum256(compressed)
	plainSum := sha256.Sum256(plain)

	mid := len(compressed) / 2
	label721 := map[any]any{
		pagesTestPolicy: map[any]any{
			"manifest": map[any]any{
				"codec":        "gzip",
				"content_type": "application/octet-stream",
				"n":            uint64(2),
				"sha256_gz":    hexPayload(gzSum[:]),
				"sha256":       hexPayload(plainSum[:]),
			},
			"page0": map[any]any{
				"i":       uint64(0),
				"payload": hexPayload(compressed[:mid]),
			},
			"page1": map[any]any{
				"i":       uint64(1),
				"payload": hexPayload(compressed[mid:]),
			},
		},
	}
	blockBody := buildCip25BlockBody(t, label721)
	header := buildCip25Header(t, 21)
	tip := []any{encodeCSPoint(startPoint), uint64(1)}

	go func() {
		readOneFrame(t, server)
		found, _ := cbor.Encode([]any{uint64(5), encodeCSPoint(startPoint), tip})
		writeFrame(t, server, n2n.ProtocolChainSync, mux.ModeResponder, found)

		readOneFrame(t, server)
		rollFwd, _ := cbor.Encode([]any{uint64(2), header, tip})
		writeFrame(t, server, n2n.ProtocolChainSync, mux.ModeResponder, rollFwd)

		readOneFrame(t, server)
		start, _ := cbor.Encode([]any{uint64(2)})
		writeFrame(t, server, n2n.ProtocolBlockFetch, mux.ModeResponder, start)
		block, _ := cbor.Encode([]any{uint64(4), blockBody})
		writeFrame(t, server, n2n.ProtocolBlockFetch, mux.ModeResponder, block)
		done, _ := cbor.Encode([]any{uint64(5)})
		writeFrame(t, server, n2n.ProtocolBlockFetch, mux.ModeResponder, done)

		readOneFrame(t, server)
	}()

	desc := &chain.Cip25PagesScroll{
		PolicyID:          pagesTestPolicy,
		ManifestAssetName: "manifest",
		StartPoint:        startPoint,
	}

	result, err := Reconstruct(context.Background(), chain.ScrollDescriptor{Cip25Pages: desc}, Deps{ChainSync: cs, BlockFetch: bf})
	require.NoError(t, err)
	require.Equal(t, plain, result.Bytes)
	require.Equal(t, "application/octet-stream", result.ContentType)
	require.Equal(t, "gzip", result.CodecUsed)
	require.Equal(t, plainSum[:], result.SHA256)
}

func TestReconstructCip25PagesAcrossTwoBlocks(t *testing.T) {
	conn, server := dialPair(t)
	defer conn.Close()
	defer server.Close()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	cs := chainsync.NewClient(conn, logger)
	bf := blockfetch.NewClient(conn, logger)

	startHash := make([]byte, 32)
	startHash[0] = 0x04
	startPoint, err := chain.NewPoint(30, startHash)
	require.NoError(t, err)

	content := []byte("split across two whole blocks")
	sum := sha256.Sum256(content)
	mid := len(content) / 2

	label721Block1 := map[any]any{
		pagesTestPolicy: map[any]any{
			"manifest": map[any]any{
				"codec":        "none",
				"content_type": "text/plain",
				"n":            uint64(2),
				"sha256":       hexPayload(sum[:]),
			},
			"page0": map[any]any{
				"i":       uint64(0),
				"payload": hexPayload(content[:mid]),
			},
		},
	}
	label721Block2 := map[any]any{
		pagesTestPolicy: map[any]any{
			"page1": map[any]any{
				"i":       uint64(1),
				"payload": hexPayload(content[mid:]),
			},
		},
	}
	block1Body := buildCip25BlockBody(t, label721Block1)
	block2Body := buildCip25BlockBody(t, label721Block2)
	header1 := buildCip25Header(t, 31)
	header2 := buildCip25Header(t, 32)
	tip := []any{encodeCSPoint(startPoint), uint64(2)}

	go func() {
		readOneFrame(t, server) // MsgFindIntersect
		found, _ := cbor.Encode([]any{uint64(5), encodeCSPoint(startPoint), tip})
		writeFrame(t, server, n2n.ProtocolChainSync, mux.ModeResponder, found)

		readOneFrame(t, server) // first MsgRequestNext
		rollFwd1, _ := cbor.Encode([]any{uint64(2), header1, tip})
		writeFrame(t, server, n2n.ProtocolChainSync, mux.ModeResponder, rollFwd1)

		readOneFrame(t, server) // first block fetch range
		start1, _ := cbor.Encode([]any{uint64(2)})
		writeFrame(t, server, n2n.ProtocolBlockFetch, mux.ModeResponder, start1)
		block1, _ := cbor.Encode([]any{uint64(4), block1Body})
		writeFrame(t, server, n2n.ProtocolBlockFetch, mux.ModeResponder, block1)
		done1, _ := cbor.Encode([]any{uint64(5)})
		writeFrame(t, server, n2n.ProtocolBlockFetch, mux.ModeResponder, done1)
		readOneFrame(t, server) // first MsgClientDone

		readOneFrame(t, server) // second MsgRequestNext
		rollFwd2, _ := cbor.Encode([]any{uint64(2), header2, tip})
		writeFrame(t, server, n2n.ProtocolChainSync, mux.ModeResponder, rollFwd2)

		readOneFrame(t, server) // second block fetch range
		start2, _ := cbor.Encode([]any{uint64(2)})
		writeFrame(t, server, n2n.ProtocolBlockFetch, mux.ModeResponder, start2)
		block2, _ := cbor.Encode([]any{uint64(4), block2Body})
		writeFrame(t, server, n2n.ProtocolBlockFetch, mux.ModeResponder, block2)
		done2, _ := cbor.Encode([]any{uint64(5)})
		writeFrame(t, server, n2n.ProtocolBlockFetch, mux.ModeResponder, done2)
		readOneFrame(t, server) // second MsgClientDone
	}()

	desc := &chain.Cip25PagesScroll{
		PolicyID:          pagesTestPolicy,
		ManifestAssetName: "manifest",
		StartPoint:        startPoint,
		MaxScanBlocks:     2,
	}

	result, err := Reconstruct(context.Background(), chain.ScrollDescriptor{Cip25Pages: desc}, Deps{ChainSync: cs, BlockFetch: bf})
	require.NoError(t, err)
	require.Equal(t, content, result.Bytes)
	require.Equal(t, "none", result.CodecUsed)
	require.Equal(t, sum[:], result.SHA256)
}
