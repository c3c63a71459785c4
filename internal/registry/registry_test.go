package registry

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beacnpool/ledger-scrolls/internal/chain"
)

type fakeFetcher struct {
	byRef map[string][]byte
}

func refKey(ref chain.TxRef) string {
	return fmt.Sprintf("%x:%d", ref.TxID, ref.Ix)
}

func (f *fakeFetcher) FetchInlineDatum(ctx context.Context, ref chain.TxRef) ([]byte, error) {
	b, ok := f.byRef[refKey(ref)]
	if !ok {
		return nil, &chain.NotFoundError{What: "no datum for ref"}
	}
	return b, nil
}

func gzipBytes(t *testing.T, b []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(b)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestMergeHeadsOverridesByName(t *testing.T) {
	headRef1 := chain.TxRef{TxID: []byte{0x01}, Ix: 0}
	listRef1 := chain.TxRef{TxID: []byte{0x6c, 0x69, 0x73, 0x74, 0x31}, Ix: 0} // hex "6c69737431"
	headRef2 := chain.TxRef{TxID: []byte{0x02}, Ix: 0}
	listRef2 := chain.TxRef{TxID: []byte{0x6c, 0x69, 0x73, 0x74, 0x32}, Ix: 0} // hex "6c69737432"

	head1JSON := []byte(`{"format":"ledger-scrolls-registry-head","registryList":{"kind":"utxo-inline-datum-bytes-v1","tx_hash":"6c69737431","tx_ix":0}}`)
	list1JSON := []byte(`{"format":"ledger-scrolls-registry-list","entries":[{"name":"alpha","pointer":{"kind":"url-v1","url":"https://example.invalid/a"},"content_type":"text/plain"}]}`)

	head2JSON := []byte(`{"format":"ledger-scrolls-registry-head","registryList":{"kind":"utxo-inline-datum-bytes-v1","tx_hash":"6c69737432","tx_ix":0}}`)
	list2JSON := []byte(`{"format":"ledger-scrolls-registry-list","entries":[{"name":"alpha","pointer":{"kind":"url-v1","url":"https://example.invalid/override"},"content_type":"text/plain"}]}`)

	fetcher := &fakeFetcher{byRef: map[string][]byte{
		refKey(headRef1): head1JSON,
		refKey(listRef1): gzipBytes(t, list1JSON), // list1 is gzip-compressed; head2's list is not
		refKey(headRef2): head2JSON,
		refKey(listRef2): list2JSON,
	}}

	r := &Resolver{Fetcher: fetcher}
	merged, err := r.MergeHeads(context.Background(), []chain.TxRef{headRef1, headRef2})
	require.NoError(t, err)
	require.Contains(t, merged, "alpha")
	assert.Equal(t, "https://example.invalid/override", merged["alpha"].Pointer.URL)
}

func TestResolveHeadRejectsWrongFormat(t *testing.T) {
	headRef := chain.TxRef{TxID: []byte{0x03}, Ix: 0}
	fetcher := &fakeFetcher{byRef: map[string][]byte{
		refKey(headRef): []byte(`{"format":"something-else"}`),
	}}
	r := &Resolver{Fetcher: fetcher}
	_, err := r.ResolveHead(context.Background(), headRef)
	require.Error(t, err)
	assert.ErrorIs(t, err, chain.ErrMalformed)
}
