package blockparser

import (
	"testing"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beacnpool/ledger-scrolls/internal/cborutil"
)

// buildBlock encodes [era, [header, tx_bodies, ..., aux_map]] the way a
// real HFC-wrapped block would arrive.
func buildBlock(t *testing.T, era int, txBodies []any, auxAtIndex3 map[any]any) []byte {
	t.Helper()
	body := []any{
		[]any{"fake-header"}, // index 0: header
		txBodies,             // index 1: tx_bodies
		map[any]any{},        // index 2: placeholder (certs or similar)
		auxAtIndex3,          // index 3: aux data (Alonzo onward)
	}
	raw, err := cbor.Encode([]any{uint64(era), body})
	require.NoError(t, err)
	return raw
}

func TestParseZeroTransactions(t *testing.T) {
	raw := buildBlock(t, 5, []any{}, map[any]any{})
	block := Parse(raw)
	assert.Equal(t, 0, len(block.TxBodies))
	assert.Equal(t, 0, len(block.TxIndexAux))
	assert.Equal(t, raw, block.RawCBOR)
}

func TestParseAuxDataAtIndex3(t *testing.T) {
	metaMap := map[any]any{uint64(721): map[any]any{"policy": uint64(1)}}
	raw := buildBlock(t, 5, []any{[]byte{0x01}, []byte{0x02}}, map[any]any{uint64(0): metaMap})

	block := Parse(raw)
	require.Len(t, block.TxBodies, 2)
	require.Contains(t, block.TxIndexAux, 0)

	aux := block.TxIndexAux[0]
	val, ok := aux[721].(cborutil.Value)
	require.True(t, ok)
	assert.Equal(t, cborutil.KindMap, val.Kind)
}

func TestParseDropsOutOfRangeTxIndex(t *testing.T) {
	metaMap := map[any]any{uint64(721): map[any]any{}}
	raw := buildBlock(t, 5, []any{[]byte{0x01}}, map[any]any{uint64(9): metaMap})

	block := Parse(raw)
	assert.Len(t, block.TxIndexAux, 0)
	assert.NotEmpty(t, block.Warnings)
}

func TestParseTolerantOfGarbage(t *testing.T) {
	block := Parse([]byte{0xff, 0xff, 0xff})
	assert.NotEmpty(t, block.Warnings)
	assert.Equal(t, []byte{0xff, 0xff, 0xff}, block.RawCBOR)
}
