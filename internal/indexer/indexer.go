// Package indexer defines the optional HTTP fallback adapter surface,
// per spec.md §4.J: when P2P is not used, an adapter must answer the
// same four queries a P2P-connected core would answer from the block
// parser and BlockFetch, normalized to the exact shapes §3 describes.
package indexer

import (
	"context"
	"encoding/hex"

	"github.com/beacnpool/ledger-scrolls/internal/chain"
)

// Adapter is the fallback surface, implemented by internal/indexer/blockfrost
// and internal/indexer/koios.
type Adapter interface {
	// ResolveTxPoint resolves a transaction hash to the Point of the
	// block it was included in.
	ResolveTxPoint(ctx context.Context, txHash string) (chain.Point, error)

	// Label721Metadata returns the decoded label-721 metadata value for
	// txHash, normalized the same way the block parser's AuxiliaryData
	// would hold it: absent entirely if the tx carries none.
	Label721Metadata(ctx context.Context, txHash string) (any, bool, error)

	// AssetsUnderPolicy lists every asset name minted under policyID.
	AssetsUnderPolicy(ctx context.Context, policyID string) ([]string, error)

	// OutputInlineDatumBytes returns the raw inline datum bytes of
	// txHash's output at index ix, or chain.ErrNotFound if the output
	// carries none.
	OutputInlineDatumBytes(ctx context.Context, txHash string, ix uint32) ([]byte, error)
}

// DatumFetcher adapts an Adapter into internal/registry's DatumFetcher
// interface so the registry resolver works unmodified whether the core
// is P2P-connected or running against the HTTP fallback.
type DatumFetcher struct {
	Adapter Adapter
}

// FetchInlineDatum implements internal/registry.DatumFetcher.
func (d DatumFetcher) FetchInlineDatum(ctx context.Context, ref chain.TxRef) ([]byte, error) {
	return d.Adapter.OutputInlineDatumBytes(ctx, hex.EncodeToString(ref.TxID), ref.Ix)
}
