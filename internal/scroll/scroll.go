// Package scroll reconstructs a scroll's bytes from its on-chain
// carriers, per spec.md §4.H: either the inline datum of a single
// transaction output, or an ordered sequence of CIP-25 page assets
// under a policy.
package scroll

import (
	"context"

	"github.com/beacnpool/ledger-scrolls/internal/blockfetch"
	"github.com/beacnpool/ledger-scrolls/internal/chain"
	"github.com/beacnpool/ledger-scrolls/internal/chainsync"
)

// Deps are the already-connected mini-protocol clients a reconstruction
// needs. The inline-datum path uses only BlockFetch, so ChainSync may be
// nil there; the CIP-25 pages path needs both.
type Deps struct {
	ChainSync  *chainsync.Client
	BlockFetch *blockfetch.Client
}

// Reconstruct dispatches on desc's tagged variant and runs the matching
// code path.
func Reconstruct(ctx context.Context, desc chain.ScrollDescriptor, deps Deps) (chain.ScrollResult, error) {
	switch {
	case desc.InlineDatum != nil:
		if deps.BlockFetch == nil {
			return chain.ScrollResult{}, &chain.MalformedError{Where: "scroll: inline-datum reconstruction requires a BlockFetch client"}
		}
		return reconstructInline(ctx, deps.BlockFetch, desc.InlineDatum)
	case desc.Cip25Pages != nil:
		if deps.ChainSync == nil || deps.BlockFetch == nil {
			return chain.ScrollResult{}, &chain.MalformedError{Where: "scroll: cip25-pages reconstruction requires ChainSync and BlockFetch clients"}
		}
		return reconstructCip25Pages(ctx, deps.ChainSync, deps.BlockFetch, desc.Cip25Pages)
	default:
		return chain.ScrollResult{}, &chain.MalformedError{Where: "scroll: descriptor has neither InlineDatum nor Cip25Pages set"}
	}
}
