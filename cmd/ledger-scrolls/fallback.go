package main

import (
	"context"
	"os"

	"github.com/beacnpool/ledger-scrolls/internal/chain"
	"github.com/beacnpool/ledger-scrolls/internal/indexer"
	"github.com/beacnpool/ledger-scrolls/internal/indexer/blockfrost"
	"github.com/beacnpool/ledger-scrolls/internal/indexer/koios"
)

// fallbackAdapter builds an indexer.Adapter from the environment, or nil
// if neither BLOCKFROST_PROJECT_ID nor KOIOS_URL is set. The Blockfrost
// base URL follows CARDANO_NETWORK_MAGIC; there is no separate
// environment variable for it (spec.md §6 names only the project ID).
func fallbackAdapter() indexer.Adapter {
	if projectID := os.Getenv("BLOCKFROST_PROJECT_ID"); projectID != "" {
		baseURL := chain.NetworkFromMagic(networkMagic()).BlockfrostBaseURL()
		return blockfrost.New(baseURL, projectID)
	}
	if koiosURL := os.Getenv("KOIOS_URL"); koiosURL != "" {
		return koios.New(koiosURL)
	}
	return nil
}

// resolveTxPoint resolves txHash's block point via the HTTP fallback
// adapter, for when the caller did not pin --block-slot/--block-hash.
func resolveTxPoint(ctx context.Context, txHash string) (chain.Point, error) {
	a := fallbackAdapter()
	if a == nil {
		return chain.Point{}, &chain.NotFoundError{What: "tx block point not given and no BLOCKFROST_PROJECT_ID/KOIOS_URL fallback configured"}
	}
	return a.ResolveTxPoint(ctx, txHash)
}
