package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/beacnpool/ledger-scrolls/internal/catalog"
	"github.com/beacnpool/ledger-scrolls/internal/chain"
	"github.com/beacnpool/ledger-scrolls/internal/scroll"
)

var (
	reconScrollID  string
	reconTxHash    string
	reconTxIx      uint32
	reconBlockSlot uint64
	reconBlockHash string
	reconOut       string

	reconPolicyID      string
	reconManifestAsset string
	reconStartSlot     uint64
	reconStartHash     string
	reconMaxBlocks     int
)

var reconstructUtxoCmd = &cobra.Command{
	Use:   "reconstruct-utxo",
	Short: "reconstruct a scroll stored in a single output's inline datum",
	RunE:  runReconstructUtxo,
}

var reconstructCip25Cmd = &cobra.Command{
	Use:   "reconstruct-cip25",
	Short: "reconstruct a scroll scattered across CIP-25 page assets",
	RunE:  runReconstructCip25,
}

func init() {
	reconstructUtxoCmd.Flags().StringVar(&reconScrollID, "scroll", "", "catalog scroll ID")
	reconstructUtxoCmd.Flags().StringVar(&reconTxHash, "tx-hash", "", "transaction hash, hex")
	reconstructUtxoCmd.Flags().Uint32Var(&reconTxIx, "tx-ix", 0, "output index")
	reconstructUtxoCmd.Flags().Uint64Var(&reconBlockSlot, "block-slot", 0, "containing block's slot")
	reconstructUtxoCmd.Flags().StringVar(&reconBlockHash, "block-hash", "", "containing block's header hash, hex")
	reconstructUtxoCmd.Flags().StringVar(&reconOut, "out", "", "output file")
	_ = reconstructUtxoCmd.MarkFlagRequired("out")

	reconstructCip25Cmd.Flags().StringVar(&reconScrollID, "scroll", "", "catalog scroll ID")
	reconstructCip25Cmd.Flags().StringVar(&reconPolicyID, "policy", "", "policy ID")
	reconstructCip25Cmd.Flags().StringVar(&reconManifestAsset, "manifest-asset", "", "declared manifest asset name")
	reconstructCip25Cmd.Flags().Uint64Var(&reconStartSlot, "start-slot", 0, "scan start slot")
	reconstructCip25Cmd.Flags().StringVar(&reconStartHash, "start-hash", "", "scan start block hash, hex")
	reconstructCip25Cmd.Flags().IntVar(&reconMaxBlocks, "max-blocks", 0, "maximum blocks to scan (0 = unbounded)")
	reconstructCip25Cmd.Flags().StringVar(&reconOut, "out", "", "output file")
	_ = reconstructCip25Cmd.MarkFlagRequired("out")
}

func runReconstructUtxo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var desc chain.ScrollDescriptor
	if reconScrollID != "" {
		d, err := descriptorFromCatalog(reconScrollID)
		if err != nil {
			return err
		}
		desc = d
	} else {
		if reconTxHash == "" {
			return fmt.Errorf("either --scroll or --tx-hash is required")
		}
		txID, err := hex.DecodeString(reconTxHash)
		if err != nil {
			return fmt.Errorf("--tx-hash is not valid hex: %w", err)
		}
		point, err := inlineBlockPoint(ctx)
		if err != nil {
			return err
		}
		desc = chain.ScrollDescriptor{InlineDatum: &chain.InlineDatumScroll{
			BlockPoint: point,
			TxID:       txID,
			TxIx:       reconTxIx,
		}}
	}

	return reconstructAndWrite(ctx, desc, reconOut)
}

func runReconstructCip25(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var desc chain.ScrollDescriptor
	if reconScrollID != "" {
		d, err := descriptorFromCatalog(reconScrollID)
		if err != nil {
			return err
		}
		desc = d
	} else {
		if reconPolicyID == "" {
			return fmt.Errorf("either --scroll or --policy is required")
		}
		startHash, err := hex.DecodeString(reconStartHash)
		if err != nil {
			return fmt.Errorf("--start-hash is not valid hex: %w", err)
		}
		startPoint, err := chain.NewPoint(reconStartSlot, startHash)
		if err != nil {
			return err
		}
		desc = chain.ScrollDescriptor{Cip25Pages: &chain.Cip25PagesScroll{
			PolicyID:          reconPolicyID,
			ManifestAssetName: reconManifestAsset,
			StartPoint:        startPoint,
			MaxScanBlocks:     reconMaxBlocks,
		}}
	}

	return reconstructAndWrite(ctx, desc, reconOut)
}

// inlineBlockPoint returns the caller-pinned block point, or resolves it
// via the HTTP fallback adapter if --block-hash was omitted.
func inlineBlockPoint(ctx context.Context) (chain.Point, error) {
	if reconBlockHash == "" {
		return resolveTxPoint(ctx, reconTxHash)
	}
	hash, err := hex.DecodeString(reconBlockHash)
	if err != nil {
		return chain.Point{}, fmt.Errorf("--block-hash is not valid hex: %w", err)
	}
	return chain.NewPoint(reconBlockSlot, hash)
}

func descriptorFromCatalog(id string) (chain.ScrollDescriptor, error) {
	if catalogPath == "" {
		return chain.ScrollDescriptor{}, fmt.Errorf("--catalog is required to resolve --scroll")
	}
	data, err := os.ReadFile(catalogPath)
	if err != nil {
		return chain.ScrollDescriptor{}, err
	}
	entries, err := catalog.Parse(data)
	if err != nil {
		return chain.ScrollDescriptor{}, err
	}
	entry, err := catalog.Lookup(entries, id)
	if err != nil {
		return chain.ScrollDescriptor{}, err
	}
	return entry.Descriptor, nil
}

func reconstructAndWrite(ctx context.Context, desc chain.ScrollDescriptor, out string) error {
	sess, err := dial(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	result, err := scroll.Reconstruct(ctx, desc, scroll.Deps{ChainSync: sess.ChainSync, BlockFetch: sess.BlockFetch})
	if err != nil {
		return err
	}
	return writeOutput(out, result.Bytes)
}
