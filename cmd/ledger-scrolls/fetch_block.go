package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/beacnpool/ledger-scrolls/internal/chain"
)

var (
	fetchBlockSlot uint64
	fetchBlockHash string
	fetchBlockOut  string
)

var fetchBlockCmd = &cobra.Command{
	Use:   "fetch-block",
	Short: "fetch exactly one block body by point",
	RunE:  runFetchBlock,
}

func init() {
	fetchBlockCmd.Flags().Uint64Var(&fetchBlockSlot, "slot", 0, "block slot")
	fetchBlockCmd.Flags().StringVar(&fetchBlockHash, "hash", "", "block header hash, hex")
	fetchBlockCmd.Flags().StringVar(&fetchBlockOut, "out", "", "output file (defaults to stdout)")
	_ = fetchBlockCmd.MarkFlagRequired("hash")
}

func runFetchBlock(cmd *cobra.Command, args []string) error {
	hash, err := hex.DecodeString(fetchBlockHash)
	if err != nil {
		return fmt.Errorf("--hash is not valid hex: %w", err)
	}
	point, err := chain.NewPoint(fetchBlockSlot, hash)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	sess, err := dial(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	body, err := sess.BlockFetch.FetchBlock(ctx, point)
	if err != nil {
		return err
	}
	if body == nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Block not found on relay for this point.")
		os.Exit(2)
	}

	return writeOutput(fetchBlockOut, body)
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
