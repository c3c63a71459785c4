package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/beacnpool/ledger-scrolls/internal/catalog"
)

var listScrollsCmd = &cobra.Command{
	Use:   "list-scrolls",
	Short: "print the catalog's known scrolls",
	RunE:  runListScrolls,
}

func runListScrolls(cmd *cobra.Command, args []string) error {
	if catalogPath == "" {
		return fmt.Errorf("--catalog is required")
	}
	data, err := os.ReadFile(catalogPath)
	if err != nil {
		return err
	}
	entries, err := catalog.Parse(data)
	if err != nil {
		return err
	}
	for _, e := range entries {
		kind := "utxo_datum_bytes_v1"
		if e.Descriptor.Cip25Pages != nil {
			kind = "cip25_pages_v1"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", e.ID, kind)
	}
	return nil
}
