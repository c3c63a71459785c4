package main

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// defaultNetworkMagic is mainnet's, per spec.md §6.
const defaultNetworkMagic = 764824073

var (
	topologyPath string
	catalogPath  string
	logger       = logrus.StandardLogger()
)

var rootCmd = &cobra.Command{
	Use:   "ledger-scrolls",
	Short: "reconstruct scrolls published on the Cardano chain",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&topologyPath, "topology", "", "path to topology JSON (relay list)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "path to catalog JSON (known scrolls)")

	rootCmd.AddCommand(listScrollsCmd)
	rootCmd.AddCommand(tipCmd)
	rootCmd.AddCommand(fetchBlockCmd)
	rootCmd.AddCommand(reconstructUtxoCmd)
	rootCmd.AddCommand(reconstructCip25Cmd)
}

// networkMagic reads CARDANO_NETWORK_MAGIC, falling back to mainnet.
func networkMagic() uint32 {
	s := os.Getenv("CARDANO_NETWORK_MAGIC")
	if s == "" {
		return defaultNetworkMagic
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		logger.WithField("value", s).Warn("CARDANO_NETWORK_MAGIC is not a valid number, using mainnet default")
		return defaultNetworkMagic
	}
	return uint32(n)
}
