// Command ledger-scrolls is a thin front end over the chain-reading
// engine: enough of a CLI to dial a relay, fetch a block, and
// reconstruct a scroll, exercising the internal packages end to end.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
