package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tipCmd = &cobra.Command{
	Use:   "tip",
	Short: "print the relay's current chain tip",
	RunE:  runTip,
}

func runTip(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, err := dial(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	_, tip, _, err := sess.ChainSync.FindIntersect(ctx, nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (block %d)\n", tip.Point.String(), tip.BlockNo)
	return nil
}
