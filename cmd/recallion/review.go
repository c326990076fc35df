package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Re-score a batch of recent memories",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		c := newComponents(ctx)
		defer c.db.Close()

		report, err := c.reviewer.Run(ctx, owner)
		if err != nil {
			return fmt.Errorf("review failed: %w", err)
		}

		fmt.Printf("reviewed %d memories\n", report.Reviewed)
		for id, ferr := range report.Failed {
			fmt.Printf("  %s: %v\n", id, ferr)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}
