package main

import (
	"fmt"

	"github.com/recallion/recallion/internal/service/enrich"
	"github.com/spf13/cobra"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich [memory-id]",
	Short: "Re-run enrichment for one memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		c := newComponents(ctx)
		defer c.db.Close()

		if err := enrich.NewEnricher(c.store, c.ai).Process(ctx, owner, args[0]); err != nil {
			return fmt.Errorf("enrichment failed: %w", err)
		}

		fmt.Printf("enriched memory %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}
