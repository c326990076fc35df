package main

import (
	"fmt"
	"strings"

	"github.com/recallion/recallion/internal/core"
	"github.com/recallion/recallion/internal/service/enrich"
	"github.com/recallion/recallion/pkg/log"
	"github.com/spf13/cobra"
)

var rememberCmd = &cobra.Command{
	Use:   "remember [text]",
	Short: "Store a new memory and enrich it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		c := newComponents(ctx)
		defer c.db.Close()

		m := core.Memory{
			OwnerID: owner,
			Content: strings.Join(args, " "),
		}
		if err := c.store.Insert(ctx, &m); err != nil {
			return fmt.Errorf("failed to store memory: %w", err)
		}

		// Enrichment runs inline here; the process would exit before a
		// background task finished.
		if err := enrich.NewEnricher(c.store, c.ai).Process(ctx, owner, m.ID); err != nil {
			log.FromCtx(ctx).Warn().Err(err).Msg("memory stored but enrichment failed")
		}

		fmt.Printf("stored memory %s\n", m.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rememberCmd)
}
