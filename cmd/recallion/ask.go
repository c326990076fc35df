package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/recallion/recallion/internal/core"
	"github.com/recallion/recallion/internal/service/chat"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question grounded in stored memories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		c := newComponents(ctx)
		defer c.db.Close()

		question := strings.Join(args, " ")
		history := []core.ChatMessage{{Role: core.RoleUser, Content: question}}

		body, err := c.chatSvc.Stream(ctx, owner, history)
		if err != nil {
			return fmt.Errorf("failed to start chat stream: %w", err)
		}

		transcript := chat.NewTranscript(history)
		_, err = chat.Consume(ctx, body, transcript, func(delta string) error {
			_, werr := fmt.Print(delta)
			return werr
		})
		fmt.Println()
		if err != nil && !chat.IsCancellation(err) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
