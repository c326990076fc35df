package main

import (
	"context"
	"os"

	"github.com/recallion/recallion/internal/config"
	"github.com/recallion/recallion/pkg/log"
	"github.com/spf13/cobra"
)

var (
	debug bool
	owner string
)

var rootCmd = &cobra.Command{
	Use:   "recallion",
	Short: "Recallion — a personal AI memory brain",
	Long:  `Recallion stores free-text memories, enriches them with AI-derived metadata and embeddings, and answers questions grounded in what it remembers.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", config.IsDebug(), "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&owner, "owner", "local", "owner id to operate on")
}

func setupLogger(ctx context.Context) (context.Context, func()) {
	isDebug := debug || config.IsDebug()
	return log.NewContextWithLogger(ctx, isDebug)
}
