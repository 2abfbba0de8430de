// Package cmd provides the rewritectl commands.
package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/logger"
)

// NewRootCmd creates the rewritectl root command.
func NewRootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "rewritectl",
		Short: "Inspect and tune multi-term query rewriting",
		Long: `rewritectl explains how prefix, wildcard and range patterns are rewritten
against an index and reads or changes the rewrite settings of a running
search service.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Setup(logLevel, "text")
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newExplainCmd())
	cmd.AddCommand(newSettingsCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	root := NewRootCmd()
	root.SetOut(os.Stdout)
	return root.ExecuteContext(context.Background())
}
