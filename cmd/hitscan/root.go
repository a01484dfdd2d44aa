package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	hlog "github.com/nao1215/hitscan/internal/log"
	"github.com/nao1215/hitscan/internal/report"
)

// NewRootCmd creates the root command for hitscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hitscan",
		Short: "Collect bonus hit history from pachinko/slot hall sites",
		Long: `hitscan crawls the machine listing of a hall site, follows every card to
the machine detail views and extracts the BIG/REG bonus history of each
machine number. Results are written as CSV files, summarized per machine
and kept in a local history database.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	report.Version = getVersion()
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getLogFlags retrieves the logging flags from the command or its parents.
func getLogFlags(cmd *cobra.Command) (verbose, jsonOutput bool) {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, _ = cmd.Root().PersistentFlags().GetBool("verbose") //nolint:errcheck // defined on root
	}
	jsonOutput, err = cmd.Flags().GetBool("log-json")
	if err != nil {
		jsonOutput, _ = cmd.Root().PersistentFlags().GetBool("log-json") //nolint:errcheck // defined on root
	}
	return verbose, jsonOutput
}

// setupLogger creates the secure logger for a command and makes it the
// default.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	verbose, jsonOutput := getLogFlags(cmd)
	logger := hlog.New(cmd.ErrOrStderr(), verbose, jsonOutput)
	slog.SetDefault(logger)
	return logger
}
