package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nao1215/attrguard/internal/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for attrguard.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attrguard",
		Short: "Batch scanner for affiliate fraud and cookie stuffing",
		Long: `attrguard scans web pages for attribution hijacking: hidden iframes,
third-party tracking requests and affiliate cookies dropped without any user
interaction.

Pages are loaded in a headless Chrome/Chromium when one is installed.
Without a browser, attrguard falls back to a simulated scanner and says so
in every report.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .attrguard in current or home directory)")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the process logger on stderr and installs it as default.
// stdout is reserved for the report document.
func setupLogger(cmd *cobra.Command, verbose, jsonLogs bool) *slog.Logger {
	var logger *slog.Logger
	if jsonLogs {
		logger = log.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	} else {
		logger = log.NewSecureLogger(cmd.ErrOrStderr(), verbose)
	}
	slog.SetDefault(logger)
	return logger
}
