package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/nao1215/attrguard/internal/report"
	"github.com/spf13/cobra"
)

// errBatchNotFound is returned when a batch ID is not in the history.
var errBatchNotFound = errors.New("batch not found")

// defaultHistoryLimit is the number of batches listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command and its subcommands.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previously scanned batches",
		Long: `History lists the batches saved in the history database, newest first.

Examples:
  # List the last 20 batches
  attrguard history

  # List as JSON
  attrguard history --json --limit 5

  # Print a stored report
  attrguard history show 6f1c2a9e-...`,
		Args: cobra.NoArgs,
		RunE: runHistoryListCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Maximum number of batches to list")
	cmd.Flags().Bool("json", false, "Output JSON")

	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryDeleteCmd())

	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored batch report as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShowCmd,
	}
}

func newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored batch report",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryDeleteCmd,
	}
}

// runHistoryListCmd lists stored batches.
func runHistoryListCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogger(cmd, cfg.Verbose, false)

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	db, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	batches, err := db.ListBatches(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to list batches: %w", err)
	}

	if asJSON {
		_, err := report.NewJSONWriter(cmd.OutOrStdout(), report.WithPrettyPrint()).WriteValue(batches)
		return err
	}

	if len(batches) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No batches recorded yet.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tSCANNER\tURLS\tTHREATS")
	for _, b := range batches {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n",
			b.ID, b.Timestamp.Local().Format(time.DateTime), b.ProviderKind, b.TotalScanned, b.TotalThreats)
	}
	return tw.Flush()
}

// runHistoryShowCmd prints one stored report.
func runHistoryShowCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogger(cmd, cfg.Verbose, false)

	db, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	rep, err := db.GetBatchReport(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load batch: %w", err)
	}
	if rep == nil {
		return fmt.Errorf("%w: %s", errBatchNotFound, args[0])
	}

	_, err = report.NewJSONWriter(cmd.OutOrStdout(), report.WithPrettyPrint()).WriteValue(rep)
	return err
}

// runHistoryDeleteCmd removes one stored report.
func runHistoryDeleteCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogger(cmd, cfg.Verbose, false)

	db, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	rep, err := db.GetBatchReport(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load batch: %w", err)
	}
	if rep == nil {
		return fmt.Errorf("%w: %s", errBatchNotFound, args[0])
	}

	if err := db.DeleteBatch(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted batch %s\n", args[0])
	return nil
}
