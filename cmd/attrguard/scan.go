package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/nao1215/attrguard/internal/config"
	"github.com/nao1215/attrguard/internal/model"
	"github.com/nao1215/attrguard/internal/pipeline"
	"github.com/nao1215/attrguard/internal/report"
	"github.com/spf13/cobra"
)

// errScanFailed is returned with --fail-on-error when the batch failed.
var errScanFailed = errors.New("scan failed")

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url...]",
		Short: "Scan URLs for cookie stuffing and affiliate fraud",
		Long: `Scan loads each URL and looks for attribution hijacking signals:
- hidden iframes (display:none, 1x1 frames, hidden attribute)
- third-party requests carrying affiliate or tracking markers
- affiliate cookies set by the page

Each URL is classified as clean, low, medium or high risk. The report is
written to stdout and every detection is saved as a CSV file in the output
directory. Exactly one document is printed even when the scan fails; for
JSON it carries "success": false and the error message.

Examples:
  # Scan a few URLs
  attrguard scan https://shop.example/deal https://blog.example/review

  # Pass URLs as a JSON array
  attrguard scan --urls-json '["https://shop.example/deal"]'

  # Read URLs from a file (one per line, # starts a comment)
  attrguard scan --list urls.txt --format markdown

  # Deterministic simulated scan
  attrguard scan --simulate --seed 42 https://shop.example/track`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Input flags
	cmd.Flags().String("urls-json", "", "URLs as a JSON array string")
	cmd.Flags().StringP("list", "l", "", "File with one URL per line")

	// Provider flags
	cmd.Flags().Bool("simulate", false, "Force the simulated scanner")
	cmd.Flags().Uint64("seed", 0, "Seed for the simulated scanner")
	cmd.Flags().Duration("sim-min-latency", config.DefaultSimMinLatency, "Minimum simulated per-URL latency")
	cmd.Flags().Duration("sim-max-latency", config.DefaultSimMaxLatency, "Maximum simulated per-URL latency")
	cmd.Flags().String("browser", "", "Chrome/Chromium executable (default: searched on PATH)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent, "User agent for the headless browser")

	// Scan behaviour flags
	cmd.Flags().IntP("concurrency", "b", config.DefaultConcurrency, "Number of URLs scanned at once")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Timeout for the whole batch")
	cmd.Flags().Duration("url-timeout", config.DefaultURLTimeout, "Timeout for loading one page")
	cmd.Flags().Duration("sink-timeout", config.DefaultSinkTimeout, "Timeout for writing the CSV report")

	// Report flags
	cmd.Flags().StringP("output-dir", "o", "", "Directory for CSV reports (default: XDG data dir)")
	cmd.Flags().StringP("format", "f", config.DefaultFormat, "Output format: json, markdown or text")
	cmd.Flags().Bool("no-history", false, "Do not save the batch to the history database")
	cmd.Flags().Bool("fail-on-error", false, "Exit non-zero when the scan fails")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return finishScan(cmd, fallbackConfig(cmd), model.Failed(&model.ScanError{Message: err.Error(), Cause: err}))
	}
	logger := setupLogger(cmd, cfg.Verbose, false)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	var outcome model.Outcome
	urls, scanErr := collectURLs(cmd, args)
	if scanErr != nil {
		outcome = model.Failed(scanErr)
	} else {
		orch, closeHistory, err := newOrchestrator(cfg, logger)
		if err != nil {
			return finishScan(cmd, cfg, model.Failed(model.NewScanError("configuration error", err)))
		}
		defer closeHistory()
		outcome = orch.Run(ctx, urls)
	}

	return finishScan(cmd, cfg, outcome)
}

// finishScan prints the outcome and maps a failed batch to an error only
// when --fail-on-error is set.
func finishScan(cmd *cobra.Command, cfg *config.Config, outcome model.Outcome) error {
	if err := writeOutcome(cmd.OutOrStdout(), cfg, outcome); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	failOnError, err := cmd.Flags().GetBool("fail-on-error")
	if err != nil {
		return err
	}
	if failOnError && !outcome.OK() {
		return fmt.Errorf("%w: %w", errScanFailed, outcome.Err)
	}
	return nil
}

// fallbackConfig is used to render the failure document when the
// configuration could not be loaded. The output is always JSON.
func fallbackConfig(cmd *cobra.Command) *config.Config {
	cfg := config.NewConfig()
	cfg.Format = config.DefaultFormat
	cfg.Verbose = getVerboseFlag(cmd)
	return cfg
}

// collectURLs merges --urls-json, --list and positional arguments in that
// order. When none is given the list is nil, which the orchestrator reports
// as missing input.
func collectURLs(cmd *cobra.Command, args []string) ([]string, *model.ScanError) {
	var (
		urls  []string
		given bool
	)

	raw, err := cmd.Flags().GetString("urls-json")
	if err != nil {
		return nil, model.NewScanError("invalid flags", err)
	}
	if cmd.Flags().Changed("urls-json") {
		given = true
		parsed, scanErr := pipeline.ParseURLList([]byte(raw))
		if scanErr != nil {
			return nil, scanErr
		}
		urls = append(urls, parsed...)
	}

	listPath, err := cmd.Flags().GetString("list")
	if err != nil {
		return nil, model.NewScanError("invalid flags", err)
	}
	if listPath != "" {
		given = true
		listed, err := readURLFile(listPath)
		if err != nil {
			return nil, model.NewScanError("failed to read URL list", err)
		}
		urls = append(urls, listed...)
	}

	if len(args) > 0 {
		given = true
		urls = append(urls, args...)
	}

	if given && urls == nil {
		urls = []string{}
	}
	return urls, nil
}

// readURLFile reads one URL per line, skipping blank lines and # comments.
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided list path is intentional
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseURLLines(f)
}

func parseURLLines(r io.Reader) ([]string, error) {
	urls := []string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

// writeOutcome renders the outcome in the configured format.
func writeOutcome(w io.Writer, cfg *config.Config, outcome model.Outcome) error {
	var writer report.Writer
	switch report.Format(cfg.Format) {
	case report.FormatText:
		writer = report.NewSimpleWriter(w,
			report.WithVerbose(cfg.Verbose),
			report.WithColor(w == os.Stdout && !color.NoColor),
		)
	default:
		writer = report.New(report.Format(cfg.Format), w)
	}
	_, err := writer.Write(outcome)
	return err
}
