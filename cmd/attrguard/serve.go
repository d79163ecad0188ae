package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/attrguard/internal/config"
	"github.com/nao1215/attrguard/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scan HTTP API",
		Long: `Serve starts an HTTP API for background batch scans.

Endpoints:
  GET  /health               liveness check
  POST /api/scan             start a scan, body {"urls": [...]}
  GET  /api/scan/:id         scan status and results
  GET  /api/scan/:id/csv     download the CSV report

The listen address defaults to :3001. When --addr is not given, the PORT
environment variable is honoured.

Examples:
  attrguard serve
  PORT=8080 attrguard serve --simulate`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().String("addr", config.DefaultServeAddr, "Listen address")
	cmd.Flags().Bool("simulate", false, "Force the simulated scanner")
	cmd.Flags().StringP("output-dir", "o", "", "Directory for CSV reports (default: XDG data dir)")
	cmd.Flags().Bool("no-history", false, "Do not save batches to the history database")
	cmd.Flags().Bool("log-json", false, "Write logs as JSON")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	jsonLogs, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg.Verbose, jsonLogs)

	if !cmd.Flags().Changed("addr") {
		cfg.ServeAddr = listenAddr(cfg.ServeAddr, os.Getenv("PORT"))
	}

	if cfg.Verbose {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	orch, closeHistory, err := newOrchestrator(cfg, logger)
	if err != nil {
		return err
	}
	defer closeHistory()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(orch,
		server.WithLogger(logger),
		server.WithScanTimeout(cfg.Timeout),
	)
	return srv.ListenAndServe(ctx, cfg.ServeAddr)
}

// listenAddr returns ":"+port when port is set, otherwise addr.
func listenAddr(addr, port string) string {
	if port != "" {
		return ":" + port
	}
	return addr
}
