package main

import (
	"fmt"
	"log/slog"

	"github.com/nao1215/attrguard/internal/config"
	"github.com/nao1215/attrguard/internal/database"
	"github.com/nao1215/attrguard/internal/pipeline"
	"github.com/nao1215/attrguard/internal/provider"
	"github.com/nao1215/attrguard/internal/report"
)

// newOrchestrator probes for a browser, selects a provider and wires the CSV
// sink and batch history. The returned closer releases the history database.
//
// A history database that cannot be opened is logged and skipped: losing
// history never prevents a scan.
func newOrchestrator(cfg *config.Config, logger *slog.Logger) (*pipeline.Orchestrator, func(), error) {
	mode, err := provider.ParseMode(cfg.Mode)
	if err != nil {
		return nil, nil, err
	}

	capability := provider.Probe(provider.ProbeOptions{BrowserPath: cfg.BrowserPath})
	selection := provider.Select(capability, mode, provider.SelectOptions{
		Logger:        logger,
		UserAgent:     cfg.UserAgent,
		Concurrency:   cfg.Concurrency,
		URLTimeout:    cfg.URLTimeout,
		Seed:          cfg.Seed,
		SimMinLatency: cfg.SimMinLatency,
		SimMaxLatency: cfg.SimMaxLatency,
	})
	logger.Info("provider selected", "kind", string(selection.Kind), "status", selection.Status)

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithSink(report.NewCSVSink(cfg.OutputDir)),
		pipeline.WithSinkTimeout(cfg.SinkTimeout),
	}

	closer := func() {}
	if cfg.SaveHistory {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("batch history disabled", "dir", cfg.DBDir, "error", err)
		} else {
			opts = append(opts, pipeline.WithHistory(db))
			closer = func() {
				if err := db.Close(); err != nil {
					logger.Error("failed to close history database", "error", err)
				}
			}
		}
	}

	return pipeline.New(selection, opts...), closer, nil
}

// openHistory opens the batch history database for reading.
func openHistory(cfg *config.Config) (*database.HistoryDB, error) {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return db, nil
}
