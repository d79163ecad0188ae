package main

import (
	"fmt"
	"time"

	"github.com/nao1215/attrguard/internal/config"
	"github.com/spf13/cobra"
)

// loadConfig builds the configuration from defaults, the configuration file
// and the flags the user set explicitly, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if err := overrideFromFlags(cmd, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// overrideFromFlags copies changed flags onto cfg. Flags a command does not
// define are skipped.
func overrideFromFlags(cmd *cobra.Command, cfg *config.Config) error {
	strs := map[string]*string{
		"browser":    &cfg.BrowserPath,
		"user-agent": &cfg.UserAgent,
		"output-dir": &cfg.OutputDir,
		"format":     &cfg.Format,
		"addr":       &cfg.ServeAddr,
	}
	for name, dst := range strs {
		if !changed(cmd, name) {
			continue
		}
		v, err := cmd.Flags().GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	durations := map[string]*time.Duration{
		"timeout":         &cfg.Timeout,
		"url-timeout":     &cfg.URLTimeout,
		"sink-timeout":    &cfg.SinkTimeout,
		"sim-min-latency": &cfg.SimMinLatency,
		"sim-max-latency": &cfg.SimMaxLatency,
	}
	for name, dst := range durations {
		if !changed(cmd, name) {
			continue
		}
		v, err := cmd.Flags().GetDuration(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	if changed(cmd, "concurrency") {
		v, err := cmd.Flags().GetInt("concurrency")
		if err != nil {
			return err
		}
		cfg.Concurrency = v
	}

	if changed(cmd, "seed") {
		v, err := cmd.Flags().GetUint64("seed")
		if err != nil {
			return err
		}
		cfg.Seed = v
	}

	if simulate, _ := cmd.Flags().GetBool("simulate"); simulate { //nolint:errcheck // flag is optional per command
		cfg.Mode = "simulated"
	}
	if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory { //nolint:errcheck // flag is optional per command
		cfg.SaveHistory = false
	}

	return nil
}

func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}
