package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".attrguard"

// XDGConfigFile is the configuration file name inside the XDG config directory.
const XDGConfigFile = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .attrguard configuration file.
// Pointer fields distinguish "unset" from zero values so that only the
// keys present in the file override defaults.
type File struct {
	Mode        *string `yaml:"mode,omitempty"`
	BrowserPath *string `yaml:"browserPath,omitempty"`
	UserAgent   *string `yaml:"userAgent,omitempty"`
	Concurrency *int    `yaml:"concurrency,omitempty"`
	Timeout     *string `yaml:"timeout,omitempty"`
	URLTimeout  *string `yaml:"urlTimeout,omitempty"`
	SinkTimeout *string `yaml:"sinkTimeout,omitempty"`
	OutputDir   *string `yaml:"outputDir,omitempty"`
	DBDir       *string `yaml:"dbDir,omitempty"`
	SaveHistory *bool   `yaml:"saveHistory,omitempty"`
	Format      *string `yaml:"format,omitempty"`
	Seed        *uint64 `yaml:"seed,omitempty"`
	ServeAddr   *string `yaml:"serveAddr,omitempty"`

	// Simulated holds the simulated scanner settings.
	Simulated struct {
		MinLatency *string `yaml:"minLatency,omitempty"`
		MaxLatency *string `yaml:"maxLatency,omitempty"`
	} `yaml:"simulated,omitempty"`
}

// LoadConfigFile loads a configuration file from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .attrguard in the current directory
// 3. Look for .attrguard in the user's home directory
// 4. Look for config.yaml in the XDG config directory (~/.config/attrguard on Linux)
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), XDGConfigFile)
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}

// Apply overlays the values present in the file onto cfg.
func (cf *File) Apply(cfg *Config) error {
	setString(&cfg.Mode, cf.Mode)
	setString(&cfg.BrowserPath, cf.BrowserPath)
	setString(&cfg.UserAgent, cf.UserAgent)
	setString(&cfg.OutputDir, cf.OutputDir)
	setString(&cfg.DBDir, cf.DBDir)
	setString(&cfg.Format, cf.Format)
	setString(&cfg.ServeAddr, cf.ServeAddr)

	if cf.Concurrency != nil {
		cfg.Concurrency = *cf.Concurrency
	}
	if cf.SaveHistory != nil {
		cfg.SaveHistory = *cf.SaveHistory
	}
	if cf.Seed != nil {
		cfg.Seed = *cf.Seed
	}

	durations := []struct {
		key string
		src *string
		dst *time.Duration
	}{
		{"timeout", cf.Timeout, &cfg.Timeout},
		{"urlTimeout", cf.URLTimeout, &cfg.URLTimeout},
		{"sinkTimeout", cf.SinkTimeout, &cfg.SinkTimeout},
		{"simulated.minLatency", cf.Simulated.MinLatency, &cfg.SimMinLatency},
		{"simulated.maxLatency", cf.Simulated.MaxLatency, &cfg.SimMaxLatency},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.key, *d.src, err)
		}
		*d.dst = v
	}

	return nil
}

// Load builds a Config from defaults and the configuration file.
// An explicitly given path that does not exist is an error; a missing
// default file is not.
func Load(configPath string) (*Config, error) {
	cfg := NewConfig()

	path := FindConfigFile(configPath)
	if path == "" {
		if configPath != "" {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return cfg, nil
	}

	cf, err := LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	if err := cf.Apply(cfg); err != nil {
		return nil, err
	}
	cfg.ConfigFilePath = path

	return cfg, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
