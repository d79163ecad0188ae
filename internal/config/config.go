package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "attrguard"

	// DefaultMode selects the live scanner when a browser is installed.
	DefaultMode = "auto"

	// DefaultConcurrency is the number of URLs scanned at once.
	// Each live URL opens a browser tab, so this stays small.
	DefaultConcurrency = 4

	// DefaultTimeout bounds a whole batch.
	DefaultTimeout = 10 * time.Minute

	// DefaultURLTimeout bounds loading a single page in the live scanner.
	DefaultURLTimeout = 30 * time.Second

	// DefaultSinkTimeout bounds writing the CSV report.
	DefaultSinkTimeout = 10 * time.Second

	// DefaultFormat is the stdout document format.
	DefaultFormat = "json"

	// DefaultSimMinLatency and DefaultSimMaxLatency bound the simulated per-URL delay.
	DefaultSimMinLatency = 500 * time.Millisecond
	DefaultSimMaxLatency = 2 * time.Second

	// DefaultServeAddr is the HTTP API listen address.
	DefaultServeAddr = ":3001"

	// DefaultUserAgent is sent by the headless browser.
	// Empty keeps the browser's own user agent.
	DefaultUserAgent = ""
)

// validFormats lists the accepted values of Config.Format.
var validFormats = map[string]struct{}{
	"json":     {},
	"markdown": {},
	"text":     {},
}

// Config holds all configuration options for attrguard.
// It is populated from defaults, the configuration file and CLI flags, in
// that order, and passed through the application explicitly.
type Config struct {
	// Mode is the provider mode: "auto" or "simulated".
	Mode string

	// BrowserPath is an explicit Chrome/Chromium executable.
	// When empty, well-known executable names are looked up on PATH.
	BrowserPath string

	// UserAgent overrides the browser user agent.
	UserAgent string

	// Concurrency is the number of URLs scanned at once.
	Concurrency int

	// Timeout bounds a whole batch. Exceeding it fails the batch.
	Timeout time.Duration

	// URLTimeout bounds loading one page. Exceeding it yields no detections
	// for that URL but does not fail the batch.
	URLTimeout time.Duration

	// SinkTimeout bounds writing the CSV report.
	SinkTimeout time.Duration

	// OutputDir is the directory that receives CSV reports.
	// Defaults to the XDG data directory (~/.local/share/attrguard/reports on Linux).
	OutputDir string

	// DBDir is the directory of the batch history database.
	DBDir string

	// SaveHistory enables saving finished batches to the history database.
	SaveHistory bool

	// Format is the stdout document format: json, markdown or text.
	Format string

	// Seed makes the simulated scanner deterministic.
	Seed uint64

	// SimMinLatency and SimMaxLatency bound the simulated per-URL delay.
	SimMinLatency time.Duration
	SimMaxLatency time.Duration

	// ServeAddr is the HTTP API listen address.
	ServeAddr string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .attrguard in the current directory
	// and then in the user's home directory.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Mode:          DefaultMode,
		UserAgent:     DefaultUserAgent,
		Concurrency:   DefaultConcurrency,
		Timeout:       DefaultTimeout,
		URLTimeout:    DefaultURLTimeout,
		SinkTimeout:   DefaultSinkTimeout,
		OutputDir:     DefaultReportDir(),
		DBDir:         XDGDataDir(),
		SaveHistory:   true,
		Format:        DefaultFormat,
		SimMinLatency: DefaultSimMinLatency,
		SimMaxLatency: DefaultSimMaxLatency,
		ServeAddr:     DefaultServeAddr,
	}
}

// XDGDataDir returns the XDG data directory for attrguard.
// On Linux: ~/.local/share/attrguard
// On macOS: ~/Library/Application Support/attrguard
// On Windows: %LOCALAPPDATA%\attrguard
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for attrguard.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultReportDir returns the default CSV report directory.
func DefaultReportDir() string {
	return filepath.Join(XDGDataDir(), "reports")
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if c.Mode != "auto" && c.Mode != "simulated" {
		return ErrInvalidMode
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.URLTimeout <= 0 {
		return ErrInvalidURLTimeout
	}

	if c.SinkTimeout <= 0 {
		return ErrInvalidSinkTimeout
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if _, ok := validFormats[c.Format]; !ok {
		return ErrInvalidFormat
	}

	if c.SimMinLatency < 0 || c.SimMaxLatency < c.SimMinLatency {
		return ErrInvalidLatency
	}

	if c.OutputDir == "" {
		return ErrNoOutputDir
	}

	return nil
}
