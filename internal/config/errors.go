package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so that callers can use
// errors.Is() while still printing a human-readable message.
var (
	// ErrInvalidMode is returned when the provider mode is unknown.
	ErrInvalidMode = errors.New("invalid mode: must be auto or simulated")

	// ErrInvalidTimeout is returned when the batch timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidURLTimeout is returned when the per-URL timeout is not positive.
	ErrInvalidURLTimeout = errors.New("invalid URL timeout: must be positive")

	// ErrInvalidSinkTimeout is returned when the report write timeout is not positive.
	ErrInvalidSinkTimeout = errors.New("invalid sink timeout: must be positive")

	// ErrInvalidConcurrency is returned when concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidFormat is returned when the output format is unknown.
	ErrInvalidFormat = errors.New("invalid format: must be json, markdown or text")

	// ErrInvalidLatency is returned when the simulated latency range is negative or inverted.
	ErrInvalidLatency = errors.New("invalid simulated latency: min must be non-negative and not above max")

	// ErrNoOutputDir is returned when no report directory is configured.
	ErrNoOutputDir = errors.New("no output directory configured")
)
