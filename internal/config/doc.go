// Package config provides configuration structures and utilities for attrguard.
// It defines the options for provider selection, scan timeouts, report
// persistence and the HTTP server, plus the YAML configuration file loader.
package config
