package provider

import (
	"fmt"
	"os"
	"os/exec"
)

// browserCandidates are the executable names searched on PATH, in order.
var browserCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
	"headless-shell",
}

// Capability describes whether the live provider can be used.
// It is computed once at process start and never changes afterwards.
type Capability struct {
	// LiveAvailable is true when a browser executable was found.
	LiveAvailable bool

	// BrowserPath is the resolved browser executable.
	BrowserPath string

	// Reason explains why the live provider is unavailable.
	Reason string
}

// ProbeOptions configures Probe.
type ProbeOptions struct {
	// BrowserPath is an explicit executable path that takes precedence over PATH lookup.
	BrowserPath string

	// LookPath resolves executable names. Defaults to exec.LookPath.
	LookPath func(file string) (string, error)
}

// Probe looks for a Chrome/Chromium executable.
func Probe(opts ProbeOptions) Capability {
	lookPath := opts.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	if opts.BrowserPath != "" {
		info, err := os.Stat(opts.BrowserPath)
		if err != nil {
			return Capability{Reason: fmt.Sprintf("configured browser %q not found: %v", opts.BrowserPath, err)}
		}
		if info.IsDir() {
			return Capability{Reason: fmt.Sprintf("configured browser %q is a directory", opts.BrowserPath)}
		}
		return Capability{LiveAvailable: true, BrowserPath: opts.BrowserPath}
	}

	for _, name := range browserCandidates {
		if path, err := lookPath(name); err == nil {
			return Capability{LiveAvailable: true, BrowserPath: path}
		}
	}
	return Capability{Reason: "no Chrome or Chromium executable found on PATH"}
}
