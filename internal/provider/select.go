package provider

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/attrguard/internal/model"
)

// Mode controls provider selection.
type Mode string

const (
	// ModeAuto uses the live provider when available, simulated otherwise.
	ModeAuto Mode = "auto"

	// ModeSimulated always uses the simulated provider.
	ModeSimulated Mode = "simulated"
)

// ParseMode converts a string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAuto, ModeSimulated:
		return Mode(s), nil
	case "":
		return ModeAuto, nil
	default:
		return "", fmt.Errorf("unknown provider mode %q (expected auto or simulated)", s)
	}
}

// Selection is the provider chosen for a process. It is fixed once made.
type Selection struct {
	Provider Provider
	Kind     model.ProviderKind
	Status   string
}

// SelectOptions carries the settings passed to the provider that gets built.
type SelectOptions struct {
	Logger        *slog.Logger
	UserAgent     string
	Concurrency   int
	URLTimeout    time.Duration
	Seed          uint64
	SimMinLatency time.Duration
	SimMaxLatency time.Duration
}

// Select picks a provider from a capability and mode.
// Unavailability of the live provider is never an error; the downgrade is
// recorded in Kind and Status.
func Select(cap Capability, mode Mode, opts SelectOptions) Selection {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if mode != ModeSimulated && cap.LiveAvailable {
		return Selection{
			Provider: NewLive(cap.BrowserPath,
				WithLiveLogger(logger),
				WithUserAgent(opts.UserAgent),
				WithLiveConcurrency(opts.Concurrency),
				WithURLTimeout(opts.URLTimeout),
			),
			Kind:   model.ProviderLive,
			Status: fmt.Sprintf("Real scanner (headless browser at %s)", cap.BrowserPath),
		}
	}

	status := "Simulated scanner (forced)"
	if mode != ModeSimulated {
		status = "Simulated scanner (" + cap.Reason + ")"
		logger.Warn("live scanner unavailable, falling back to simulated scanner", "reason", cap.Reason)
	}
	return Selection{
		Provider: NewSimulated(
			WithSeed(opts.Seed),
			WithLatency(opts.SimMinLatency, opts.SimMaxLatency),
			WithSimulatedConcurrency(opts.Concurrency),
		),
		Kind:   model.ProviderSimulated,
		Status: status,
	}
}
