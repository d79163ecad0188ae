package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/attrguard/internal/model"
	"github.com/nao1215/attrguard/internal/provider"
	"github.com/nao1215/attrguard/internal/report"
)

// StateObserver is notified of every state transition of a batch.
// It is called synchronously from the goroutine running the batch.
type StateObserver func(from, to State)

// Orchestrator drives one batch at a time through the state machine:
// Init -> ProviderSelected -> Scanning -> Aggregating -> Classifying ->
// Reporting -> Done, with Failed reachable from the first three states.
// The provider selection is fixed for the orchestrator's lifetime.
// Run may be called concurrently; each call keeps its own state.
type Orchestrator struct {
	selection   provider.Selection
	sink        report.Sink
	history     HistoryStore
	sinkTimeout time.Duration
	now         func() time.Time
	newID       func() string
	observer    StateObserver
	logger      *slog.Logger
}

// Option is a function that configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a custom logger for the orchestrator.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithSink sets the CSV report destination. Without a sink no artifact is written.
func WithSink(sink report.Sink) Option {
	return func(o *Orchestrator) {
		o.sink = sink
	}
}

// WithHistory enables saving finished reports to a history store.
func WithHistory(h HistoryStore) Option {
	return func(o *Orchestrator) {
		o.history = h
	}
}

// WithSinkTimeout bounds the CSV write.
func WithSinkTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.sinkTimeout = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithBatchIDs overrides batch ID generation.
func WithBatchIDs(newID func() string) Option {
	return func(o *Orchestrator) {
		o.newID = newID
	}
}

// WithStateObserver registers a callback for state transitions.
func WithStateObserver(observer StateObserver) Option {
	return func(o *Orchestrator) {
		o.observer = observer
	}
}

// New creates an Orchestrator bound to a provider selection.
func New(selection provider.Selection, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		selection:   selection,
		sinkTimeout: DefaultSinkTimeout,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}

	return o
}

func (o *Orchestrator) assembler(enter func(State)) *Assembler {
	return NewAssembler(o.sink,
		withStageHook(enter),
		WithAssemblerLogger(o.logger),
		WithAssemblerHistory(o.history),
		WithAssemblerSinkTimeout(o.sinkTimeout),
		WithAssemblerClock(o.now),
		WithIDGenerator(o.newID),
	)
}

// batchRun holds the per-call state of Run.
type batchRun struct {
	o     *Orchestrator
	state State
}

func (r *batchRun) moveTo(next State) {
	if !r.state.CanTransition(next) {
		panic(fmt.Sprintf("illegal state transition %s -> %s", r.state, next))
	}
	r.set(next)
}

func (r *batchRun) set(next State) {
	prev := r.state
	r.state = next
	r.o.logger.Debug("batch state changed", "from", prev.String(), "to", next.String())
	if r.o.observer != nil {
		r.o.observer(prev, next)
	}
}

// abort moves the run to Failed after a panic. Stages after Scanning have no
// failure edge, so a panic there is a programming defect and the transition
// table is skipped on purpose.
func (r *batchRun) abort() {
	if !r.state.IsTerminal() {
		r.set(StateFailed)
	}
}

func (r *batchRun) fail(err *model.ScanError) model.Outcome {
	r.moveTo(StateFailed)
	r.o.logger.Warn("batch failed", "error", err.Message)
	return model.Failed(err)
}

// Run scans the URLs and returns exactly one Outcome. It never panics.
//
// A nil list is rejected as missing input. An empty list yields an empty
// report without calling the provider or writing a CSV artifact.
func (o *Orchestrator) Run(ctx context.Context, urls []string) (out model.Outcome) {
	r := &batchRun{o: o, state: StateInit}
	startedAt := o.now()

	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("batch aborted by internal error", "panic", rec)
			r.abort()
			out = model.Failed(model.NewScanError(fmt.Sprintf("internal error: %v", rec), nil))
		}
	}()

	if err := ValidateURLs(urls); err != nil {
		return r.fail(err)
	}

	asm := o.assembler(r.moveTo)

	if len(urls) == 0 {
		rep := asm.Empty(o.selection.Kind)
		rep.ProviderStatus = o.selection.Status
		rep.StartedAt = startedAt
		r.moveTo(StateDone)
		return model.Succeeded(rep)
	}

	r.moveTo(StateProviderSelected)
	if err := ctx.Err(); err != nil {
		return r.fail(model.NewScanError("scan cancelled", err))
	}

	r.moveTo(StateScanning)
	unique := Unique(urls)
	o.logger.Info("scanning batch",
		"urls", len(urls),
		"unique", len(unique),
		"provider", string(o.selection.Kind),
	)
	detections, err := o.selection.Provider.Scan(ctx, unique)
	if err != nil {
		return r.fail(model.NewScanError("scan failed", err))
	}

	rep := asm.Assemble(ctx, urls, detections, o.selection.Kind)
	rep.ProviderStatus = o.selection.Status
	rep.StartedAt = startedAt
	if err := rep.Validate(); err != nil {
		panic(err)
	}
	asm.Record(ctx, rep)

	r.moveTo(StateDone)
	o.logger.Info("batch completed",
		"id", rep.ID,
		"total_scanned", rep.TotalScanned,
		"total_threats", rep.TotalThreats,
		"csv_file", rep.ReportPath,
	)
	return model.Succeeded(rep)
}

// ValidateURLs checks the input list. A nil list is missing input; blank or
// non-absolute http(s) entries are rejected with their index.
func ValidateURLs(urls []string) *model.ScanError {
	if urls == nil {
		return model.NewScanError("no URLs provided", nil)
	}
	for i, raw := range urls {
		if strings.TrimSpace(raw) == "" {
			return model.NewScanError(fmt.Sprintf("URL at index %d is empty", i), nil)
		}
		if !IsValidURL(raw) {
			return model.NewScanError(fmt.Sprintf("invalid URL at index %d: %q", i, raw), nil)
		}
	}
	return nil
}

// IsValidURL reports whether raw is an absolute http or https URL with a host.
func IsValidURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// Unique returns the distinct URLs in order of first appearance.
func Unique(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// ParseURLList decodes a JSON array of URL strings. JSON null decodes to a
// nil list, which Run rejects as missing input.
func ParseURLList(raw []byte) ([]string, *model.ScanError) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, model.NewScanError("no URLs provided", nil)
	}
	var urls []string
	if err := json.Unmarshal(trimmed, &urls); err != nil {
		return nil, &model.ScanError{Message: "invalid JSON input", Cause: err}
	}
	return urls, nil
}
