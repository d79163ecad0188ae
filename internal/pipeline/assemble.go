package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/attrguard/internal/model"
	"github.com/nao1215/attrguard/internal/report"
)

// DefaultSinkTimeout bounds the time spent persisting the CSV artifact.
const DefaultSinkTimeout = 10 * time.Second

// HistoryStore saves finished batch reports.
type HistoryStore interface {
	SaveBatchReport(ctx context.Context, report *model.BatchReport) error
}

// Assembler builds batch reports from classified rows and persists the raw
// detection stream. Persistence failures never fail the batch; they leave
// ReportPath empty and add a warning.
type Assembler struct {
	sink        report.Sink
	history     HistoryStore
	sinkTimeout time.Duration
	now         func() time.Time
	newID       func() string
	logger      *slog.Logger
	enter       func(State)
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithAssemblerLogger sets the logger used for persistence warnings.
func WithAssemblerLogger(logger *slog.Logger) AssemblerOption {
	return func(a *Assembler) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithAssemblerHistory enables saving finished reports.
func WithAssemblerHistory(h HistoryStore) AssemblerOption {
	return func(a *Assembler) {
		a.history = h
	}
}

// WithAssemblerSinkTimeout bounds the sink write.
func WithAssemblerSinkTimeout(d time.Duration) AssemblerOption {
	return func(a *Assembler) {
		if d > 0 {
			a.sinkTimeout = d
		}
	}
}

// WithAssemblerClock overrides the time source.
func WithAssemblerClock(now func() time.Time) AssemblerOption {
	return func(a *Assembler) {
		if now != nil {
			a.now = now
		}
	}
}

// WithIDGenerator overrides batch ID generation.
func WithIDGenerator(newID func() string) AssemblerOption {
	return func(a *Assembler) {
		if newID != nil {
			a.newID = newID
		}
	}
}

// withStageHook reports each assembly stage before it starts.
func withStageHook(enter func(State)) AssemblerOption {
	return func(a *Assembler) {
		a.enter = enter
	}
}

// NewAssembler creates an Assembler. A nil sink disables CSV persistence.
func NewAssembler(sink report.Sink, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		sink:        sink,
		sinkTimeout: DefaultSinkTimeout,
		now:         time.Now,
		newID:       uuid.NewString,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble runs grouping, classification and persistence in one call.
func (a *Assembler) Assemble(ctx context.Context, urls []string, detections []model.DetectionRecord, kind model.ProviderKind) *model.BatchReport {
	a.stage(StateAggregating)
	groups := GroupByURL(detections)

	a.stage(StateClassifying)
	results := BuildResults(urls, groups)

	a.stage(StateReporting)
	return a.Finalize(ctx, results, detections, kind)
}

func (a *Assembler) stage(s State) {
	if a.enter != nil {
		a.enter(s)
	}
}

// BuildResults produces one classified row per input URL in input order.
// Duplicate input URLs produce independent rows sharing the same group.
func BuildResults(urls []string, groups map[string][]model.DetectionRecord) []model.URLResult {
	results := make([]model.URLResult, 0, len(urls))
	for _, u := range urls {
		group := groups[u]
		raw := make([]model.DetectionRecord, len(group))
		copy(raw, group)

		level, threats := Classify(raw)
		results = append(results, model.URLResult{
			URL:           u,
			RiskLevel:     level,
			Threats:       threats,
			RawDetections: raw,
			ScanStatus:    model.ScanStatusCompleted,
		})
	}
	return results
}

// Finalize computes counters from the rows and persists the full detection
// stream, including records that matched no input URL.
func (a *Assembler) Finalize(ctx context.Context, results []model.URLResult, detections []model.DetectionRecord, kind model.ProviderKind) *model.BatchReport {
	rep := model.NewBatchReport(a.newID(), kind)
	rep.Results = results
	rep.TotalScanned = len(results)
	for _, r := range results {
		rep.TotalThreats += len(r.RawDetections)
	}

	if a.sink != nil {
		name := ReportName(a.now(), rep.ID)
		path, err := a.persist(ctx, detections, name)
		if err != nil {
			a.logger.Warn("failed to write CSV report", "name", name, "error", err)
			rep.AddWarning("CSV report not written: %v", err)
		} else {
			rep.ReportPath = path
		}
	}

	rep.FinishedAt = a.now()
	return rep
}

// Empty returns a report for a batch with no URLs. Nothing is persisted.
func (a *Assembler) Empty(kind model.ProviderKind) *model.BatchReport {
	rep := model.NewBatchReport(a.newID(), kind)
	rep.FinishedAt = a.now()
	return rep
}

// Record saves a finished report to the history store, if one is configured.
func (a *Assembler) Record(ctx context.Context, rep *model.BatchReport) {
	if a.history == nil || rep == nil {
		return
	}
	if err := a.history.SaveBatchReport(ctx, rep); err != nil {
		a.logger.Warn("failed to save batch history", "id", rep.ID, "error", err)
		rep.AddWarning("batch history not saved: %v", err)
	}
}

// persist runs the sink write in its own goroutine bounded by sinkTimeout.
// On timeout the write is abandoned and its result discarded.
func (a *Assembler) persist(ctx context.Context, detections []model.DetectionRecord, name string) (string, error) {
	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.sinkTimeout)
	defer cancel()

	type result struct {
		path string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("sink panic: %v", r)}
			}
		}()
		path, err := a.sink.Write(sinkCtx, detections, name)
		done <- result{path: path, err: err}
	}()

	select {
	case r := <-done:
		return r.path, r.err
	case <-sinkCtx.Done():
		select {
		case r := <-done:
			return r.path, r.err
		default:
			return "", fmt.Errorf("write timed out after %s", a.sinkTimeout)
		}
	}
}

// ReportName returns the unique CSV destination name for a batch:
// scan_report_<UTC yyyymmddThhmmss>_<first 8 hex chars of id>.csv.
func ReportName(at time.Time, id string) string {
	short := strings.ReplaceAll(id, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("scan_report_%s_%s.csv", at.UTC().Format("20060102T150405"), short)
}
