package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nao1215/attrguard/internal/model"
	"github.com/nao1215/attrguard/internal/provider"
)

// fakeProvider is a test helper that implements provider.Provider.
type fakeProvider struct {
	mu        sync.Mutex
	scanFunc  func(ctx context.Context, urls []string) ([]model.DetectionRecord, error)
	calls     int
	lastBatch []string
}

func (f *fakeProvider) Kind() model.ProviderKind {
	return model.ProviderSimulated
}

func (f *fakeProvider) Scan(ctx context.Context, urls []string) ([]model.DetectionRecord, error) {
	f.mu.Lock()
	f.calls++
	f.lastBatch = append([]string(nil), urls...)
	f.mu.Unlock()
	if f.scanFunc != nil {
		return f.scanFunc(ctx, urls)
	}
	return nil, nil
}

func returning(recs ...model.DetectionRecord) *fakeProvider {
	return &fakeProvider{scanFunc: func(context.Context, []string) ([]model.DetectionRecord, error) {
		return recs, nil
	}}
}

func selectionFor(p provider.Provider) provider.Selection {
	return provider.Selection{Provider: p, Kind: p.Kind(), Status: "test scanner"}
}

// memorySink records written streams instead of touching the filesystem.
type memorySink struct {
	mu      sync.Mutex
	writes  map[string][]model.DetectionRecord
	delay   time.Duration
	failErr error
}

func newMemorySink() *memorySink {
	return &memorySink{writes: make(map[string][]model.DetectionRecord)}
}

func (s *memorySink) Write(ctx context.Context, detections []model.DetectionRecord, name string) (string, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.failErr != nil {
		return "", s.failErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes[name] = append([]model.DetectionRecord(nil), detections...)
	return "/reports/" + name, nil
}

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

// panicSink panics on every write.
type panicSink struct{}

func (panicSink) Write(context.Context, []model.DetectionRecord, string) (string, error) {
	panic("disk on fire")
}

// memoryHistory records saved reports.
type memoryHistory struct {
	mu    sync.Mutex
	saved []*model.BatchReport
	err   error
}

func (h *memoryHistory) SaveBatchReport(_ context.Context, r *model.BatchReport) error {
	if h.err != nil {
		return h.err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.saved = append(h.saved, r)
	return nil
}

var errDiskFull = errors.New("disk full")

func fixedClock() time.Time {
	return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
}
