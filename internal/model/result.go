package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ScanStatus is the processing state of a single URL result.
type ScanStatus string

// ScanStatusCompleted is the only status a result row can carry; failed
// batches produce no rows at all.
const ScanStatusCompleted ScanStatus = "completed"

// ProviderKind tells which detection backend produced a batch.
type ProviderKind string

const (
	// ProviderLive is the real headless-browser scanner.
	ProviderLive ProviderKind = "live"

	// ProviderSimulated is the synthetic scanner used when no browser is available.
	ProviderSimulated ProviderKind = "simulated"
)

// URLResult is the classified result of one input URL.
// There is exactly one URLResult per input URL, including URLs without detections.
type URLResult struct {
	URL           string            `json:"url"`
	RiskLevel     RiskLevel         `json:"risk_level"`
	Threats       []string          `json:"threats"`
	RawDetections []DetectionRecord `json:"raw_detections"`
	ScanStatus    ScanStatus        `json:"scan_status"`
}

// MarshalJSON guarantees that empty slices are encoded as [] rather than null.
func (r URLResult) MarshalJSON() ([]byte, error) {
	type alias URLResult
	out := alias(r)
	if out.Threats == nil {
		out.Threats = []string{}
	}
	if out.RawDetections == nil {
		out.RawDetections = []DetectionRecord{}
	}
	return json.Marshal(out)
}

// BatchReport is the aggregate result of one batch invocation.
type BatchReport struct {
	// ID uniquely identifies the batch (used for history and the HTTP API).
	ID string `json:"id"`

	// Results holds one row per input URL in input order.
	Results []URLResult `json:"results"`

	// ReportPath is the persisted CSV artifact, empty if persistence failed.
	ReportPath string `json:"csv_file"`

	// TotalScanned is the number of input URLs.
	TotalScanned int `json:"total_scanned"`

	// TotalThreats is the number of detections across all result rows.
	TotalThreats int `json:"total_threats"`

	// ProviderKind is the backend that produced the detections.
	ProviderKind ProviderKind `json:"scanner_type"`

	// ProviderStatus is a human-readable description of the backend.
	ProviderStatus string `json:"scanner_status,omitempty"`

	// Warnings collects non-fatal problems such as a failed report write.
	Warnings []string `json:"warnings,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewBatchReport creates an empty report for the given batch ID and provider.
func NewBatchReport(id string, kind ProviderKind) *BatchReport {
	return &BatchReport{
		ID:           id,
		Results:      make([]URLResult, 0),
		ProviderKind: kind,
	}
}

// ErrReportInconsistent is returned by Validate when the counters disagree
// with the result rows.
var ErrReportInconsistent = errors.New("batch report counters are inconsistent")

// Validate checks the counters against the result rows.
func (b *BatchReport) Validate() error {
	if b.TotalScanned != len(b.Results) {
		return fmt.Errorf("%w: total_scanned=%d results=%d", ErrReportInconsistent, b.TotalScanned, len(b.Results))
	}
	threats := 0
	for _, r := range b.Results {
		threats += len(r.RawDetections)
	}
	if b.TotalThreats != threats {
		return fmt.Errorf("%w: total_threats=%d detections=%d", ErrReportInconsistent, b.TotalThreats, threats)
	}
	return nil
}

// CountByRisk returns the number of result rows per risk level.
// Every level is present in the map, with zero counts included.
func (b *BatchReport) CountByRisk() map[RiskLevel]int {
	counts := make(map[RiskLevel]int, len(AllRiskLevels))
	for _, level := range AllRiskLevels {
		counts[level] = 0
	}
	for _, r := range b.Results {
		counts[r.RiskLevel]++
	}
	return counts
}

// RiskSummary is CountByRisk keyed by the wire names of the levels.
func (b *BatchReport) RiskSummary() map[string]int {
	counts := b.CountByRisk()
	summary := make(map[string]int, len(counts))
	for level, n := range counts {
		summary[level.String()] = n
	}
	return summary
}

// AddWarning records a non-fatal problem on the report.
func (b *BatchReport) AddWarning(format string, args ...any) {
	b.Warnings = append(b.Warnings, fmt.Sprintf(format, args...))
}
