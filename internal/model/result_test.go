package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// TestURLResultJSONEmptySlices ensures a clean result serializes [] not null.
func TestURLResultJSONEmptySlices(t *testing.T) {
	t.Parallel()

	r := URLResult{URL: "https://example.com", RiskLevel: RiskClean, ScanStatus: ScanStatusCompleted}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"threats":[]`, `"raw_detections":[]`, `"risk_level":"clean"`, `"scan_status":"completed"`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}
}

// TestDetectionRecordCSV tests that CSV rows follow the header order.
func TestDetectionRecordCSV(t *testing.T) {
	t.Parallel()

	d := DetectionRecord{Kind: KindCookie, URL: "u", Detail: "d", Origin: "o", Referer: "r"}
	row := d.CSVRecord()
	if len(row) != len(CSVHeader) {
		t.Fatalf("got %d columns, expected %d", len(row), len(CSVHeader))
	}
	expected := []string{"cookie", "u", "d", "o", "r"}
	for i := range expected {
		if row[i] != expected[i] {
			t.Errorf("column %s: got %q, expected %q", CSVHeader[i], row[i], expected[i])
		}
	}
}

// TestBatchReportValidate tests the counter invariants.
func TestBatchReportValidate(t *testing.T) {
	t.Parallel()

	det := DetectionRecord{Kind: KindRequest, URL: "https://a.example"}

	t.Run("consistent report", func(t *testing.T) {
		t.Parallel()
		b := NewBatchReport("id", ProviderSimulated)
		b.Results = []URLResult{
			{URL: "https://a.example", RawDetections: []DetectionRecord{det, det}},
			{URL: "https://b.example"},
		}
		b.TotalScanned = 2
		b.TotalThreats = 2
		if err := b.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("scanned mismatch", func(t *testing.T) {
		t.Parallel()
		b := NewBatchReport("id", ProviderSimulated)
		b.TotalScanned = 1
		if err := b.Validate(); !errors.Is(err, ErrReportInconsistent) {
			t.Errorf("expected ErrReportInconsistent, got %v", err)
		}
	})

	t.Run("threat mismatch", func(t *testing.T) {
		t.Parallel()
		b := NewBatchReport("id", ProviderSimulated)
		b.Results = []URLResult{{URL: "https://a.example", RawDetections: []DetectionRecord{det}}}
		b.TotalScanned = 1
		b.TotalThreats = 3
		if err := b.Validate(); !errors.Is(err, ErrReportInconsistent) {
			t.Errorf("expected ErrReportInconsistent, got %v", err)
		}
	})
}

// TestBatchReportCountByRisk tests risk tallies include zero counts.
func TestBatchReportCountByRisk(t *testing.T) {
	t.Parallel()

	b := NewBatchReport("id", ProviderLive)
	b.Results = []URLResult{
		{RiskLevel: RiskHigh},
		{RiskLevel: RiskHigh},
		{RiskLevel: RiskClean},
	}

	counts := b.CountByRisk()
	if counts[RiskHigh] != 2 || counts[RiskClean] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
	if n, ok := counts[RiskMedium]; !ok || n != 0 {
		t.Errorf("expected medium to be present with 0, got %d (present=%v)", n, ok)
	}

	summary := b.RiskSummary()
	if summary["high"] != 2 || summary["low"] != 0 {
		t.Errorf("unexpected summary: %v", summary)
	}
}
