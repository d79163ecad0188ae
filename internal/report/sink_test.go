package report

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/nao1215/attrguard/internal/model"
)

// TestCSVSinkWrite tests the CSV schema and row order.
func TestCSVSinkWrite(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "reports")
	sink := NewCSVSink(dir)

	detections := []model.DetectionRecord{
		{Kind: model.KindRequest, URL: "https://a.example", Detail: "https://t.example/click?ref=1,2", Origin: "https://a.example", Referer: "direct"},
		{Kind: model.KindCookie, URL: "https://b.example", Detail: "aff=1; x=\"y\"", Origin: ".t.example", Referer: "https://b.example"},
	}

	path, err := sink.Write(context.Background(), detections, "scan_report_test.csv")
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if !filepath.IsAbs(path) {
		t.Errorf("expected absolute path, got %q", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat error: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("got permissions %o, expected 600", perm)
	}

	f, err := os.Open(path) //nolint:gosec // test file
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, expected 3", len(rows))
	}
	if !reflect.DeepEqual(rows[0], []string{"type", "url", "detail", "origin", "referer"}) {
		t.Errorf("unexpected header: %v", rows[0])
	}
	for i, d := range detections {
		if !reflect.DeepEqual(rows[i+1], d.CSVRecord()) {
			t.Errorf("row %d: got %v, expected %v", i+1, rows[i+1], d.CSVRecord())
		}
	}
}

// TestCSVSinkEmpty tests that an empty stream writes only the header.
func TestCSVSinkEmpty(t *testing.T) {
	t.Parallel()

	path, err := NewCSVSink(t.TempDir()).Write(context.Background(), nil, "empty.csv")
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	data, err := os.ReadFile(path) //nolint:gosec // test file
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if string(data) != "type,url,detail,origin,referer\n" {
		t.Errorf("unexpected content: %q", data)
	}
}

// TestCSVSinkNoClobber tests that an existing file is never overwritten.
func TestCSVSinkNoClobber(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	existing := filepath.Join(dir, "taken.csv")
	if err := os.WriteFile(existing, []byte("keep"), 0o600); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	if _, err := NewCSVSink(dir).Write(context.Background(), nil, "taken.csv"); err == nil {
		t.Fatal("expected error on name clash")
	}
	data, err := os.ReadFile(existing) //nolint:gosec // test file
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if string(data) != "keep" {
		t.Errorf("existing file was modified: %q", data)
	}
}

// TestCSVSinkInvalidName tests name validation.
func TestCSVSinkInvalidName(t *testing.T) {
	t.Parallel()

	sink := NewCSVSink(t.TempDir())
	for _, name := range []string{"", "..", "../escape.csv", `a\b.csv`} {
		if _, err := sink.Write(context.Background(), nil, name); !errors.Is(err, ErrInvalidReportName) {
			t.Errorf("name %q: expected ErrInvalidReportName, got %v", name, err)
		}
	}
}

// TestCSVSinkUnwritableDir tests failure when the directory cannot be created.
func TestCSVSinkUnwritableDir(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if _, err := NewCSVSink(filepath.Join(blocker, "sub")).Write(context.Background(), nil, "x.csv"); err == nil {
		t.Error("expected error when Dir is below a regular file")
	}
}

// TestCSVSinkCancelled tests that a cancelled context prevents the write.
func TestCSVSinkCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dir := t.TempDir()
	if _, err := NewCSVSink(dir).Write(ctx, nil, "x.csv"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "x.csv")); !os.IsNotExist(err) {
		t.Error("expected no file to be written")
	}
}
