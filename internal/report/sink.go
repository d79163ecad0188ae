package report

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/attrguard/internal/model"
)

// Sink persists a detection stream under a destination name and returns the
// location of the written artifact.
type Sink interface {
	Write(ctx context.Context, detections []model.DetectionRecord, name string) (string, error)
}

// ErrInvalidReportName is returned when a destination name is empty or
// contains a path separator.
var ErrInvalidReportName = errors.New("invalid report name")

// CSVSink writes detections as CSV files into Dir.
// The column schema is fixed: type,url,detail,origin,referer.
type CSVSink struct {
	// Dir is the destination directory, created on demand.
	Dir string
}

// NewCSVSink creates a CSVSink writing into dir.
func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{Dir: dir}
}

// Write implements Sink. An existing file with the same name is never
// overwritten; the write fails instead.
func (s *CSVSink) Write(ctx context.Context, detections []model.DetectionRecord, name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidReportName, name)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.Dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(s.Dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600) //nolint:gosec // path is built from a validated name
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}

	if err := WriteCSV(f, detections); err != nil {
		_ = f.Close()       //nolint:errcheck // write error takes precedence
		_ = os.Remove(path) //nolint:errcheck // best effort cleanup of partial file
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close report file: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

// WriteCSV writes the header followed by one row per detection in order.
func WriteCSV(w io.Writer, detections []model.DetectionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(model.CSVHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, d := range detections {
		if err := cw.Write(d.CSVRecord()); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}
