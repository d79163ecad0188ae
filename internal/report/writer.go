package report

import (
	"io"

	"github.com/nao1215/attrguard/internal/model"
)

// Writer defines the interface for report output.
// Implementations render a batch outcome in various formats.
type Writer interface {
	// Write outputs the outcome to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(outcome model.Outcome) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the outcome to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(outcome model.Outcome) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(outcome)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Format is an output format name accepted by New.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// New returns the writer for a format. Unknown formats fall back to JSON.
func New(format Format, output io.Writer) Writer {
	switch format {
	case FormatMarkdown:
		return NewMarkdownWriter(output)
	case FormatText:
		return NewSimpleWriter(output)
	default:
		return NewJSONWriter(output, WithPrettyPrint())
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
