// Package report provides report persistence and output functionality.
//
// This package contains:
//   - Sink / CSVSink: durable storage of the raw detection stream
//   - JSONWriter: the success/error envelope for tool integration
//   - MarkdownWriter: Markdown output for documentation and sharing
//   - SimpleWriter: human-readable text output for terminal display
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
