package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/nao1215/attrguard/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SimpleWriter outputs human-readable text reports for terminal display.
// Colour is off by default so output can be piped to files.
type SimpleWriter struct {
	baseWriter

	// showClean controls whether clean URLs are listed.
	showClean bool

	// verbose prints every raw detection under its URL.
	verbose bool

	// colorize enables ANSI colours per risk level.
	colorize bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowClean configures the writer to list clean URLs too.
func WithShowClean(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showClean = show
	}
}

// WithVerbose enables verbose output with raw detections.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithColor enables colour-coded risk levels.
func WithColor(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.colorize = enabled
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showClean:  true,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the outcome in human-readable format.
func (w *SimpleWriter) Write(outcome model.Outcome) (int, error) {
	var sb strings.Builder

	w.writeBanner(&sb)
	if outcome.Err != nil {
		sb.WriteString(fmt.Sprintf("Status:         ERROR - %s\n\n", outcome.Err.Message))
	} else {
		w.writeHeader(&sb, outcome.Report)
		w.writeSummary(&sb, outcome.Report)
		w.writeResults(&sb, outcome.Report)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeBanner(sb *strings.Builder) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        ATTRGUARD SCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the batch information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.BatchReport) {
	sb.WriteString(fmt.Sprintf("Batch ID:       %s\n", report.ID))
	sb.WriteString(fmt.Sprintf("Scanner:        %s\n", report.ProviderKind))
	if report.ProviderStatus != "" {
		sb.WriteString(fmt.Sprintf("Scanner Status: %s\n", report.ProviderStatus))
	}
	if !report.FinishedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Finished:       %s\n", report.FinishedAt.Format("2006-01-02 15:04:05 MST")))
	}
	if report.ReportPath != "" {
		sb.WriteString(fmt.Sprintf("CSV Report:     %s\n", report.ReportPath))
	} else {
		sb.WriteString("CSV Report:     (not written)\n")
	}
	for _, warning := range report.Warnings {
		sb.WriteString(fmt.Sprintf("Warning:        %s\n", warning))
	}
	sb.WriteString("\n")
}

// writeSummary writes the risk summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.BatchReport) {
	w.writeSection(sb, "RISK SUMMARY")

	counts := report.CountByRisk()
	title := cases.Title(language.English)
	for i := len(model.AllRiskLevels) - 1; i >= 0; i-- {
		level := model.AllRiskLevels[i]
		label := fmt.Sprintf("%-7s", title.String(level.String())+":")
		sb.WriteString(fmt.Sprintf("  %s %d\n", w.paint(level, label), counts[level]))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  URLs scanned:  %d\n", report.TotalScanned))
	sb.WriteString(fmt.Sprintf("  Total threats: %d\n", report.TotalThreats))
	sb.WriteString("\n")
}

// writeResults writes one block per URL.
func (w *SimpleWriter) writeResults(sb *strings.Builder, report *model.BatchReport) {
	w.writeSection(sb, "RESULTS")

	if len(report.Results) == 0 {
		sb.WriteString("  No URLs scanned\n\n")
		return
	}

	for _, r := range report.Results {
		if r.RiskLevel == model.RiskClean && !w.showClean {
			continue
		}
		sb.WriteString(fmt.Sprintf("[%s] %s\n", w.paint(r.RiskLevel, strings.ToUpper(r.RiskLevel.String())), r.URL))
		for _, threat := range r.Threats {
			sb.WriteString(fmt.Sprintf("  * %s\n", threat))
		}
		if w.verbose {
			for _, d := range r.RawDetections {
				sb.WriteString(fmt.Sprintf("    %s: %s (origin: %s, referer: %s)\n", d.Kind, d.Detail, d.Origin, d.Referer))
			}
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// paint colours text by risk level when colour output is enabled.
func (w *SimpleWriter) paint(level model.RiskLevel, text string) string {
	if !w.colorize {
		return text
	}
	var c *color.Color
	switch level {
	case model.RiskHigh:
		c = color.New(color.FgRed, color.Bold)
	case model.RiskMedium:
		c = color.New(color.FgYellow)
	case model.RiskLow:
		c = color.New(color.FgCyan)
	default:
		c = color.New(color.FgGreen)
	}
	c.EnableColor()
	return c.Sprint(text)
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by attrguard\n")
	sb.WriteString("https://github.com/nao1215/attrguard\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
