package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/attrguard/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MarkdownWriter outputs outcomes in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the outcome in Markdown format.
func (w *MarkdownWriter) Write(outcome model.Outcome) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("attrguard Scan Report")
	md.PlainText("")

	if outcome.Err != nil {
		md.Cautionf("Scan failed: %s", outcome.Err.Message)
		md.PlainText("")
		w.writeFooter(md)
		return len(md.String()), md.Build()
	}

	report := outcome.Report
	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeResults(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the batch information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.BatchReport) {
	csvFile := report.ReportPath
	if csvFile == "" {
		csvFile = "-"
	} else {
		csvFile = "`" + csvFile + "`"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Batch ID", "`" + report.ID + "`"},
			{"Scanner", string(report.ProviderKind)},
			{"Scanner Status", report.ProviderStatus},
			{"URLs Scanned", strconv.Itoa(report.TotalScanned)},
			{"Total Threats", strconv.Itoa(report.TotalThreats)},
			{"CSV Report", csvFile},
		},
	})
	md.PlainText("")

	if len(report.Warnings) > 0 {
		md.H2("Warnings")
		md.PlainText("")
		md.BulletList(report.Warnings...)
		md.PlainText("")
	}
}

// writeSummary writes the risk summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.BatchReport) {
	md.H2("Risk Summary")
	md.PlainText("")

	counts := report.CountByRisk()
	title := cases.Title(language.English)

	rows := make([][]string, 0, len(model.AllRiskLevels))
	for i := len(model.AllRiskLevels) - 1; i >= 0; i-- {
		level := model.AllRiskLevels[i]
		rows = append(rows, []string{riskEmoji(level) + " " + title.String(level.String()), strconv.Itoa(counts[level])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Risk", "URLs"},
		Rows:   rows,
	})
	md.PlainText("")

	if report.TotalScanned > 0 {
		w.writePieChart(md, counts)
	}
	w.writeAlert(md, counts)
}

// writePieChart writes a mermaid pie chart for the risk distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts map[model.RiskLevel]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("URL Risk Distribution"),
		piechart.WithShowData(true),
	)

	title := cases.Title(language.English)
	for i := len(model.AllRiskLevels) - 1; i >= 0; i-- {
		level := model.AllRiskLevels[i]
		if counts[level] > 0 {
			chart.LabelAndIntValue(title.String(level.String()), uint64(counts[level])) //nolint:gosec // counts are non-negative
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert based on the highest risk present.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, counts map[model.RiskLevel]int) {
	switch {
	case counts[model.RiskHigh] > 0:
		md.Cautionf("%d URL(s) show strong signs of attribution hijacking.", counts[model.RiskHigh])
	case counts[model.RiskMedium] > 0:
		md.Warningf("%d URL(s) show suspicious attribution behaviour.", counts[model.RiskMedium])
	case counts[model.RiskLow] > 0:
		md.Note("Only low risk signals detected.")
	default:
		md.Tip("No attribution hijacking signals detected.")
	}
	md.PlainText("")
}

// writeResults writes one table row per URL and the raw detections.
func (w *MarkdownWriter) writeResults(md *markdown.Markdown, report *model.BatchReport) {
	md.H2("Results")
	md.PlainText("")

	if len(report.Results) == 0 {
		md.PlainText("No URLs were scanned.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Results))
	for i, r := range report.Results {
		threats := "-"
		if len(r.Threats) > 0 {
			threats = strings.Join(r.Threats, ", ")
		}
		rows[i] = []string{
			truncateString(r.URL, 60),
			riskEmoji(r.RiskLevel) + " " + r.RiskLevel.String(),
			strconv.Itoa(len(r.RawDetections)),
			truncateString(threats, 80),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Risk", "Detections", "Threats"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, r := range report.Results {
		if len(r.RawDetections) == 0 {
			continue
		}
		var sb strings.Builder
		for _, d := range r.RawDetections {
			sb.WriteString("- **" + string(d.Kind) + "** `" + d.Detail + "` (origin: " + d.Origin + ", referer: " + d.Referer + ")\n")
		}
		md.Details(r.URL, sb.String())
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by [attrguard](https://github.com/nao1215/attrguard)*")
}

func riskEmoji(level model.RiskLevel) string {
	switch level {
	case model.RiskHigh:
		return "🔴"
	case model.RiskMedium:
		return "🟠"
	case model.RiskLow:
		return "🔵"
	default:
		return "⚪"
	}
}
