package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/repocrawl/internal/model"
)

// maxChartSlices caps the pie chart; remaining languages are merged.
const maxChartSlices = 8

// MarkdownWriter outputs reports in Markdown format for documentation
// and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RepositoryReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeLanguages(md, report)
	w.writeFailures(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RepositoryReport) {
	result := resultOf(report)

	md.H1("Repository Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Repository", "`" + result.Root + "`"},
			{"Crawl Date", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Directories Expanded", strconv.Itoa(result.DirectoriesExpanded)},
			{"Files Extracted", strconv.Itoa(result.FilesExtracted) + " / " + strconv.Itoa(result.FilesDispatched)},
			{"Skipped Entries", strconv.Itoa(result.Skipped)},
			{"Total Lines", strconv.Itoa(report.TotalLines)},
			{"Total Size", formatBytes(report.TotalBytes)},
			{"Status", statusEmoji(result) + " " + statusText(result)},
		},
	})
	md.PlainText("")

	w.writeAlert(md, result)
}

func statusEmoji(result *model.CrawlResult) string {
	switch result.Status() {
	case "cancelled":
		return "⚠️"
	case "failed":
		return "❌"
	case "partial":
		return "🟡"
	default:
		return "✅"
	}
}

// writeAlert writes an alert matching the crawl outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, result *model.CrawlResult) {
	switch result.Status() {
	case "failed":
		md.Cautionf("The repository root could not be listed. No files were extracted.")
	case "cancelled":
		md.Warningf("The crawl was cancelled. Statistics cover only the files extracted before cancellation.")
	case "partial":
		md.Importantf(
			"%d branch(es) could not be listed and %d file(s) failed extraction.",
			len(result.FailedBranches),
			result.ExtractionFailures,
		)
	default:
		md.Tip("Every directory was expanded and every file was extracted.")
	}
	md.PlainText("")
}

// writeLanguages writes the language table and distribution chart.
func (w *MarkdownWriter) writeLanguages(md *markdown.Markdown, report *model.RepositoryReport) {
	md.H2("Languages")
	md.PlainText("")

	if !report.HasFiles() {
		md.PlainText("No files extracted.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(report.Languages)+1)
	for _, lang := range report.Languages {
		rows = append(rows, []string{
			lang.Language,
			strconv.Itoa(lang.Files),
			strconv.Itoa(lang.Lines),
			strconv.Itoa(lang.CodeLines),
			formatBytes(lang.Bytes),
		})
	}
	rows = append(rows, []string{
		"**Total**",
		"**" + strconv.Itoa(report.TotalFiles) + "**",
		"**" + strconv.Itoa(report.TotalLines) + "**",
		"",
		"**" + formatBytes(report.TotalBytes) + "**",
	})

	md.Table(markdown.TableSet{
		Header: []string{"Language", "Files", "Lines", "Code", "Size"},
		Rows:   rows,
	})
	md.PlainText("")

	if report.TotalLines > 0 {
		w.writePieChart(md, report)
	}
}

// writePieChart writes a mermaid pie chart of lines per language.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.RepositoryReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Lines by Language"),
		piechart.WithShowData(true),
	)

	var other uint64
	for i, lang := range report.Languages {
		if lang.Lines == 0 {
			continue
		}
		if i >= maxChartSlices {
			other += uint64(lang.Lines)
			continue
		}
		chart.LabelAndIntValue(lang.Language, uint64(lang.Lines))
	}
	if other > 0 {
		chart.LabelAndIntValue("Others", other)
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFailures writes failed branches and files.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.RepositoryReport) {
	result := resultOf(report)
	if len(result.FailedBranches) == 0 && len(result.FailedFiles) == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")

	rows := make([][]string, 0, len(result.FailedBranches)+len(result.FailedFiles))
	for _, f := range result.FailedBranches {
		rows = append(rows, []string{"branch", "`" + f.Address + "`", truncateString(f.Error, 80)})
	}
	for _, f := range result.FailedFiles {
		rows = append(rows, []string{"file", "`" + f.Address + "`", truncateString(f.Error, 80)})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Address", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [repocrawl](https://github.com/nao1215/repocrawl)*")
}
