package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/repocrawl/internal/model"
)

// maxListedFailures caps the failures listed per section unless verbose.
const maxListedFailures = 10

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with nothing to list are shown.
	showEmpty bool

	// verbose lists every failure instead of the first few.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.RepositoryReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeCrawlSummary(&sb, report)
	w.writeLanguages(&sb, report)
	w.writeFailures(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.RepositoryReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        REPOCRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	result := resultOf(report)

	fmt.Fprintf(sb, "Repository:  %s\n", result.Root)
	fmt.Fprintf(sb, "Crawl Date:  %s\n", result.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:    %s\n", result.Duration().Round(time.Millisecond))
	fmt.Fprintf(sb, "Status:      %s\n", statusText(result))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeCrawlSummary(sb *strings.Builder, report *model.RepositoryReport) {
	sectionHeader(sb, "CRAWL SUMMARY")

	r := resultOf(report)
	fmt.Fprintf(sb, "  Directories expanded: %d\n", r.DirectoriesExpanded)
	fmt.Fprintf(sb, "  Files dispatched:     %d\n", r.FilesDispatched)
	fmt.Fprintf(sb, "  Files extracted:      %d\n", r.FilesExtracted)
	fmt.Fprintf(sb, "  Extraction failures:  %d\n", r.ExtractionFailures)
	fmt.Fprintf(sb, "  Failed branches:      %d\n", len(r.FailedBranches))
	fmt.Fprintf(sb, "  Skipped entries:      %d\n", r.Skipped)
	fmt.Fprintf(sb, "  Total lines:          %d\n", report.TotalLines)
	fmt.Fprintf(sb, "  Total size:           %s\n", formatBytes(report.TotalBytes))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeLanguages(sb *strings.Builder, report *model.RepositoryReport) {
	if !report.HasFiles() && !w.showEmpty {
		return
	}

	sectionHeader(sb, "LANGUAGES")

	if !report.HasFiles() {
		sb.WriteString("  No files extracted\n\n")
		return
	}

	fmt.Fprintf(sb, "  %-20s %8s %10s %10s %10s\n", "LANGUAGE", "FILES", "LINES", "CODE", "SIZE")
	for _, lang := range report.Languages {
		fmt.Fprintf(sb, "  %-20s %8d %10d %10d %10s\n",
			truncateString(lang.Language, 20),
			lang.Files,
			lang.Lines,
			lang.CodeLines,
			formatBytes(lang.Bytes),
		)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFailures(sb *strings.Builder, report *model.RepositoryReport) {
	r := resultOf(report)
	if len(r.FailedBranches) == 0 && len(r.FailedFiles) == 0 {
		if w.showEmpty {
			sectionHeader(sb, "FAILURES")
			sb.WriteString("  No failures\n\n")
		}
		return
	}

	sectionHeader(sb, "FAILURES")

	for i, f := range r.FailedBranches {
		if !w.verbose && i == maxListedFailures {
			fmt.Fprintf(sb, "  ... and %d more branches\n", len(r.FailedBranches)-i)
			break
		}
		fmt.Fprintf(sb, "  [branch] %s\n", f.Address)
		fmt.Fprintf(sb, "           %s\n", f.Error)
	}
	for i, f := range r.FailedFiles {
		if !w.verbose && i == maxListedFailures {
			fmt.Fprintf(sb, "  ... and %d more files\n", len(r.FailedFiles)-i)
			break
		}
		fmt.Fprintf(sb, "  [file]   %s\n", f.Address)
		fmt.Fprintf(sb, "           %s\n", f.Error)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by repocrawl\n")
	sb.WriteString("https://github.com/nao1215/repocrawl\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

func sectionHeader(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// resultOf returns the report's crawl result, or an empty one.
func resultOf(report *model.RepositoryReport) *model.CrawlResult {
	if report.Result == nil {
		return &model.CrawlResult{}
	}
	return report.Result
}

// statusText is the status line shared by the text and Markdown writers.
func statusText(result *model.CrawlResult) string {
	switch result.Status() {
	case "cancelled":
		return "Cancelled (partial results)"
	case "failed":
		return "Failed - repository root could not be listed"
	case "partial":
		return "Partial - some branches or files failed"
	default:
		return "Complete"
	}
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
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
