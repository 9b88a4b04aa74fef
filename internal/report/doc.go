// Package report renders repository reports.
//
// Writers for different output formats:
//   - SimpleWriter: human-readable text for terminal display
//   - JSONWriter / FullJSONWriter: structured JSON for tool integration
//   - MarkdownWriter: Markdown with a mermaid language chart
//
// Writers implement the Writer interface and can be combined with
// MultiWriter.
package report
