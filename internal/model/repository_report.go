package model

import (
	"sort"
	"time"
)

// LanguageSummary aggregates file statistics for one language label.
type LanguageSummary struct {
	Language   string `json:"language"`
	Files      int    `json:"files"`
	Lines      int    `json:"lines"`
	CodeLines  int    `json:"code_lines"`
	BlankLines int    `json:"blank_lines"`
	Bytes      int64  `json:"bytes"`
}

// RepositoryReport is what report writers render: the crawl outcome plus the
// statistics gathered for the repository's files.
type RepositoryReport struct {
	// Result is the crawl outcome.
	Result *CrawlResult `json:"result"`

	// Languages is sorted by line count, largest first.
	Languages []LanguageSummary `json:"languages"`

	// TotalFiles, TotalLines and TotalBytes sum over Languages.
	TotalFiles int   `json:"total_files"`
	TotalLines int   `json:"total_lines"`
	TotalBytes int64 `json:"total_bytes"`

	// GeneratedAt is when the report was built.
	GeneratedAt time.Time `json:"generated_at"`
}

// NewRepositoryReport builds a report from a crawl result and the stored
// statistics of the files under it.
func NewRepositoryReport(result *CrawlResult, files []*FileStats) *RepositoryReport {
	byLanguage := make(map[string]*LanguageSummary)
	report := &RepositoryReport{
		Result:      result,
		Languages:   make([]LanguageSummary, 0),
		GeneratedAt: time.Now().UTC(),
	}

	for _, f := range files {
		if f == nil {
			continue
		}
		s, ok := byLanguage[f.Language]
		if !ok {
			s = &LanguageSummary{Language: f.Language}
			byLanguage[f.Language] = s
		}
		s.Files++
		s.Lines += f.Lines
		s.CodeLines += f.CodeLines
		s.BlankLines += f.BlankLines
		s.Bytes += f.Bytes

		report.TotalFiles++
		report.TotalLines += f.Lines
		report.TotalBytes += f.Bytes
	}

	for _, s := range byLanguage {
		report.Languages = append(report.Languages, *s)
	}
	sort.Slice(report.Languages, func(i, j int) bool {
		a, b := report.Languages[i], report.Languages[j]
		if a.Lines != b.Lines {
			return a.Lines > b.Lines
		}
		return a.Language < b.Language
	})

	return report
}

// HasFiles reports whether any file statistics were collected.
func (r *RepositoryReport) HasFiles() bool {
	return r.TotalFiles > 0
}
