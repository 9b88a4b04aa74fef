package model

import "time"

// BranchFailure records a directory whose listing could not be fetched.
// The subtree below it was not explored.
type BranchFailure struct {
	// Address is the directory page that failed.
	Address string `json:"address"`

	// Error is the error message.
	Error string `json:"error"`
}

// FileFailure records a file whose extraction job failed.
type FileFailure struct {
	// Address is the blob page of the file.
	Address string `json:"address"`

	// Error is the error message.
	Error string `json:"error"`
}

// CrawlResult is the aggregate outcome of crawling one repository.
// It is returned by the crawler and is also what gets persisted for a crawl
// session.
type CrawlResult struct {
	// Root is the repository address the crawl started from.
	Root string `json:"root"`

	// StartedAt and FinishedAt bracket the crawl.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// DirectoriesExpanded counts directory listings that were fetched and
	// classified, including the root.
	DirectoriesExpanded int `json:"directories_expanded"`

	// FilesDispatched counts extraction jobs launched.
	FilesDispatched int `json:"files_dispatched"`

	// FilesExtracted counts extraction jobs that succeeded.
	FilesExtracted int `json:"files_extracted"`

	// ExtractionFailures counts extraction jobs that failed. Jobs abandoned
	// because the crawl was cancelled are not included.
	ExtractionFailures int `json:"extraction_failures"`

	// FailedFiles lists the files counted in ExtractionFailures.
	FailedFiles []FileFailure `json:"failed_files,omitempty"`

	// FailedBranches lists directories whose listing failed.
	FailedBranches []BranchFailure `json:"failed_branches,omitempty"`

	// Skipped counts entries excluded by depth limit or path patterns.
	Skipped int `json:"skipped"`

	// Cancelled is set when the crawl context ended before completion.
	Cancelled bool `json:"cancelled"`
}

// NewCrawlResult creates an empty result for a crawl starting now.
func NewCrawlResult(root string) *CrawlResult {
	return &CrawlResult{
		Root:           root,
		StartedAt:      time.Now().UTC(),
		FailedFiles:    make([]FileFailure, 0),
		FailedBranches: make([]BranchFailure, 0),
	}
}

// Duration returns the wall time of the crawl. It is zero until FinishedAt
// is set.
func (r *CrawlResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether every branch was expanded and every extraction
// job succeeded.
func (r *CrawlResult) Succeeded() bool {
	return !r.Cancelled && len(r.FailedBranches) == 0 && r.ExtractionFailures == 0
}

// Status returns a one-word status for display.
func (r *CrawlResult) Status() string {
	switch {
	case r.Cancelled:
		return "cancelled"
	case r.DirectoriesExpanded == 0 && len(r.FailedBranches) > 0:
		return "failed"
	case !r.Succeeded():
		return "partial"
	default:
		return "complete"
	}
}
