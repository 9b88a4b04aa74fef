package model

import (
	"testing"
	"time"
)

// TestCrawlResultStatus tests status derivation.
func TestCrawlResultStatus(t *testing.T) {
	t.Parallel()

	t.Run("complete when nothing failed", func(t *testing.T) {
		t.Parallel()

		r := NewCrawlResult("https://h/o/r")
		r.DirectoriesExpanded = 1
		if !r.Succeeded() {
			t.Error("expected Succeeded to be true")
		}
		if r.Status() != "complete" {
			t.Errorf("expected complete, got %q", r.Status())
		}
	})

	t.Run("partial on branch failure", func(t *testing.T) {
		t.Parallel()

		r := NewCrawlResult("https://h/o/r")
		r.DirectoriesExpanded = 1
		r.FailedBranches = append(r.FailedBranches, BranchFailure{Address: "https://h/o/r/tree/main/a"})
		if r.Succeeded() {
			t.Error("expected Succeeded to be false")
		}
		if r.Status() != "partial" {
			t.Errorf("expected partial, got %q", r.Status())
		}
	})

	t.Run("failed when root could not be listed", func(t *testing.T) {
		t.Parallel()

		r := NewCrawlResult("https://h/o/r")
		r.FailedBranches = append(r.FailedBranches, BranchFailure{Address: "https://h/o/r"})
		if r.Status() != "failed" {
			t.Errorf("expected failed, got %q", r.Status())
		}
	})

	t.Run("cancelled wins", func(t *testing.T) {
		t.Parallel()

		r := NewCrawlResult("https://h/o/r")
		r.Cancelled = true
		if r.Status() != "cancelled" {
			t.Errorf("expected cancelled, got %q", r.Status())
		}
	})
}

// TestCrawlResultDuration tests the Duration method.
func TestCrawlResultDuration(t *testing.T) {
	t.Parallel()

	r := NewCrawlResult("https://h/o/r")
	if r.Duration() != 0 {
		t.Errorf("expected zero duration before finish, got %v", r.Duration())
	}

	r.FinishedAt = r.StartedAt.Add(3 * time.Second)
	if r.Duration() != 3*time.Second {
		t.Errorf("expected 3s, got %v", r.Duration())
	}
}

// TestNewRepositoryReport tests per-language aggregation.
func TestNewRepositoryReport(t *testing.T) {
	t.Parallel()

	files := []*FileStats{
		{Language: "Go", Lines: 10, CodeLines: 8, BlankLines: 2, Bytes: 100},
		{Language: "Go", Lines: 5, CodeLines: 5, Bytes: 50},
		{Language: "Markdown", Lines: 20, CodeLines: 15, BlankLines: 5, Bytes: 300},
		nil,
	}

	report := NewRepositoryReport(NewCrawlResult("https://h/o/r"), files)

	if report.TotalFiles != 3 {
		t.Errorf("expected 3 files, got %d", report.TotalFiles)
	}
	if report.TotalLines != 35 {
		t.Errorf("expected 35 lines, got %d", report.TotalLines)
	}
	if report.TotalBytes != 450 {
		t.Errorf("expected 450 bytes, got %d", report.TotalBytes)
	}
	if len(report.Languages) != 2 {
		t.Fatalf("expected 2 languages, got %d", len(report.Languages))
	}
	if report.Languages[0].Language != "Markdown" {
		t.Errorf("expected Markdown first (most lines), got %q", report.Languages[0].Language)
	}
	if report.Languages[1].Files != 2 || report.Languages[1].Lines != 15 {
		t.Errorf("unexpected Go summary: %+v", report.Languages[1])
	}
	if !report.HasFiles() {
		t.Error("expected HasFiles to be true")
	}
}
