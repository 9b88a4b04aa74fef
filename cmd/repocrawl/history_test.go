package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/repocrawl/internal/database"
	"github.com/nao1215/repocrawl/internal/model"
)

const historyRoot = "https://github.com/o/r"

func openTestDB(t *testing.T) *database.StatsDB {
	t.Helper()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() }) //nolint:errcheck
	return db
}

func saveSession(t *testing.T, db *database.StatsDB, startedAt time.Time, files, failures int) int64 {
	t.Helper()

	result := model.NewCrawlResult(historyRoot)
	result.StartedAt = startedAt
	result.FinishedAt = startedAt.Add(time.Second)
	result.DirectoriesExpanded = 2
	result.FilesDispatched = files + failures
	result.FilesExtracted = files
	result.ExtractionFailures = failures

	id, err := db.SaveCrawlResult(context.Background(), result)
	if err != nil {
		t.Fatalf("failed to save session: %v", err)
	}
	return id
}

// TestNewHistoryCmd tests the history command creation.
func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()
	for _, name := range []string{"id", "compare", "json"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
	if err := cmd.Args(cmd, []string{"a", "b"}); err == nil {
		t.Error("expected at most one argument")
	}
}

// TestHistory tests listing and comparing stored sessions.
func TestHistory(t *testing.T) {
	t.Parallel()

	t.Run("empty database", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		if err := listRepositories(context.Background(), openTestDB(t), &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), "No crawled repositories") {
			t.Errorf("unexpected output %q", out.String())
		}
	})

	t.Run("lists repositories and sessions", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		saveSession(t, db, base, 10, 0)
		newest := saveSession(t, db, base.Add(time.Hour), 12, 1)

		var repos bytes.Buffer
		if err := listRepositories(context.Background(), db, &repos); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(repos.String(), historyRoot) {
			t.Errorf("expected repository listed, got %q", repos.String())
		}

		var sessions bytes.Buffer
		if err := listHistory(context.Background(), db, &sessions, historyRoot); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := sessions.String()
		if !strings.Contains(output, "2 sessions") {
			t.Errorf("expected 2 sessions, got %q", output)
		}
		lines := strings.Split(output, "\n")
		var first string
		for _, l := range lines {
			if strings.Contains(l, "partial") || strings.Contains(l, "complete") {
				first = l
				break
			}
		}
		if !strings.HasPrefix(strings.TrimSpace(first), strconv.FormatInt(newest, 10)+" ") {
			t.Errorf("expected newest session first, got %q", first)
		}
	})

	t.Run("shows a stored session", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		id := saveSession(t, db, time.Now().UTC(), 3, 0)
		if err := db.SaveFileStats(context.Background(), model.NewFileStats(historyRoot+"/blob/main/a.go", []byte("package a\n"))); err != nil {
			t.Fatal(err)
		}

		var out bytes.Buffer
		if err := showSession(context.Background(), db, &out, id, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), "REPOCRAWL REPORT") || !strings.Contains(out.String(), "Go") {
			t.Errorf("unexpected output %q", out.String())
		}

		if err := showSession(context.Background(), db, &out, id+100, false); err == nil {
			t.Error("expected error for unknown session")
		}
	})

	t.Run("compares the latest two sessions", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		base := time.Now().UTC().Add(-time.Hour)
		saveSession(t, db, base, 10, 2)
		saveSession(t, db, base.Add(time.Minute), 13, 0)

		var text bytes.Buffer
		if err := compareLatest(context.Background(), db, &text, historyRoot, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(text.String(), "+3") || !strings.Contains(text.String(), "-2") {
			t.Errorf("expected deltas in output, got %q", text.String())
		}

		var raw bytes.Buffer
		if err := compareLatest(context.Background(), db, &raw, historyRoot, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var delta SessionDelta
		if err := json.Unmarshal(raw.Bytes(), &delta); err != nil {
			t.Fatalf("failed to parse JSON: %v", err)
		}
		if delta.FilesDelta != 3 || delta.FailuresDelta != -2 {
			t.Errorf("unexpected delta %+v", delta)
		}
	})

	t.Run("compare needs two sessions", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		saveSession(t, db, time.Now().UTC(), 1, 0)

		var out bytes.Buffer
		if err := compareLatest(context.Background(), db, &out, historyRoot, false); err == nil {
			t.Error("expected error")
		}
	})
}

// TestFormatDelta tests signed delta formatting.
func TestFormatDelta(t *testing.T) {
	t.Parallel()

	for delta, want := range map[int]string{3: "+3", 0: "0", -2: "-2"} {
		if got := formatDelta(delta); got != want {
			t.Errorf("formatDelta(%d) = %q, want %q", delta, got, want)
		}
	}
}
