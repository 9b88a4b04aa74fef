package crawler

import (
	"net/url"
	"testing"

	"github.com/nao1215/repocrawl/internal/model"
)

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse %q: %v", raw, err)
	}
	return u
}

// TestClassifier tests conversion of raw link fragments into entries.
func TestClassifier(t *testing.T) {
	t.Parallel()

	t.Run("blob links are files and tree links are directories", func(t *testing.T) {
		t.Parallel()

		c := NewClassifier(mustParseURL(t, "https://github.com/owner/repo"))
		entries := c.Classify([]model.RawEntry{
			`<a data-pjax="#repo-content-pjax-container" href="/owner/repo/tree/main/cmd">cmd</a>`,
			`<a data-pjax="#repo-content-pjax-container" href="/owner/repo/blob/main/go.mod">go.mod</a>`,
		})

		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d: %v", len(entries), entries)
		}
		if entries[0].Kind != model.KindDirectory {
			t.Errorf("expected directory, got %s", entries[0].Kind)
		}
		if entries[0].Address != "https://github.com/owner/repo/tree/main/cmd" {
			t.Errorf("unexpected address %q", entries[0].Address)
		}
		if entries[1].Kind != model.KindFile {
			t.Errorf("expected file, got %s", entries[1].Kind)
		}
		if entries[1].Address != "https://github.com/owner/repo/blob/main/go.mod" {
			t.Errorf("unexpected address %q", entries[1].Address)
		}
	})

	t.Run("non-blob links are treated as directories", func(t *testing.T) {
		t.Parallel()

		c := NewClassifier(mustParseURL(t, "https://github.com/owner/repo"))
		entries := c.Classify([]model.RawEntry{`<a href="/owner/repo/commits/main">history</a>`})

		if len(entries) != 1 || entries[0].Kind != model.KindDirectory {
			t.Errorf("expected one directory entry, got %v", entries)
		}
	})

	t.Run("blob must be a whole path segment", func(t *testing.T) {
		t.Parallel()

		c := NewClassifier(mustParseURL(t, "https://github.com/owner/repo"))
		entries := c.Classify([]model.RawEntry{`<a href="/owner/repo/tree/main/blobs">blobs</a>`})

		if len(entries) != 1 || entries[0].Kind != model.KindDirectory {
			t.Errorf("expected one directory entry, got %v", entries)
		}
	})

	t.Run("preserves input order", func(t *testing.T) {
		t.Parallel()

		c := NewClassifier(mustParseURL(t, "https://github.com/owner/repo"))
		entries := c.Classify([]model.RawEntry{
			`<a href="/owner/repo/blob/main/z.go">z</a>`,
			`<a href="/owner/repo/tree/main/a">a</a>`,
			`<a href="/owner/repo/blob/main/m.go">m</a>`,
		})

		want := []string{"z.go", "a", "m.go"}
		if len(entries) != len(want) {
			t.Fatalf("expected %d entries, got %d", len(want), len(entries))
		}
		for i, name := range want {
			if got := model.RepositoryPath(entries[i].Address); got != name {
				t.Errorf("entry %d: expected %q, got %q", i, name, got)
			}
		}
	})

	t.Run("drops blank and linkless fragments", func(t *testing.T) {
		t.Parallel()

		c := NewClassifier(mustParseURL(t, "https://github.com/owner/repo"))
		entries := c.Classify([]model.RawEntry{
			"",
			"   ",
			`<span>no link here</span>`,
			`<a>anchor without href</a>`,
		})

		if len(entries) != 0 {
			t.Errorf("expected no entries, got %v", entries)
		}
	})

	t.Run("drops pseudo links and other hosts", func(t *testing.T) {
		t.Parallel()

		c := NewClassifier(mustParseURL(t, "https://github.com/owner/repo"))
		entries := c.Classify([]model.RawEntry{
			`<a href="javascript:void(0)">js</a>`,
			`<a href="mailto:dev@example.com">mail</a>`,
			`<a href="#">top</a>`,
			`<a href="https://example.com/owner/repo/blob/main/x.go">elsewhere</a>`,
			`<a href="/">home</a>`,
		})

		if len(entries) != 0 {
			t.Errorf("expected no entries, got %v", entries)
		}
	})

	t.Run("keeps absolute links on the same host", func(t *testing.T) {
		t.Parallel()

		c := NewClassifier(mustParseURL(t, "https://github.com/owner/repo"))
		entries := c.Classify([]model.RawEntry{`<a href="https://GitHub.com/owner/repo/blob/main/x.go">x</a>`})

		if len(entries) != 1 || !entries[0].IsFile() {
			t.Errorf("expected one file entry, got %v", entries)
		}
	})

	t.Run("strips fragments from links", func(t *testing.T) {
		t.Parallel()

		c := NewClassifier(mustParseURL(t, "https://github.com/owner/repo"))
		entries := c.Classify([]model.RawEntry{`<a href="/owner/repo/blob/main/x.go#L10">x</a>`})

		if len(entries) != 1 {
			t.Fatalf("expected one entry, got %v", entries)
		}
		if entries[0].Address != "https://github.com/owner/repo/blob/main/x.go" {
			t.Errorf("unexpected address %q", entries[0].Address)
		}
	})

	t.Run("falls back to attribute scan for partial fragments", func(t *testing.T) {
		t.Parallel()

		c := NewClassifier(mustParseURL(t, "https://github.com/owner/repo"))
		entries := c.Classify([]model.RawEntry{`class="js-navigation-open" href="/owner/repo/blob/main/README.md" title="README.md"`})

		if len(entries) != 1 || !entries[0].IsFile() {
			t.Fatalf("expected one file entry, got %v", entries)
		}
		if entries[0].Address != "https://github.com/owner/repo/blob/main/README.md" {
			t.Errorf("unexpected address %q", entries[0].Address)
		}
	})

	t.Run("uses the first href of a fragment", func(t *testing.T) {
		t.Parallel()

		c := NewClassifier(mustParseURL(t, "https://github.com/owner/repo"))
		entries := c.Classify([]model.RawEntry{
			`<div><a href="/owner/repo/tree/main/first">1</a><a href="/owner/repo/blob/main/second">2</a></div>`,
		})

		if len(entries) != 1 || entries[0].Address != "https://github.com/owner/repo/tree/main/first" {
			t.Errorf("expected first link only, got %v", entries)
		}
	})
}
