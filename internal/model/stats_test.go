package model

import (
	"strings"
	"testing"
)

// TestNewFileStats tests statistics computation.
func TestNewFileStats(t *testing.T) {
	t.Parallel()

	t.Run("counts lines blank lines and bytes", func(t *testing.T) {
		t.Parallel()

		content := []byte("package main\n\nfunc main() {}\n   \n")
		stats := NewFileStats("https://github.com/o/r/blob/main/cmd/main.go", content)

		if stats.Path != "cmd/main.go" {
			t.Errorf("expected path cmd/main.go, got %q", stats.Path)
		}
		if stats.Name != "main.go" {
			t.Errorf("expected name main.go, got %q", stats.Name)
		}
		if stats.Extension != ".go" {
			t.Errorf("expected extension .go, got %q", stats.Extension)
		}
		if stats.Language != "Go" {
			t.Errorf("expected language Go, got %q", stats.Language)
		}
		if stats.Lines != 4 {
			t.Errorf("expected 4 lines, got %d", stats.Lines)
		}
		if stats.BlankLines != 2 {
			t.Errorf("expected 2 blank lines, got %d", stats.BlankLines)
		}
		if stats.CodeLines != 2 {
			t.Errorf("expected 2 code lines, got %d", stats.CodeLines)
		}
		if stats.Bytes != int64(len(content)) {
			t.Errorf("expected %d bytes, got %d", len(content), stats.Bytes)
		}
		if stats.ExtractedAt.IsZero() {
			t.Error("expected ExtractedAt to be set")
		}
	})

	t.Run("counts final unterminated line", func(t *testing.T) {
		t.Parallel()

		stats := NewFileStats("https://h/o/r/blob/main/a.txt", []byte("one\ntwo"))
		if stats.Lines != 2 {
			t.Errorf("expected 2 lines, got %d", stats.Lines)
		}
	})

	t.Run("empty content", func(t *testing.T) {
		t.Parallel()

		stats := NewFileStats("https://h/o/r/blob/main/empty.txt", nil)
		if stats.Lines != 0 || stats.Bytes != 0 {
			t.Errorf("expected zero stats, got lines=%d bytes=%d", stats.Lines, stats.Bytes)
		}
		want := "a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a"
		if stats.Hash != want {
			t.Errorf("expected SHA3-256 of empty input, got %q", stats.Hash)
		}
	})

	t.Run("hash is SHA3-256", func(t *testing.T) {
		t.Parallel()

		stats := NewFileStats("https://h/o/r/blob/main/abc", []byte("abc"))
		want := "3a985da74fe225b2045c172d6bd390bd855f086e3e9d525b46bfe24511431532"
		if stats.Hash != want {
			t.Errorf("got %q, want %q", stats.Hash, want)
		}
	})

	t.Run("binary content has no line counts", func(t *testing.T) {
		t.Parallel()

		stats := NewFileStats("https://h/o/r/blob/main/logo.png", []byte{0x89, 'P', 'N', 'G', 0x00, '\n', 0x01})
		if !stats.Binary {
			t.Error("expected Binary to be true")
		}
		if stats.Lines != 0 {
			t.Errorf("expected 0 lines for binary, got %d", stats.Lines)
		}
	})
}

// TestRepositoryPath tests in-repository path extraction.
func TestRepositoryPath(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"https://github.com/o/r/blob/main/README.md":        "README.md",
		"https://github.com/o/r/blob/v1.2.0/a/b/c.go":       "a/b/c.go",
		"https://github.com/o/r/tree/main/internal/crawler": "internal/crawler",
		"https://github.com/o/r/tree/main":                  "",
		"https://example.com/plain/path.txt":                "plain/path.txt",
	}

	for address, want := range tests {
		if got := RepositoryPath(address); got != want {
			t.Errorf("RepositoryPath(%q) = %q, want %q", address, got, want)
		}
	}
}

// TestLanguageFor tests language label detection.
func TestLanguageFor(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"main.go":    "Go",
		"App.JAVA":   "Java",
		"Makefile":   "Makefile",
		"go.mod":     "Go Module",
		"notes.zig":  "Zig",
		"README":     "Other",
		"config.yml": "YAML",
	}

	for name, want := range tests {
		if got := LanguageFor(name); got != want {
			t.Errorf("LanguageFor(%q) = %q, want %q", name, got, want)
		}
	}
}

// TestIsBinaryOnlySniffsPrefix verifies that NUL bytes past the sniff window
// do not make content binary.
func TestIsBinaryOnlySniffsPrefix(t *testing.T) {
	t.Parallel()

	content := []byte(strings.Repeat("a", binarySniffLength) + "\x00")
	if isBinary(content) {
		t.Error("expected NUL beyond sniff window to be ignored")
	}
}
