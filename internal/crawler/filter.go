package crawler

import (
	"path/filepath"
	"strings"

	"github.com/nao1215/repocrawl/internal/model"
)

// pathFilter decides which entries are crawled based on glob patterns
// matched against the in-repository path ("/cmd/main.go").
type pathFilter struct {
	ignore []string
	follow []string
}

// allows reports whether the entry at address should be crawled.
//
//  1. A path matching any ignore pattern is skipped.
//  2. If follow patterns are set, a path matching none of them is skipped.
//  3. Everything else is crawled.
//
// Follow patterns only apply to files: directories must still be expanded
// to reach the files below them.
func (f pathFilter) allows(e model.Entry) bool {
	if len(f.ignore) == 0 && len(f.follow) == 0 {
		return true
	}

	path := "/" + model.RepositoryPath(e.Address)

	for _, pattern := range f.ignore {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(f.follow) == 0 || e.IsDirectory() {
		return true
	}

	for _, pattern := range f.follow {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern checks if a path matches a glob pattern.
//   - "/vendor/*" matches "/vendor" and everything below it
//   - "*.pdf" matches any file ending in .pdf
//   - other patterns use filepath.Match, against the full path and, for
//     patterns without a slash, against the base name
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		if strings.HasSuffix(path, strings.TrimPrefix(pattern, "*")) {
			return true
		}
	}

	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}

	if !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}

	return false
}
