package model

import (
	"bytes"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// binarySniffLength is how many leading bytes are inspected for NUL bytes
// when deciding whether content is binary.
const binarySniffLength = 8000

// languageUnknown labels files without a recognizable extension.
const languageUnknown = "Other"

// FileStats holds the statistics recorded for a single repository file.
type FileStats struct {
	// Address is the blob page URL the file was discovered under.
	// It is the persistence key.
	Address string `json:"address"`

	// Path is the file path inside the repository, e.g. "cmd/main.go".
	Path string `json:"path"`

	// Name is the last path element.
	Name string `json:"name"`

	// Extension is the lowercase file extension including the dot.
	Extension string `json:"extension,omitempty"`

	// Language is a display label derived from the extension.
	Language string `json:"language"`

	// Bytes is the content size.
	Bytes int64 `json:"bytes"`

	// Lines is the number of lines, counting a final unterminated line.
	Lines int `json:"lines"`

	// BlankLines is the number of lines containing only whitespace.
	BlankLines int `json:"blank_lines"`

	// CodeLines is Lines minus BlankLines.
	CodeLines int `json:"code_lines"`

	// Binary is set when the content contains NUL bytes; line counts are
	// zero for binary files.
	Binary bool `json:"binary"`

	// Hash is the hex SHA3-256 of the content.
	Hash string `json:"hash"`

	// ExtractedAt is when the statistics were computed.
	ExtractedAt time.Time `json:"extracted_at"`
}

// NewFileStats computes statistics for the content of the file at address.
func NewFileStats(address string, content []byte) *FileStats {
	repoPath := RepositoryPath(address)
	name := path.Base(repoPath)
	if name == "." || name == "/" {
		name = ""
	}
	ext := strings.ToLower(path.Ext(name))

	stats := &FileStats{
		Address:     address,
		Path:        repoPath,
		Name:        name,
		Extension:   ext,
		Language:    LanguageFor(name),
		Bytes:       int64(len(content)),
		Binary:      isBinary(content),
		ExtractedAt: time.Now().UTC(),
	}

	sum := sha3.Sum256(content)
	stats.Hash = hex.EncodeToString(sum[:])

	if !stats.Binary {
		stats.Lines, stats.BlankLines = countLines(content)
		stats.CodeLines = stats.Lines - stats.BlankLines
	}

	return stats
}

// RepositoryPath extracts the in-repository path from a blob or tree
// address. For "https://host/owner/repo/blob/main/cmd/main.go" it returns
// "cmd/main.go". Addresses without a blob/tree marker yield their URL path
// without the leading slash.
func RepositoryPath(address string) string {
	u, err := url.Parse(address)
	if err != nil {
		return address
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if (seg == "blob" || seg == "tree") && i+2 <= len(segments) {
			// segments[i+1] is the ref (branch, tag or commit)
			return strings.Join(segments[i+2:], "/")
		}
	}

	return strings.Trim(u.Path, "/")
}

// knownLanguages maps lowercase extensions or exact file names to labels.
var knownLanguages = map[string]string{
	".go":         "Go",
	".java":       "Java",
	".kt":         "Kotlin",
	".py":         "Python",
	".rb":         "Ruby",
	".rs":         "Rust",
	".c":          "C",
	".h":          "C",
	".cc":         "C++",
	".cpp":        "C++",
	".hpp":        "C++",
	".cs":         "C#",
	".js":         "JavaScript",
	".mjs":        "JavaScript",
	".ts":         "TypeScript",
	".tsx":        "TypeScript",
	".jsx":        "JavaScript",
	".php":        "PHP",
	".swift":      "Swift",
	".scala":      "Scala",
	".sh":         "Shell",
	".bash":       "Shell",
	".sql":        "SQL",
	".html":       "HTML",
	".htm":        "HTML",
	".css":        "CSS",
	".scss":       "SCSS",
	".md":         "Markdown",
	".json":       "JSON",
	".yaml":       "YAML",
	".yml":        "YAML",
	".toml":       "TOML",
	".xml":        "XML",
	".proto":      "Protocol Buffers",
	".txt":        "Text",
	"makefile":    "Makefile",
	"dockerfile":  "Dockerfile",
	"go.mod":      "Go Module",
	"go.sum":      "Go Checksums",
	"license":     "Text",
	".gitignore":  "Ignore List",
	".dockerfile": "Dockerfile",
}

// LanguageFor returns the display label for a file name. Unknown extensions
// are title-cased ("foo.zig" -> "Zig"); names without an extension map to
// "Other".
func LanguageFor(name string) string {
	lower := strings.ToLower(name)
	if lang, ok := knownLanguages[lower]; ok {
		return lang
	}

	ext := strings.ToLower(path.Ext(lower))
	if lang, ok := knownLanguages[ext]; ok {
		return lang
	}
	if ext == "" || ext == "." {
		return languageUnknown
	}

	return cases.Title(language.English).String(strings.TrimPrefix(ext, "."))
}

// isBinary reports whether content looks binary.
func isBinary(content []byte) bool {
	sniff := content
	if len(sniff) > binarySniffLength {
		sniff = sniff[:binarySniffLength]
	}
	return bytes.IndexByte(sniff, 0) >= 0
}

// countLines returns the total and whitespace-only line counts.
func countLines(content []byte) (lines, blank int) {
	if len(content) == 0 {
		return 0, 0
	}

	for len(content) > 0 {
		var line []byte
		if i := bytes.IndexByte(content, '\n'); i >= 0 {
			line, content = content[:i], content[i+1:]
		} else {
			line, content = content, nil
		}
		lines++
		if len(bytes.TrimSpace(line)) == 0 {
			blank++
		}
	}

	return lines, blank
}
