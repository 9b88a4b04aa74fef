package crawler

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/repocrawl/internal/model"
)

// blobSegment marks a file reference in a repository link path.
const blobSegment = "blob"

// Classifier turns raw content links into typed entries with absolute
// addresses. It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	// hostRoot is scheme://host of the crawl; relative links resolve
	// against it and links to other hosts are dropped.
	hostRoot *url.URL
}

// NewClassifier creates a Classifier for links found under hostRoot.
// Only the scheme and host of hostRoot are used.
func NewClassifier(hostRoot *url.URL) *Classifier {
	return &Classifier{hostRoot: model.HostRoot(hostRoot)}
}

// Classify converts raw fragments into entries, preserving their order.
// Blank fragments, fragments without an href and links that leave the host
// are dropped: directory pages legitimately contain such lines.
//
// A link is a file when one of its path segments is "blob"; every other
// link is treated as a directory.
func (c *Classifier) Classify(raw []model.RawEntry) []model.Entry {
	entries := make([]model.Entry, 0, len(raw))
	for _, fragment := range raw {
		if e, ok := c.classifyOne(fragment); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

// classifyOne classifies a single fragment.
func (c *Classifier) classifyOne(fragment model.RawEntry) (model.Entry, bool) {
	text := strings.TrimSpace(string(fragment))
	if text == "" {
		return model.Entry{}, false
	}

	href := firstHref(text)
	if href == "" {
		return model.Entry{}, false
	}

	resolved := c.resolveURL(href)
	if resolved == nil {
		return model.Entry{}, false
	}

	kind := model.KindDirectory
	if hasSegment(resolved.Path, blobSegment) {
		kind = model.KindFile
	}

	return model.Entry{Address: resolved.String(), Kind: kind}, true
}

// resolveURL resolves href against the host root. It returns nil for
// pseudo links and for links pointing at another host.
func (c *Classifier) resolveURL(href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "data:") {
		return nil
	}

	u, err := url.Parse(href)
	if err != nil {
		return nil
	}

	resolved := c.hostRoot.ResolveReference(u)
	resolved.Fragment = ""
	resolved.RawFragment = ""

	if !strings.EqualFold(resolved.Host, c.hostRoot.Host) {
		return nil
	}
	if resolved.Path == "" || resolved.Path == "/" {
		return nil
	}

	return resolved
}

// firstHref returns the href attribute of the first element in fragment.
// Fragments cut from the middle of a line, where the tokenizer sees no
// element, fall back to a plain href="..." scan.
func firstHref(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return scanHref(fragment)
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if href := getAttr(tok.Attr, "href"); href != "" {
				return href
			}
		}
	}
}

// scanHref extracts the value between href=" and the next quote.
func scanHref(fragment string) string {
	const prefix = `href="`
	start := strings.Index(fragment, prefix)
	if start < 0 {
		return ""
	}
	rest := fragment[start+len(prefix):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	return html.UnescapeString(rest[:end])
}

// getAttr retrieves an attribute value by key.
func getAttr(attrs []html.Attribute, key string) string {
	for _, attr := range attrs {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// hasSegment reports whether path contains segment as a whole element.
func hasSegment(path, segment string) bool {
	for _, s := range strings.Split(path, "/") {
		if s == segment {
			return true
		}
	}
	return false
}
