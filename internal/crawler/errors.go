package crawler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nao1215/repocrawl/internal/model"
)

// Crawl errors. Callers match them with errors.Is.
var (
	// ErrMalformedAddress is returned when an address is not an absolute
	// http(s) URL. No request is made for such addresses.
	ErrMalformedAddress = model.ErrMalformedAddress

	// ErrRemoteUnavailable is returned when a page cannot be fetched: the
	// host is unreachable or it answered with a non-2xx status. On the root
	// address it aborts the crawl; on any other directory it only aborts
	// that branch.
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// ErrExtraction wraps failures of a file's extraction job. These are
	// counted and logged but never abort the crawl.
	ErrExtraction = errors.New("extraction failed")

	// ErrBodyTooLarge is returned when a response body exceeds the
	// fetcher's size limit. Truncated content is never returned.
	ErrBodyTooLarge = errors.New("response body too large")
)

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	// URL is the requested address.
	URL string

	// StatusCode is the HTTP status code received.
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s for %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// Retryable reports whether repeating the request may succeed.
// Server errors and 429 are retryable; other client errors are not.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}
