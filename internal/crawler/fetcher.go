package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/nao1215/repocrawl/internal/model"
)

// Default fetcher settings.
const (
	// DefaultUserAgent identifies repocrawl in HTTP requests.
	DefaultUserAgent = "repocrawl/1.0 (+https://github.com/nao1215/repocrawl)"

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultRetryInterval is the first backoff interval between retries.
	DefaultRetryInterval = 500 * time.Millisecond
)

// PageFetcher retrieves the raw body of a page.
// Implementations return an error wrapping ErrRemoteUnavailable when the
// host cannot be reached or answers with a non-2xx status.
type PageFetcher interface {
	FetchPage(ctx context.Context, address string) ([]byte, error)
}

// PageFetcherFunc adapts a function to the PageFetcher interface.
type PageFetcherFunc func(ctx context.Context, address string) ([]byte, error)

// FetchPage calls f.
func (f PageFetcherFunc) FetchPage(ctx context.Context, address string) ([]byte, error) {
	return f(ctx, address)
}

// HTTPFetcher fetches pages over HTTP. It optionally retries transient
// failures with exponential backoff; without WithRetries every request is
// attempted exactly once.
type HTTPFetcher struct {
	// client performs the requests. Its Timeout bounds each attempt.
	client *http.Client

	// userAgent is sent with every request.
	userAgent string

	// maxBodySize limits how many body bytes are read.
	maxBodySize int64

	// headers are extra request headers.
	headers map[string]string

	// cookie is sent as the Cookie header when non-empty.
	cookie string

	// retries is the number of retries after the first attempt.
	retries uint64

	// retryInterval is the initial backoff interval.
	retryInterval time.Duration

	logger *slog.Logger
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the maximum number of body bytes read per response.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *HTTPFetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithHeaders adds custom request headers.
func WithHeaders(headers map[string]string) FetcherOption {
	return func(f *HTTPFetcher) {
		for k, v := range headers {
			f.headers[k] = v
		}
	}
}

// WithCookie sets a Cookie header, e.g. "name=value; other=value".
func WithCookie(cookie string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.cookie = cookie
	}
}

// WithRetries enables up to n retries with exponential backoff starting at
// interval. Client errors other than 429 are never retried.
func WithRetries(n uint64, interval time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		f.retries = n
		if interval > 0 {
			f.retryInterval = interval
		}
	}
}

// WithFetcherLogger sets the logger used to report retries.
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		f.logger = logger
	}
}

// NewHTTPFetcher creates a fetcher using client. A nil client means
// http.DefaultClient.
func NewHTTPFetcher(client *http.Client, opts ...FetcherOption) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}

	f := &HTTPFetcher{
		client:        client,
		userAgent:     DefaultUserAgent,
		maxBodySize:   DefaultMaxBodySize,
		headers:       make(map[string]string),
		retryInterval: DefaultRetryInterval,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.logger == nil {
		f.logger = slog.Default()
	}

	return f
}

// FetchPage fetches address and returns the body.
// Malformed addresses fail with ErrMalformedAddress before any request;
// every other failure wraps ErrRemoteUnavailable. A body larger than the
// size limit also wraps ErrBodyTooLarge and is not retried.
func (f *HTTPFetcher) FetchPage(ctx context.Context, address string) ([]byte, error) {
	if _, err := model.ParseAddress(address); err != nil {
		return nil, err
	}

	var body []byte
	operation := func() error {
		b, err := f.fetchOnce(ctx, address)
		if err != nil {
			var statusErr *StatusError
			if errors.As(err, &statusErr) && !statusErr.Retryable() {
				return backoff.Permanent(err)
			}
			if errors.Is(err, ErrBodyTooLarge) {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = f.retryInterval
	policy.MaxElapsedTime = 0

	notify := func(err error, wait time.Duration) {
		f.logger.Debug("retrying page fetch",
			"url", address,
			"wait", wait,
			"error", err,
		)
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(policy, f.retries), ctx), notify)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRemoteUnavailable, address, err)
	}

	return body, nil
}

// fetchOnce performs a single GET request.
func (f *HTTPFetcher) fetchOnce(ctx context.Context, address string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	if f.cookie != "" {
		req.Header.Set("Cookie", f.cookie)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best effort
		return nil, &StatusError{URL: address, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, address, f.maxBodySize)
	}
	return body, nil
}
