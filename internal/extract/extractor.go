package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nao1215/repocrawl/internal/model"
)

// ErrNotBlob is returned for addresses that do not reference a file.
var ErrNotBlob = errors.New("address is not a blob reference")

// Fetcher retrieves raw content. *crawler.HTTPFetcher satisfies it.
type Fetcher interface {
	FetchPage(ctx context.Context, address string) ([]byte, error)
}

// Store persists file statistics. Saving must be an upsert keyed by
// FileStats.Address so that repeated extraction is harmless.
type Store interface {
	SaveFileStats(ctx context.Context, stats *model.FileStats) error
}

// FreshnessChecker reports whether a file was extracted recently.
// *database.StatsDB satisfies it.
type FreshnessChecker interface {
	HasRecentStats(ctx context.Context, address string, maxAge time.Duration) (bool, error)
}

// Extractor fetches a file's raw content, computes its statistics and
// saves them. It is the per-file job run by the crawler's dispatcher.
type Extractor struct {
	fetcher Fetcher
	store   Store

	// contentURL maps a blob page address to the address of its raw content.
	contentURL func(string) (string, error)

	// fresh and maxAge enable skipping files extracted recently.
	fresh  FreshnessChecker
	maxAge time.Duration

	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithContentURL replaces RawAddress as the blob-to-content mapping.
func WithContentURL(fn func(string) (string, error)) Option {
	return func(e *Extractor) {
		if fn != nil {
			e.contentURL = fn
		}
	}
}

// WithSkipRecent skips files whose statistics are younger than maxAge.
func WithSkipRecent(checker FreshnessChecker, maxAge time.Duration) Option {
	return func(e *Extractor) {
		if checker != nil && maxAge > 0 {
			e.fresh = checker
			e.maxAge = maxAge
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New creates an Extractor reading through fetcher and writing to store.
func New(fetcher Fetcher, store Store, opts ...Option) *Extractor {
	e := &Extractor{
		fetcher:    fetcher,
		store:      store,
		contentURL: RawAddress,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e
}

// Extract computes and stores the statistics of the file at address.
func (e *Extractor) Extract(ctx context.Context, address string) error {
	if e.fresh != nil {
		recent, err := e.fresh.HasRecentStats(ctx, address, e.maxAge)
		if err != nil {
			e.logger.Debug("freshness check failed, extracting anyway", "url", address, "error", err)
		} else if recent {
			e.logger.Debug("skipping recently extracted file", "url", address)
			return nil
		}
	}

	contentURL, err := e.contentURL(address)
	if err != nil {
		return err
	}

	content, err := e.fetcher.FetchPage(ctx, contentURL)
	if err != nil {
		return fmt.Errorf("failed to fetch content of %s: %w", address, err)
	}

	stats := model.NewFileStats(address, content)
	if err := e.store.SaveFileStats(ctx, stats); err != nil {
		return err
	}

	e.logger.Debug("file extracted",
		"url", address,
		"language", stats.Language,
		"lines", stats.Lines,
		"bytes", stats.Bytes,
	)

	return nil
}

// RawAddress maps a blob page address to its raw content address by
// replacing the first "blob" path segment with "raw":
//
//	https://github.com/o/r/blob/main/go.mod -> https://github.com/o/r/raw/main/go.mod
func RawAddress(address string) (string, error) {
	u, err := model.ParseAddress(address)
	if err != nil {
		return "", err
	}

	segments := strings.Split(u.Path, "/")
	for i, seg := range segments {
		if seg == "blob" {
			segments[i] = "raw"
			raw := *u
			raw.Path = strings.Join(segments, "/")
			raw.RawPath = ""
			raw.RawQuery = ""
			raw.Fragment = ""
			return raw.String(), nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNotBlob, address)
}
