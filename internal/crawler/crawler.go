package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/nao1215/repocrawl/internal/model"
)

// Crawler walks repository trees and dispatches one extraction job per file.
// A Crawler holds configuration only; every CrawlRepository call runs an
// independent session, so a single Crawler may serve concurrent crawls.
type Crawler struct {
	lister    Lister
	extractor Extractor

	// maxDepth limits directory recursion below the root. 0 means unlimited.
	maxDepth int

	// fetchConcurrency caps concurrent listings. 0 means unbounded.
	fetchConcurrency int

	// jobConcurrency caps concurrent extraction jobs. 0 means unbounded.
	jobConcurrency int

	ignorePatterns []string
	followPatterns []string

	logger   *slog.Logger
	observer Observer
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// WithObserver sets the observer notified of expansion and job events.
func WithObserver(observer Observer) Option {
	return func(c *Crawler) {
		if observer != nil {
			c.observer = observer
		}
	}
}

// WithMaxDepth limits how many directory levels below the root are
// expanded. Directories beyond the limit are counted as skipped.
func WithMaxDepth(depth int) Option {
	return func(c *Crawler) {
		if depth >= 0 {
			c.maxDepth = depth
		}
	}
}

// WithFetchConcurrency caps the number of directory pages fetched at once.
func WithFetchConcurrency(n int) Option {
	return func(c *Crawler) {
		if n >= 0 {
			c.fetchConcurrency = n
		}
	}
}

// WithJobConcurrency caps the number of extraction jobs running at once.
func WithJobConcurrency(n int) Option {
	return func(c *Crawler) {
		if n >= 0 {
			c.jobConcurrency = n
		}
	}
}

// WithIgnorePatterns sets glob patterns for repository paths to skip.
// Example: []string{"/vendor/*", "*.png"}
func WithIgnorePatterns(patterns []string) Option {
	return func(c *Crawler) {
		c.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts extraction to files matching at least one
// of the patterns. Directories are always expanded.
func WithFollowPatterns(patterns []string) Option {
	return func(c *Crawler) {
		c.followPatterns = patterns
	}
}

// New creates a Crawler listing directories with lister and handing files
// to extractor.
func New(lister Lister, extractor Extractor, opts ...Option) *Crawler {
	c := &Crawler{
		lister:    lister,
		extractor: extractor,
		observer:  nopObserver{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// CrawlRepository crawls the tree rooted at root and blocks until every
// directory expansion and extraction job it caused has finished.
//
// A malformed root fails with ErrMalformedAddress before any request. If
// the root page cannot be listed the crawl is aborted: no job is dispatched
// and the error wraps ErrRemoteUnavailable. Failures below the root are
// recorded in the result and do not make the call fail. When ctx is
// cancelled the crawl still waits for running units to stop and returns
// the partial result together with ctx.Err().
func (c *Crawler) CrawlRepository(ctx context.Context, root string) (*model.CrawlResult, error) {
	address, err := model.RootAddress(root)
	if err != nil {
		return nil, err
	}
	u, err := model.ParseAddress(address)
	if err != nil {
		return nil, err
	}

	result := model.NewCrawlResult(address)

	coord := NewCoordinator()
	dispatcher := NewDispatcher(c.extractor, coord,
		WithJobLimit(c.jobConcurrency),
		WithDispatcherLogger(c.logger),
		WithDispatcherObserver(c.observer),
	)

	w := &walker{
		lister:     c.lister,
		classifier: NewClassifier(u),
		dispatcher: dispatcher,
		coord:      coord,
		filter:     pathFilter{ignore: c.ignorePatterns, follow: c.followPatterns},
		maxDepth:   c.maxDepth,
		logger:     c.logger,
		observer:   c.observer,
		visited:    make(map[string]struct{}),
	}
	if c.fetchConcurrency > 0 {
		w.fetchSem = semaphore.NewWeighted(int64(c.fetchConcurrency))
	}

	c.logger.Info("starting crawl", "root", address)

	rootErr := w.expandRoot(ctx, address)
	coord.Wait()

	w.fill(result)
	dispatcher.fill(result)
	result.FinishedAt = time.Now().UTC()

	if rootErr != nil {
		if ctx.Err() != nil {
			result.Cancelled = true
			return result, ctx.Err()
		}
		return result, fmt.Errorf("failed to list repository root %s: %w", address, rootErr)
	}

	if ctx.Err() != nil {
		result.Cancelled = true
		c.logger.Warn("crawl cancelled", "root", address, "error", ctx.Err())
		return result, ctx.Err()
	}

	c.logger.Info("crawl completed",
		"root", address,
		"directories", result.DirectoriesExpanded,
		"files", result.FilesDispatched,
		"failures", result.ExtractionFailures+len(result.FailedBranches),
		"duration", result.Duration(),
	)

	return result, nil
}
