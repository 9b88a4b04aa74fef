package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/repocrawl/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of repositories crawled at once when no
// limit is configured.
const DefaultConcurrency = 4

// CrawlFunc crawls a single repository. *crawler.Crawler's CrawlRepository
// method satisfies it.
type CrawlFunc func(ctx context.Context, root string) (*model.CrawlResult, error)

// Outcome is the result of crawling one repository of a batch.
type Outcome struct {
	// Root is the repository address as given.
	Root string

	// Result is the crawl result. It is nil when the root was malformed or
	// the repository was never started because the batch was cancelled.
	Result *model.CrawlResult

	// Err is the error returned by the crawl.
	Err error
}

// Processor crawls multiple repositories with a concurrency limit.
type Processor struct {
	// crawlFactory creates the crawl function for each repository so that
	// sessions share no state.
	crawlFactory func() CrawlFunc

	concurrency int
	logger      *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent crawls.
// Non-positive values keep the default.
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// New creates a Processor. crawlFactory is called once per repository.
func New(crawlFactory func() CrawlFunc, opts ...Option) *Processor {
	p := &Processor{
		crawlFactory: crawlFactory,
		concurrency:  DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// Process crawls every root and returns one Outcome per root, in input
// order. Individual crawl failures are reported in the outcomes; the
// returned error is only set when ctx ended before every crawl started.
func (p *Processor) Process(ctx context.Context, roots []string) ([]Outcome, error) {
	outcomes := make([]Outcome, len(roots))
	for i, root := range roots {
		outcomes[i].Root = root
	}

	var mu sync.Mutex
	err := p.ProcessWithCallback(ctx, roots, func(o Outcome, index int) {
		mu.Lock()
		outcomes[index] = o
		mu.Unlock()
	})

	return outcomes, err
}

// ProcessWithCallback crawls every root and calls callback as each crawl
// finishes. The callback runs on the crawl's goroutine and must be safe for
// concurrent use. Roots skipped because ctx ended get no callback.
func (p *Processor) ProcessWithCallback(ctx context.Context, roots []string, callback func(o Outcome, index int)) error {
	p.logger.Info("starting batch crawl",
		"repositories", len(roots),
		"concurrency", p.concurrency,
	)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, root := range roots {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			p.logger.Info("crawling repository",
				"root", root,
				"index", i+1,
				"total", len(roots),
			)

			result, err := p.crawlFactory()(gctx, root)
			if err != nil {
				p.logger.Warn("crawl failed", "root", root, "error", err)
			} else {
				p.logger.Info("crawl completed", "root", root, "status", result.Status())
			}

			callback(Outcome{Root: root, Result: result, Err: err}, i)

			// A failing repository must not cancel its siblings.
			return nil
		})
	}

	err := g.Wait()

	p.logger.Info("batch crawl complete",
		"repositories", len(roots),
		"elapsed", time.Since(start),
	)

	return err
}
