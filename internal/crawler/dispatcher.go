package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/nao1215/repocrawl/internal/model"
)

// Extractor computes and persists the statistics of one file.
// Re-running it for the same address must be safe.
type Extractor interface {
	Extract(ctx context.Context, address string) error
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, address string) error

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, address string) error {
	return f(ctx, address)
}

// Dispatcher launches one extraction job per file and keeps the tallies of
// their outcomes. Jobs are registered with the Coordinator before their
// goroutine starts and deregistered after it ends, whatever the outcome.
type Dispatcher struct {
	extractor Extractor
	coord     *Coordinator

	// sem caps concurrently running jobs; nil means no cap.
	sem *semaphore.Weighted

	logger   *slog.Logger
	observer Observer

	mu         sync.Mutex
	dispatched int
	extracted  int
	abandoned  int
	failures   []model.FileFailure
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithJobLimit caps the number of extraction jobs running at once.
// Jobs over the cap are still registered immediately and wait for a slot.
// n <= 0 leaves jobs unbounded.
func WithJobLimit(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithDispatcherLogger sets the logger.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithDispatcherObserver sets the lifecycle observer.
func WithDispatcherObserver(observer Observer) DispatcherOption {
	return func(d *Dispatcher) {
		if observer != nil {
			d.observer = observer
		}
	}
}

// NewDispatcher creates a Dispatcher running extractor and reporting to coord.
func NewDispatcher(extractor Extractor, coord *Coordinator, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		extractor: extractor,
		coord:     coord,
		observer:  nopObserver{},
		failures:  make([]model.FileFailure, 0),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = slog.Default()
	}

	return d
}

// Dispatch starts the extraction job for file without waiting for it.
func (d *Dispatcher) Dispatch(ctx context.Context, file model.Entry) {
	d.coord.BeginJob()
	d.observer.JobStarted()

	d.mu.Lock()
	d.dispatched++
	d.mu.Unlock()

	d.logger.Debug("dispatching extraction job", "url", file.Address)

	go d.run(ctx, file)
}

// run executes one job. The deferred block always deregisters the job.
func (d *Dispatcher) run(ctx context.Context, file model.Entry) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: panic: %v", ErrExtraction, file.Address, r)
		}
		d.record(ctx, file, err)
		d.observer.JobFinished(err)
		d.coord.EndJob()
	}()

	if err = ctx.Err(); err != nil {
		return
	}

	if d.sem != nil {
		if err = d.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer d.sem.Release(1)
	}

	if extractErr := d.extractor.Extract(ctx, file.Address); extractErr != nil {
		err = fmt.Errorf("%w: %s: %w", ErrExtraction, file.Address, extractErr)
	}
}

// record stores the outcome of a job. Jobs abandoned because the session
// was cancelled are not counted as failures.
func (d *Dispatcher) record(ctx context.Context, file model.Entry, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err == nil {
		d.extracted++
		return
	}

	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		d.abandoned++
		return
	}

	d.failures = append(d.failures, model.FileFailure{Address: file.Address, Error: err.Error()})
	d.logger.Warn("extraction job failed", "url", file.Address, "error", err)
}

// fill copies the tallies into result.
func (d *Dispatcher) fill(result *model.CrawlResult) {
	d.mu.Lock()
	defer d.mu.Unlock()

	result.FilesDispatched = d.dispatched
	result.FilesExtracted = d.extracted
	result.ExtractionFailures = len(d.failures)
	result.FailedFiles = append(result.FailedFiles, d.failures...)
	if d.abandoned > 0 {
		result.Cancelled = true
	}
}
