package crawler

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/nao1215/repocrawl/internal/model"
)

// walker expands the directory tree of one crawl session. Every directory
// is expanded in its own goroutine; files are handed to the dispatcher.
//
// Node states: a directory goes Discovered -> Expanding -> Expanded (or
// failed), a file goes Discovered -> Dispatched. A directory counts as
// Expanded once its listing was classified and all of its children have
// finished, and only then is it deregistered from the coordinator.
type walker struct {
	lister     Lister
	classifier *Classifier
	dispatcher *Dispatcher
	coord      *Coordinator
	filter     pathFilter

	// maxDepth limits directory recursion; 0 means unlimited.
	maxDepth int

	// fetchSem caps concurrent listings; nil means no cap.
	fetchSem *semaphore.Weighted

	logger   *slog.Logger
	observer Observer

	visitedMu sync.Mutex
	visited   map[string]struct{}

	mu        sync.Mutex
	expanded  int
	skipped   int
	cancelled bool
	failures  []model.BranchFailure
}

// claim marks address as discovered. It returns false if the address was
// already claimed in this session, which guarantees each directory is
// expanded and each file is dispatched at most once.
func (w *walker) claim(address string) bool {
	key := model.NormalizeAddress(address)

	w.visitedMu.Lock()
	defer w.visitedMu.Unlock()

	if _, ok := w.visited[key]; ok {
		return false
	}
	w.visited[key] = struct{}{}
	return true
}

// list fetches and classifies one directory page.
func (w *walker) list(ctx context.Context, address string) ([]model.Entry, error) {
	if w.fetchSem != nil {
		if err := w.fetchSem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer w.fetchSem.Release(1)
	}

	raw, err := w.lister.List(ctx, address)
	if err != nil {
		return nil, err
	}

	return w.classifier.Classify(raw), nil
}

// expandRoot expands the repository root. Unlike other directories, a
// failure here is returned to the caller.
func (w *walker) expandRoot(ctx context.Context, address string) error {
	w.claim(address)
	w.coord.BeginExpansion()
	w.observer.ExpansionStarted()

	entries, err := w.list(ctx, address)
	if err != nil {
		w.recordFailure(ctx, address, err)
		w.observer.ExpansionFinished(err)
		w.coord.EndExpansion()
		return err
	}

	w.markExpanded()
	w.fanOut(ctx, entries, 0)

	w.observer.ExpansionFinished(nil)
	w.coord.EndExpansion()
	return nil
}

// expand expands a non-root directory. The caller has already registered
// the expansion with the coordinator.
func (w *walker) expand(ctx context.Context, dir model.Entry, depth int) {
	var err error
	defer func() {
		w.observer.ExpansionFinished(err)
		w.coord.EndExpansion()
	}()

	if err = ctx.Err(); err != nil {
		w.markCancelled()
		return
	}

	var entries []model.Entry
	entries, err = w.list(ctx, dir.Address)
	if err != nil {
		w.recordFailure(ctx, dir.Address, err)
		return
	}

	w.markExpanded()
	w.fanOut(ctx, entries, depth)
}

// fanOut dispatches the files of a listing and expands its directories
// concurrently, returning when every child expansion has finished.
func (w *walker) fanOut(ctx context.Context, entries []model.Entry, depth int) {
	if len(entries) == 0 {
		return
	}

	files, dirs := model.Partition(entries)

	for _, f := range files {
		if !w.admit(f) {
			continue
		}
		w.dispatcher.Dispatch(ctx, f)
	}

	var children sync.WaitGroup
	for _, d := range dirs {
		if w.maxDepth > 0 && depth+1 > w.maxDepth {
			w.skip()
			continue
		}
		if !w.admit(d) {
			continue
		}

		w.coord.BeginExpansion()
		w.observer.ExpansionStarted()
		children.Add(1)
		go func() {
			defer children.Done()
			w.expand(ctx, d, depth+1)
		}()
	}
	children.Wait()
}

// admit applies the path filter and the visited set.
func (w *walker) admit(e model.Entry) bool {
	if !w.filter.allows(e) {
		w.skip()
		return false
	}
	return w.claim(e.Address)
}

func (w *walker) markExpanded() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expanded++
}

func (w *walker) markCancelled() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancelled = true
}

func (w *walker) skip() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.skipped++
}

// recordFailure records a failed branch. Failures caused by cancellation
// only mark the session cancelled.
func (w *walker) recordFailure(ctx context.Context, address string, err error) {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		w.markCancelled()
		return
	}

	w.logger.Warn("directory listing failed, skipping branch", "url", address, "error", err)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.failures = append(w.failures, model.BranchFailure{Address: address, Error: err.Error()})
}

// fill copies the walker tallies into result.
func (w *walker) fill(result *model.CrawlResult) {
	w.mu.Lock()
	defer w.mu.Unlock()

	result.DirectoriesExpanded = w.expanded
	result.Skipped = w.skipped
	result.Cancelled = result.Cancelled || w.cancelled
	result.FailedBranches = append(result.FailedBranches, w.failures...)
}
