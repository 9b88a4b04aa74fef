package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/repocrawl/internal/crawler"
	"github.com/nao1215/repocrawl/internal/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ crawler.Observer = (*Metrics)(nil)

// TestObserver tests the crawler.Observer implementation.
func TestObserver(t *testing.T) {
	t.Parallel()

	t.Run("tracks pending expansions", func(t *testing.T) {
		t.Parallel()

		m := New()
		m.ExpansionStarted()
		m.ExpansionStarted()
		if got := testutil.ToFloat64(m.PendingExpansions); got != 2 {
			t.Errorf("expected 2 pending expansions, got %v", got)
		}

		m.ExpansionFinished(nil)
		m.ExpansionFinished(errors.New("unexpected status 503"))
		if got := testutil.ToFloat64(m.PendingExpansions); got != 0 {
			t.Errorf("expected 0 pending expansions, got %v", got)
		}
		if got := testutil.ToFloat64(m.ExpansionsTotal.WithLabelValues(OutcomeSuccess)); got != 1 {
			t.Errorf("expected 1 successful expansion, got %v", got)
		}
		if got := testutil.ToFloat64(m.ExpansionsTotal.WithLabelValues(OutcomeFailure)); got != 1 {
			t.Errorf("expected 1 failed expansion, got %v", got)
		}
	})

	t.Run("tracks jobs by outcome", func(t *testing.T) {
		t.Parallel()

		m := New()
		for i := 0; i < 3; i++ {
			m.JobStarted()
		}
		m.JobFinished(nil)
		m.JobFinished(fmt.Errorf("fetch: %w", context.Canceled))
		m.JobFinished(errors.New("database is locked"))

		if got := testutil.ToFloat64(m.PendingJobs); got != 0 {
			t.Errorf("expected 0 pending jobs, got %v", got)
		}
		if got := testutil.ToFloat64(m.FilesExtracted); got != 1 {
			t.Errorf("expected 1 extracted file, got %v", got)
		}
		if got := testutil.ToFloat64(m.JobsTotal.WithLabelValues(OutcomeCancelled)); got != 1 {
			t.Errorf("expected 1 cancelled job, got %v", got)
		}
		if got := testutil.ToFloat64(m.JobsTotal.WithLabelValues(OutcomeFailure)); got != 1 {
			t.Errorf("expected 1 failed job, got %v", got)
		}
	})

	t.Run("observes finished crawls", func(t *testing.T) {
		t.Parallel()

		m := New()
		result := model.NewCrawlResult("https://github.com/o/r")
		result.FinishedAt = result.StartedAt.Add(2 * time.Second)

		m.ObserveCrawl(result)
		m.ObserveCrawl(nil)

		if got := testutil.ToFloat64(m.CrawlsTotal.WithLabelValues("complete")); got != 1 {
			t.Errorf("expected 1 complete crawl, got %v", got)
		}
		if got := testutil.CollectAndCount(m.CrawlDuration); got != 1 {
			t.Errorf("expected duration histogram, got %d series", got)
		}
	})
}

// TestHandler tests the exposition endpoint.
func TestHandler(t *testing.T) {
	t.Parallel()

	m := New()
	m.JobStarted()

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL) //nolint:noctx
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(body), "repocrawl_pending_jobs 1") {
		t.Errorf("expected pending jobs gauge in output, got:\n%s", body)
	}
	if strings.Contains(string(body), "go_goroutines") {
		t.Error("expected a private registry without default collectors")
	}
}

// TestServe tests that Serve stops with its context.
func TestServe(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New().Serve(ctx, "127.0.0.1:0", nil)
	}()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}
