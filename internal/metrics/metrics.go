package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/repocrawl/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "repocrawl"

// Outcome label values.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeCancelled = "cancelled"
)

// shutdownTimeout bounds how long Serve waits for in-flight scrapes.
const shutdownTimeout = 5 * time.Second

// Metrics holds the crawl collectors.
type Metrics struct {
	registry *prometheus.Registry

	PendingExpansions prometheus.Gauge
	PendingJobs       prometheus.Gauge
	ExpansionsTotal   *prometheus.CounterVec
	JobsTotal         *prometheus.CounterVec
	CrawlsTotal       *prometheus.CounterVec
	CrawlDuration     prometheus.Histogram
	FilesExtracted    prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PendingExpansions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "pending_expansions",
			Help:      "Directory expansions registered but not yet finished.",
		}),
		PendingJobs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "pending_jobs",
			Help:      "Extraction jobs registered but not yet finished.",
		}),
		ExpansionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "expansions_total",
			Help:      "Finished directory expansions by outcome.",
		}, []string{"outcome"}),
		JobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "jobs_total",
			Help:      "Finished extraction jobs by outcome.",
		}, []string{"outcome"}),
		CrawlsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "crawls_total",
			Help:      "Finished repository crawls by status.",
		}, []string{"status"}),
		CrawlDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "crawl_duration_seconds",
			Help:      "Wall time of repository crawls.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		FilesExtracted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "files_extracted_total",
			Help:      "Files whose statistics were stored.",
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ExpansionStarted implements crawler.Observer.
func (m *Metrics) ExpansionStarted() {
	m.PendingExpansions.Inc()
}

// ExpansionFinished implements crawler.Observer.
func (m *Metrics) ExpansionFinished(err error) {
	m.PendingExpansions.Dec()
	m.ExpansionsTotal.WithLabelValues(outcomeOf(err)).Inc()
}

// JobStarted implements crawler.Observer.
func (m *Metrics) JobStarted() {
	m.PendingJobs.Inc()
}

// JobFinished implements crawler.Observer.
func (m *Metrics) JobFinished(err error) {
	m.PendingJobs.Dec()
	outcome := outcomeOf(err)
	m.JobsTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		m.FilesExtracted.Inc()
	}
}

// ObserveCrawl records a finished crawl.
func (m *Metrics) ObserveCrawl(result *model.CrawlResult) {
	if result == nil {
		return
	}
	m.CrawlsTotal.WithLabelValues(result.Status()).Inc()
	m.CrawlDuration.Observe(result.Duration().Seconds())
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx ends.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	default:
		return OutcomeFailure
	}
}
