package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/repocrawl/internal/batch"
	"github.com/nao1215/repocrawl/internal/config"
	"github.com/nao1215/repocrawl/internal/crawler"
	"github.com/nao1215/repocrawl/internal/database"
	"github.com/nao1215/repocrawl/internal/extract"
	"github.com/nao1215/repocrawl/internal/log"
	"github.com/nao1215/repocrawl/internal/metrics"
	"github.com/nao1215/repocrawl/internal/model"
	"github.com/nao1215/repocrawl/internal/report"
	"github.com/spf13/cobra"
)

// statsStore is where extraction jobs write and reports read file statistics.
// *database.StatsDB and *extract.MemoryStore satisfy it.
type statsStore interface {
	extract.Store
	ListFileStats(ctx context.Context, prefix string) ([]*model.FileStats, error)
}

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [repository-url]...",
		Short: "Crawl repositories and collect file statistics",
		Long: `Crawl walks the directory tree of each repository through its web pages.

Every directory page is fetched and its entries are classified; each
subdirectory is expanded concurrently and each file is handed to an
extraction job that downloads its raw content and records language, line
counts, size and hash. The command returns once every expansion and job
has finished.

Examples:
  # Crawl a single repository
  repocrawl crawl https://github.com/nao1215/markdown

  # Crawl several repositories, two at a time
  repocrawl crawl -b 2 https://github.com/o/a https://github.com/o/b

  # Limit the crawl to two directory levels and 8 concurrent page fetches
  repocrawl crawl -d 2 -n 8 https://github.com/o/r

  # Write a Markdown report without touching the database
  repocrawl crawl --no-db -m -o report.md https://github.com/o/r

  # Skip files extracted during the last day and expose Prometheus metrics
  repocrawl crawl --skip-recent 24h --metrics-addr :9090 https://github.com/o/r

Configuration file (.repocrawl) example:
  defaults:
    ignorePatterns: ["/vendor/*"]
  hosts:
    github.com:
      cookie: "user_session=..."
      depth: 3`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Maximum directory depth below the root (0 = unlimited)")
	cmd.Flags().IntP("fetch-concurrency", "n", 0,
		"Maximum concurrent directory page fetches per repository (0 = unbounded)")
	cmd.Flags().IntP("job-concurrency", "J", 0,
		"Maximum concurrent extraction jobs per repository (0 = unbounded)")
	cmd.Flags().IntP("retries", "r", config.DefaultRetries,
		"Retries after a failed page fetch")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of repositories crawled concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .repocrawl in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// Storage flags
	cmd.Flags().Bool("no-db", false,
		"Keep statistics in memory instead of the database")
	cmd.Flags().Duration("skip-recent", 0,
		"Skip files whose stored statistics are younger than this duration")

	// Observability
	cmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling crawl...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, cmd.OutOrStdout(), logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.CrawlDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.FetchConcurrency, err = flags.GetInt("fetch-concurrency"); err != nil {
		return nil, err
	}
	if cfg.JobConcurrency, err = flags.GetInt("job-concurrency"); err != nil {
		return nil, err
	}
	if cfg.Retries, err = flags.GetInt("retries"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	if cfg.SkipRecent, err = flags.GetDuration("skip-recent"); err != nil {
		return nil, err
	}
	if cfg.MetricsAddr, err = flags.GetString("metrics-addr"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	// An explicit --config that does not exist is an error; a missing
	// default file is not.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.HostConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.HostConfigs = &config.File{Hosts: make(map[string]config.HostConfig)}
	}

	cfg.Targets = args

	return cfg, nil
}

// runCrawl crawls every target and writes one report per repository to
// stdout or cfg.ReportFile.
func runCrawl(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *slog.Logger) error {
	if len(cfg.Targets) == 0 {
		return config.ErrNoTarget
	}

	logger.Info("starting crawl",
		"targets", len(cfg.Targets),
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	var (
		store statsStore
		db    *database.StatsDB
	)
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
		store = db
	} else {
		store = extract.NewMemoryStore()
	}

	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		m = metrics.New()
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.Error("metrics server failed", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
	}

	out, closeOut, err := openReportOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	defer closeOut()
	writer := newReportWriter(cfg, out, stdout)

	client := &http.Client{Timeout: cfg.Timeout}

	processor := batch.New(
		func() batch.CrawlFunc {
			return func(ctx context.Context, root string) (*model.CrawlResult, error) {
				c := newCrawler(cfg, client, store, db, m, logger, root)
				return c.CrawlRepository(ctx, root)
			}
		},
		batch.WithConcurrency(cfg.BatchSize),
		batch.WithLogger(logger),
	)

	start := time.Now()
	var (
		mu     sync.Mutex
		failed int
	)
	batchErr := processor.ProcessWithCallback(ctx, cfg.Targets, func(o batch.Outcome, index int) {
		mu.Lock()
		defer mu.Unlock()

		if o.Err != nil && !errors.Is(o.Err, context.Canceled) {
			failed++
			fmt.Fprintf(os.Stderr, "Crawl error for %s: %v\n", o.Root, o.Err)
		}
		if o.Result == nil {
			return
		}

		fmt.Fprintf(os.Stderr, "[%d/%d] %s: %s in %s\n",
			index+1, len(cfg.Targets), o.Result.Root, o.Result.Status(),
			o.Result.Duration().Round(time.Millisecond))

		if m != nil {
			m.ObserveCrawl(o.Result)
		}
		saveCrawlResult(ctx, db, o.Result, logger)

		if err := writeReport(ctx, writer, store, o.Result); err != nil {
			logger.Error("report failed", "root", o.Result.Root, "error", err)
		}
	})

	logger.Info("crawl finished",
		"targets", len(cfg.Targets),
		"failed", failed,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	switch {
	case batchErr != nil:
		return batchErr
	case ctx.Err() != nil:
		return ctx.Err()
	case failed > 0:
		return fmt.Errorf("%d of %d repositories could not be crawled", failed, len(cfg.Targets))
	}
	return nil
}

// newCrawler wires a crawler for one repository, applying the settings of
// the repository's host from the config file.
func newCrawler(
	cfg *config.Config,
	client *http.Client,
	store statsStore,
	db *database.StatsDB,
	m *metrics.Metrics,
	logger *slog.Logger,
	root string,
) *crawler.Crawler {
	var host config.HostConfig
	if u, err := model.ParseAddress(root); err == nil {
		host = cfg.HostConfig(u.Host)
		logger.Debug("host configuration",
			"host", u.Host,
			"cookie", host.Cookie,
			"headers", host.Headers,
			"marker", host.Marker,
			"depth", host.Depth,
		)
	}

	fetcherOpts := []crawler.FetcherOption{
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithRetries(uint64(cfg.Retries), cfg.RetryInterval), //nolint:gosec // validated non-negative
		crawler.WithFetcherLogger(logger),
	}
	if host.Cookie != "" {
		fetcherOpts = append(fetcherOpts, crawler.WithCookie(host.Cookie))
	}
	if len(host.Headers) > 0 {
		fetcherOpts = append(fetcherOpts, crawler.WithHeaders(host.Headers))
	}
	fetcher := crawler.NewHTTPFetcher(client, fetcherOpts...)

	var listerOpts []crawler.ListerOption
	if host.Marker != "" {
		listerOpts = append(listerOpts, crawler.WithMarkerSelector(host.Marker))
	}
	lister := crawler.NewHTMLLister(fetcher, listerOpts...)

	extractOpts := []extract.Option{extract.WithLogger(logger)}
	if db != nil && cfg.SkipRecent > 0 {
		extractOpts = append(extractOpts, extract.WithSkipRecent(db, cfg.SkipRecent))
	}
	extractor := extract.New(fetcher, store, extractOpts...)

	depth := cfg.CrawlDepth
	if host.Depth > 0 {
		depth = host.Depth
	}

	opts := []crawler.Option{
		crawler.WithLogger(logger),
		crawler.WithMaxDepth(depth),
		crawler.WithFetchConcurrency(cfg.FetchConcurrency),
		crawler.WithJobConcurrency(cfg.JobConcurrency),
		crawler.WithIgnorePatterns(host.IgnorePatterns),
		crawler.WithFollowPatterns(host.FollowPatterns),
	}
	if m != nil {
		opts = append(opts, crawler.WithObserver(m))
	}

	return crawler.New(lister, extractor, opts...)
}

// openReportOutput returns the report destination: path when set,
// otherwise stdout. The returned close function is always safe to call.
func openReportOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// reports list repository addresses, which may be private
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided output path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil //nolint:errcheck
}

// newReportWriter picks the report format. When a structured report goes
// to a file, a text summary is also printed to stdout.
func newReportWriter(cfg *config.Config, out, stdout io.Writer) report.Writer {
	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}

	if cfg.ReportFile != "" {
		return report.NewMultiWriter(w, report.NewSimpleWriter(stdout))
	}
	return w
}

// writeReport builds the repository report from the stored statistics of
// the files under the crawled root.
func writeReport(ctx context.Context, w report.Writer, store statsStore, result *model.CrawlResult) error {
	// statistics outlive a cancelled crawl context
	files, err := store.ListFileStats(context.WithoutCancel(ctx), result.Root+"/")
	if err != nil {
		return fmt.Errorf("failed to list file statistics: %w", err)
	}

	_, err = w.Write(model.NewRepositoryReport(result, files))
	return err
}

// saveCrawlResult records the crawl session. If db is nil it is a no-op.
func saveCrawlResult(ctx context.Context, db *database.StatsDB, result *model.CrawlResult, logger *slog.Logger) {
	if db == nil {
		return
	}

	id, err := db.SaveCrawlResult(context.WithoutCancel(ctx), result)
	if err != nil {
		logger.Error("failed to save crawl result", "root", result.Root, "error", err)
		return
	}
	logger.Info("crawl result saved to database", "root", result.Root, "id", id)
}
