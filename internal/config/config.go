package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/repocrawl/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "repocrawl"

	// DefaultTimeout bounds each HTTP request attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultCrawlDepth of 0 expands the whole tree.
	DefaultCrawlDepth = 0

	// DefaultBatchSize is the number of repositories crawled at once.
	DefaultBatchSize = 4

	// DefaultRetries is the number of retries after a failed page fetch.
	DefaultRetries = 2

	// DefaultRetryInterval is the first backoff interval between retries.
	DefaultRetryInterval = 500 * time.Millisecond

	// DefaultUserAgent identifies repocrawl in HTTP requests.
	DefaultUserAgent = "repocrawl/1.0 (+https://github.com/nao1215/repocrawl)"

	// DefaultMaxBodySize limits the response body size read per page or file.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB
)

// Config holds all configuration options for repocrawl.
// It is populated from CLI flags and passed through the application rather
// than kept in global state.
type Config struct {
	// Targets are the repository root addresses to crawl.
	Targets []string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// CrawlDepth limits how many directory levels below the root are
	// expanded. 0 means unlimited.
	CrawlDepth int

	// FetchConcurrency caps concurrent directory page fetches per crawl.
	// 0 leaves the fan-out unbounded.
	FetchConcurrency int

	// JobConcurrency caps concurrent extraction jobs per crawl.
	// 0 leaves jobs unbounded.
	JobConcurrency int

	// BatchSize is the number of repositories crawled concurrently.
	BatchSize int

	// Retries is the number of retries after a failed fetch.
	Retries int

	// RetryInterval is the first backoff interval between retries.
	RetryInterval time.Duration

	// Verbose enables debug logging. When false only warnings and errors
	// are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file. If empty,
	// FindConfigFile searches the default locations.
	ConfigFilePath string

	// HostConfigs holds per-host settings loaded from the config file.
	HostConfigs *File

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file for the report; stdout when empty.
	ReportFile string

	// DBDir is the directory of the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/repocrawl on Linux).
	DBDir string

	// SaveToDB enables persistence of file statistics and crawl sessions.
	// When false, statistics are kept in memory for the report only.
	SaveToDB bool

	// SkipRecent skips files whose stored statistics are younger than this.
	// 0 extracts every file. Requires SaveToDB.
	SkipRecent time.Duration

	// MetricsAddr is the listen address of the Prometheus endpoint.
	// Metrics are not served when empty.
	MetricsAddr string

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:       DefaultTimeout,
		CrawlDepth:    DefaultCrawlDepth,
		BatchSize:     DefaultBatchSize,
		Retries:       DefaultRetries,
		RetryInterval: DefaultRetryInterval,
		DBDir:         XDGDataDir(),
		SaveToDB:      true,
		UserAgent:     DefaultUserAgent,
		MaxBodySize:   DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for repocrawl.
// On Linux: ~/.local/share/repocrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for repocrawl.
// On Linux: ~/.config/repocrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// HostConfig returns the merged configuration for host. Without a loaded
// config file it returns the zero HostConfig.
func (c *Config) HostConfig(host string) HostConfig {
	if c.HostConfigs == nil {
		return HostConfig{}
	}
	return c.HostConfigs.GetHostConfig(host)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	for _, target := range c.Targets {
		if _, err := model.ParseAddress(target); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTarget, err)
		}
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.CrawlDepth < 0 {
		return ErrInvalidDepth
	}

	if c.FetchConcurrency < 0 || c.JobConcurrency < 0 {
		return ErrInvalidConcurrency
	}

	if c.Retries < 0 {
		return ErrInvalidRetries
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.SkipRecent < 0 {
		return ErrInvalidSkipRecent
	}

	return nil
}
