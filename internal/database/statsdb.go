package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/repocrawl/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "repocrawl.db"

// StatsDB stores per-file statistics and crawl session results in SQLite.
// It is safe for concurrent use: extraction jobs write through it from many
// goroutines and database/sql serializes them onto the single connection.
type StatsDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures StatsDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a StatsDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*StatsDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}
	// concurrent extraction jobs queue on the single connection instead of
	// failing with SQLITE_BUSY
	dsn += "&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &StatsDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := sdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return sdb, nil
}

// Path returns the database file path.
func (sdb *StatsDB) Path() string {
	return sdb.dbPath
}

// Close closes the database connection.
func (sdb *StatsDB) Close() error {
	return sdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (sdb *StatsDB) createTables() error {
	schema := `
	-- One row per file, keyed by its blob address. Re-extraction overwrites.
	CREATE TABLE IF NOT EXISTS file_stats (
		address TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		name TEXT NOT NULL,
		extension TEXT,
		language TEXT NOT NULL,
		bytes INTEGER NOT NULL,
		lines INTEGER NOT NULL,
		blank_lines INTEGER NOT NULL,
		code_lines INTEGER NOT NULL,
		binary INTEGER NOT NULL,
		hash TEXT NOT NULL,
		extracted_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_file_stats_language ON file_stats(language);

	-- Crawl sessions store the aggregate result of every crawl as JSON
	CREATE TABLE IF NOT EXISTS crawl_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		root TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		status TEXT NOT NULL,
		files_extracted INTEGER NOT NULL,
		failures INTEGER NOT NULL,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_root ON crawl_sessions(root);
	CREATE INDEX IF NOT EXISTS idx_sessions_started ON crawl_sessions(started_at);
	`

	_, err := sdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveFileStats inserts or replaces the statistics of one file.
// Saving the same address twice leaves a single row with the latest values.
func (sdb *StatsDB) SaveFileStats(ctx context.Context, stats *model.FileStats) error {
	if stats == nil {
		return errors.New("nil file stats")
	}

	query := `
	INSERT INTO file_stats (address, path, name, extension, language, bytes, lines, blank_lines, code_lines, binary, hash, extracted_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(address) DO UPDATE SET
		path = excluded.path,
		name = excluded.name,
		extension = excluded.extension,
		language = excluded.language,
		bytes = excluded.bytes,
		lines = excluded.lines,
		blank_lines = excluded.blank_lines,
		code_lines = excluded.code_lines,
		binary = excluded.binary,
		hash = excluded.hash,
		extracted_at = excluded.extracted_at
	`

	_, err := sdb.db.ExecContext(ctx, query,
		stats.Address,
		stats.Path,
		stats.Name,
		stats.Extension,
		stats.Language,
		stats.Bytes,
		stats.Lines,
		stats.BlankLines,
		stats.CodeLines,
		boolToInt(stats.Binary),
		stats.Hash,
		formatTimestamp(stats.ExtractedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save file stats for %s: %w", stats.Address, err)
	}

	return nil
}

const fileStatsColumns = `address, path, name, extension, language, bytes, lines, blank_lines, code_lines, binary, hash, extracted_at`

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanFileStats(s scanner) (*model.FileStats, error) {
	var stats model.FileStats
	var extension sql.NullString
	var binary int
	var extractedAt string

	err := s.Scan(
		&stats.Address,
		&stats.Path,
		&stats.Name,
		&extension,
		&stats.Language,
		&stats.Bytes,
		&stats.Lines,
		&stats.BlankLines,
		&stats.CodeLines,
		&binary,
		&stats.Hash,
		&extractedAt,
	)
	if err != nil {
		return nil, err
	}

	stats.Extension = extension.String
	stats.Binary = binary != 0
	stats.ExtractedAt = parseTimestamp(extractedAt)

	return &stats, nil
}

// GetFileStats retrieves the statistics stored for address.
// It returns nil without error when nothing is stored.
func (sdb *StatsDB) GetFileStats(ctx context.Context, address string) (*model.FileStats, error) {
	query := `SELECT ` + fileStatsColumns + ` FROM file_stats WHERE address = ?`

	stats, err := scanFileStats(sdb.db.QueryRowContext(ctx, query, address))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file stats: %w", err)
	}

	return stats, nil
}

// ListFileStats returns the statistics of every file whose address starts
// with prefix, ordered by address. An empty prefix lists everything.
func (sdb *StatsDB) ListFileStats(ctx context.Context, prefix string) ([]*model.FileStats, error) {
	query := `SELECT ` + fileStatsColumns + ` FROM file_stats
	WHERE substr(address, 1, length(?)) = ?
	ORDER BY address`

	rows, err := sdb.db.QueryContext(ctx, query, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list file stats: %w", err)
	}
	defer rows.Close()

	results := make([]*model.FileStats, 0)
	for rows.Next() {
		stats, err := scanFileStats(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file stats: %w", err)
		}
		results = append(results, stats)
	}

	return results, rows.Err()
}

// HasRecentStats reports whether address was extracted within duration.
func (sdb *StatsDB) HasRecentStats(ctx context.Context, address string, duration time.Duration) (bool, error) {
	stats, err := sdb.GetFileStats(ctx, address)
	if err != nil {
		return false, err
	}
	if stats == nil || stats.ExtractedAt.IsZero() {
		return false, nil
	}
	return time.Since(stats.ExtractedAt) < duration, nil
}

// SaveCrawlResult stores the outcome of a crawl session and returns its ID.
func (sdb *StatsDB) SaveCrawlResult(ctx context.Context, result *model.CrawlResult) (int64, error) {
	if result == nil {
		return 0, errors.New("nil crawl result")
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize crawl result: %w", err)
	}

	query := `
	INSERT INTO crawl_sessions (root, started_at, finished_at, status, files_extracted, failures, result_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := sdb.db.ExecContext(ctx, query,
		result.Root,
		formatTimestamp(result.StartedAt),
		formatTimestamp(result.FinishedAt),
		result.Status(),
		result.FilesExtracted,
		result.ExtractionFailures+len(result.FailedBranches),
		string(resultJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save crawl result: %w", err)
	}

	return res.LastInsertId()
}

// GetLatestCrawlResult retrieves the most recent crawl of root.
// It returns nil without error when root was never crawled.
func (sdb *StatsDB) GetLatestCrawlResult(ctx context.Context, root string) (*model.CrawlResult, error) {
	query := `
	SELECT result_json FROM crawl_sessions
	WHERE root = ?
	ORDER BY started_at DESC, id DESC
	LIMIT 1
	`

	return sdb.queryCrawlResult(ctx, query, root)
}

// GetCrawlResultByID retrieves a crawl session by its database ID.
func (sdb *StatsDB) GetCrawlResultByID(ctx context.Context, id int64) (*model.CrawlResult, error) {
	return sdb.queryCrawlResult(ctx, `SELECT result_json FROM crawl_sessions WHERE id = ?`, id)
}

func (sdb *StatsDB) queryCrawlResult(ctx context.Context, query string, args ...any) (*model.CrawlResult, error) {
	var resultJSON string
	err := sdb.db.QueryRowContext(ctx, query, args...).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl result: %w", err)
	}

	var result model.CrawlResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse crawl result: %w", err)
	}

	return &result, nil
}

// ListCrawledRepositories returns every repository root with at least one
// stored crawl session.
func (sdb *StatsDB) ListCrawledRepositories(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT root FROM crawl_sessions
	ORDER BY root
	`

	rows, err := sdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	defer rows.Close()

	var roots []string
	for rows.Next() {
		var root string
		if err := rows.Scan(&root); err != nil {
			return nil, fmt.Errorf("failed to scan repository: %w", err)
		}
		roots = append(roots, root)
	}

	return roots, rows.Err()
}

// SessionMetadata summarizes a stored crawl session without loading the
// full result.
type SessionMetadata struct {
	// ID is the unique identifier of the session in the database.
	ID int64

	// Root is the crawled repository address.
	Root string

	// StartedAt and FinishedAt bracket the crawl.
	StartedAt  time.Time
	FinishedAt time.Time

	// Status is the one-word status of the result.
	Status string

	// FilesExtracted counts successful extraction jobs.
	FilesExtracted int

	// Failures counts failed extraction jobs and failed branches.
	Failures int
}

// Duration returns the wall time of the session.
func (m SessionMetadata) Duration() time.Duration {
	if m.FinishedAt.IsZero() || m.StartedAt.IsZero() {
		return 0
	}
	return m.FinishedAt.Sub(m.StartedAt)
}

// GetCrawlHistory retrieves session metadata for root, newest first.
func (sdb *StatsDB) GetCrawlHistory(ctx context.Context, root string) ([]SessionMetadata, error) {
	query := `
	SELECT id, root, started_at, finished_at, status, files_extracted, failures
	FROM crawl_sessions
	WHERE root = ?
	ORDER BY started_at DESC, id DESC
	`

	rows, err := sdb.db.QueryContext(ctx, query, root)
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl history: %w", err)
	}
	defer rows.Close()

	var results []SessionMetadata
	for rows.Next() {
		var meta SessionMetadata
		var startedAt, finishedAt string

		if err := rows.Scan(&meta.ID, &meta.Root, &startedAt, &finishedAt, &meta.Status, &meta.FilesExtracted, &meta.Failures); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.StartedAt = parseTimestamp(startedAt)
		meta.FinishedAt = parseTimestamp(finishedAt)
		results = append(results, meta)
	}

	return results, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// formatTimestamp stores times as UTC RFC3339 with nanoseconds so that
// lexical order matches chronological order.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
