// Package database provides SQLite-based storage for repocrawl.
//
// StatsDB stores:
//   - per-file statistics, one row per blob address (re-extraction
//     overwrites the row, so extraction is idempotent)
//   - crawl sessions, the aggregate result of every crawl as JSON, used
//     by the history command
//
// SQLite is accessed through modernc.org/sqlite, a CGO-free driver, so the
// database is a single file in the data directory. WAL mode is enabled by
// default.
package database
