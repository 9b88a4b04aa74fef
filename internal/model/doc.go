// Package model defines the data structures shared by the crawler, the
// extraction job, the database and the report writers.
//
// This package contains the following main types:
//   - Entry / RawEntry: links found on a repository directory page
//   - FileStats: statistics recorded for a single file
//   - CrawlResult: the aggregate outcome of one crawl session
//   - RepositoryReport: a CrawlResult plus per-language summaries
//
// The models are serializable to JSON for report output and database
// storage. Page addresses are validated with ParseAddress before any
// network I/O.
package model
