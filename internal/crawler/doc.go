// Package crawler walks the directory tree of a remote source repository
// exposed through an HTML file browser and launches one extraction job per
// file it discovers.
//
// # Architecture
//
// A crawl is driven by Crawler.CrawlRepository and built from small parts:
//
//   - Lister: fetches a directory page and returns the marked content links
//   - Classifier: turns raw links into file and directory entries
//   - walker: expands every directory in its own goroutine
//   - Dispatcher: runs one extraction job per file
//   - Coordinator: counts in-flight expansions and jobs and signals when
//     both reach zero
//
// The Coordinator replaces timing guesses with explicit accounting: every
// unit is registered before its goroutine starts and deregistered after it
// has fully finished, so CrawlRepository returns exactly when the last unit
// the crawl caused is done.
//
// # Failures
//
// A root listing failure aborts the crawl with ErrRemoteUnavailable. Any
// other listing failure only prunes that branch and is recorded in the
// result. Extraction failures are counted and logged; they never affect
// other jobs or the traversal.
//
// # Usage
//
//	fetcher := crawler.NewHTTPFetcher(httpClient, crawler.WithRetries(3, time.Second))
//	c := crawler.New(crawler.NewHTMLLister(fetcher), extractor, crawler.WithMaxDepth(5))
//	result, err := c.CrawlRepository(ctx, "https://github.com/owner/repo")
package crawler
