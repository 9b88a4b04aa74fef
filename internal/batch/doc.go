// Package batch crawls several repositories concurrently.
//
// Each repository gets its own crawl session, created fresh for it. At most
// the configured number of sessions run at once; a failed repository does
// not stop the others.
package batch
