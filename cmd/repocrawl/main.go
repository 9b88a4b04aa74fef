// Package main provides the entry point for the repocrawl CLI.
//
// repocrawl walks the directory tree of a hosted source repository through
// its web pages and records per-file statistics for every file it finds.
//
// Usage:
//
//	repocrawl crawl <repository-url>...
//	repocrawl history [repository-url]
//
// See --help for all available options.
package main

func main() {
	Execute()
}
