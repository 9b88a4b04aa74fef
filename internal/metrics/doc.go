// Package metrics exposes crawl progress as Prometheus metrics.
//
// Metrics implements crawler.Observer, so pending expansions and jobs are
// visible while a crawl is running. Each Metrics owns its registry; Serve
// publishes it on an HTTP endpoint.
package metrics
