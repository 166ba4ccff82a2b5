// Package crawler defines the core types shared across the crawl
// subsystems: the immutable per-run configuration, the accumulated
// result set, extraction records, the error taxonomy, and URL helpers.
package crawler
