package crawler

import "fmt"

// ErrorKind classifies failures recorded during a run. Invalid URLs
// are dropped silently and never produce a CrawlError.
type ErrorKind string

// Error kinds in the crawl taxonomy.
const (
	KindTransport  ErrorKind = "transport"
	KindExtraction ErrorKind = "extraction"
	KindDownload   ErrorKind = "download"
	KindDirectory  ErrorKind = "directory"
)

// CrawlError attaches a taxonomy kind and the offending URL to an
// underlying error. Per-page errors are recorded and never terminate
// the crawl loop; only KindDirectory is fatal to starting a run.
type CrawlError struct {
	Kind ErrorKind
	URL  string
	Err  error
}

// Error implements the error interface.
func (e *CrawlError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error for %s: %v", e.Kind, e.URL, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *CrawlError) Unwrap() error { return e.Err }

// NewTransportError wraps a fetch failure after retries are exhausted.
func NewTransportError(url string, err error) *CrawlError {
	return &CrawlError{Kind: KindTransport, URL: url, Err: err}
}

// NewExtractionError wraps a per-page parse or extraction failure.
func NewExtractionError(url string, err error) *CrawlError {
	return &CrawlError{Kind: KindExtraction, URL: url, Err: err}
}

// NewDownloadError wraps a per-asset download failure.
func NewDownloadError(url string, err error) *CrawlError {
	return &CrawlError{Kind: KindDownload, URL: url, Err: err}
}

// NewDirectoryError wraps a download-directory setup failure. The
// offending path rides in the URL field.
func NewDirectoryError(path string, err error) *CrawlError {
	return &CrawlError{Kind: KindDirectory, URL: path, Err: err}
}
