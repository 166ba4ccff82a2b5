// Package fetcher implements HTTP retrieval with bounded retry using
// the Colly collector.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/sitegrab/sitegrab/internal/crawler"
)

const (
	defaultMaxAttempts = 3
	defaultRetryPause  = time.Second
)

// Config controls collector behavior.
type Config struct {
	UserAgent       string
	Timeout         time.Duration
	FollowRedirects bool
	// MaxAttempts is the total number of tries per URL (default 3).
	MaxAttempts int
	// RetryPause is the fixed wait between attempts (default 1s).
	RetryPause time.Duration
}

// Client fetches single URLs through a cloned-per-request Colly
// collector. Every transport-level failure, including non-2xx status
// codes, is retried up to MaxAttempts times with a fixed pause.
type Client struct {
	cfg           Config
	logger        *zap.Logger
	baseCollector *colly.Collector
}

// New builds a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryPause <= 0 {
		cfg.RetryPause = defaultRetryPause
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	base := colly.NewCollector(colly.UserAgent(cfg.UserAgent))
	// Retries re-visit the same URL, so the collector-level dedup must
	// stay off.
	base.AllowURLRevisit = true
	// Error-status responses flow through OnResponse so status
	// classification stays here: any 2xx succeeds, everything else is
	// retried.
	base.ParseHTTPErrorResponse = true
	base.WithTransport(newHTTPTransport())

	return &Client{
		cfg:           cfg,
		logger:        logger,
		baseCollector: base,
	}
}

// Fetch performs an HTTP GET with the configured retry policy. The
// returned error, after all attempts fail, is a *crawler.CrawlError of
// kind transport. The context is consulted between attempts only; an
// in-flight request runs to its per-attempt timeout.
func (c *Client) Fetch(ctx context.Context, rawURL string) (crawler.FetchResult, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return crawler.FetchResult{}, fmt.Errorf("fetch canceled: %w", err)
		}

		result, err := c.visit(rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err
		c.logger.Debug("fetch attempt failed",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < c.cfg.MaxAttempts {
			select {
			case <-time.After(c.cfg.RetryPause):
			case <-ctx.Done():
				return crawler.FetchResult{}, fmt.Errorf("fetch canceled: %w", ctx.Err())
			}
		}
	}
	return crawler.FetchResult{}, crawler.NewTransportError(rawURL, lastErr)
}

func (c *Client) visit(rawURL string) (crawler.FetchResult, error) {
	collector := c.baseCollector.Clone()
	collector.AllowURLRevisit = true
	collector.SetRequestTimeout(c.cfg.Timeout)
	if !c.cfg.FollowRedirects {
		collector.SetRedirectHandler(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		})
	}

	start := time.Now()
	var (
		result   crawler.FetchResult
		fetchErr error
		got      bool
	)

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	collector.OnResponse(func(r *colly.Response) {
		if r.StatusCode < 200 || r.StatusCode > 299 {
			fetchErr = fmt.Errorf("status %d", r.StatusCode)
			return
		}
		headers := http.Header{}
		if r.Headers != nil {
			headers = r.Headers.Clone()
		}
		result = crawler.FetchResult{
			URL:        rawURL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
		got = true
	})

	// Error-status responses are routed to OnResponse, so only
	// transport-level failures land here.
	collector.OnError(func(_ *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown collector error")
		}
		fetchErr = err
	})

	if err := collector.Visit(rawURL); err != nil {
		return crawler.FetchResult{}, fmt.Errorf("visit %s: %w", rawURL, err)
	}
	if fetchErr != nil {
		return crawler.FetchResult{}, fetchErr
	}
	if !got {
		return crawler.FetchResult{}, errors.New("collector produced no response")
	}
	return result, nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          64,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}
