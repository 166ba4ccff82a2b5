// Package worker drives the crawl loop: it dequeues URLs from the
// frontier, fetches and extracts each page, schedules asset downloads,
// and reports progress until the frontier is exhausted or the run is
// stopped.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitegrab/sitegrab/internal/crawler"
	"github.com/sitegrab/sitegrab/internal/download"
	"github.com/sitegrab/sitegrab/internal/extractor"
	"github.com/sitegrab/sitegrab/internal/frontier"
	"github.com/sitegrab/sitegrab/internal/progress"
)

// State is the run lifecycle phase.
type State string

// Run states. Completed, Stopped, and Failed are terminal.
const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateStopped   State = "stopped"
	StateFailed    State = "failed"
)

// Worker executes a single crawl run. It is single-threaded by design:
// one page is in flight at a time, and Stop is honored between pages,
// never mid-fetch.
type Worker struct {
	cfg       crawler.CrawlConfig
	fetcher   crawler.Fetcher
	downloads *download.Manager
	emitter   progress.Emitter
	clock     crawler.Clock
	logger    *zap.Logger

	runID      [16]byte
	opts       extractor.Options
	downloaded map[string]struct{}

	stopFlag atomic.Bool
	state    atomic.Value
}

// New constructs a Worker. downloads may be nil when no download
// option is enabled; emitter may be nil to discard events.
func New(
	cfg crawler.CrawlConfig,
	fetcher crawler.Fetcher,
	downloads *download.Manager,
	emitter progress.Emitter,
	clock crawler.Clock,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Worker{
		cfg:        cfg,
		fetcher:    fetcher,
		downloads:  downloads,
		emitter:    emitter,
		clock:      clock,
		logger:     logger,
		runID:      progress.UUIDToBytes(uuid.New()),
		opts:       extractor.OptionsFromConfig(cfg),
		downloaded: make(map[string]struct{}),
	}
	w.state.Store(StateIdle)
	return w
}

// RunID returns the run identifier stamped on every emitted event.
func (w *Worker) RunID() uuid.UUID {
	return uuid.UUID(w.runID)
}

// State returns the current lifecycle phase.
func (w *Worker) State() State {
	return w.state.Load().(State)
}

// Stop requests a cooperative stop. The page currently in flight
// finishes; the loop exits before dequeuing the next URL. Safe to call
// from any goroutine, any number of times.
func (w *Worker) Stop() {
	w.stopFlag.Store(true)
}

// Run executes the crawl to a terminal state and returns the
// accumulated result. The result is valid even when the run was
// stopped early; per-page failures are recorded in it rather than
// returned. The error return is reserved for setup problems.
func (w *Worker) Run(ctx context.Context) (*crawler.CrawlResult, error) {
	seed, err := url.Parse(w.cfg.SeedURL)
	if err != nil || seed.Host == "" {
		w.setState(StateFailed, "invalid seed url")
		return nil, fmt.Errorf("invalid seed url %q", w.cfg.SeedURL)
	}
	seedHost := seed.Hostname()

	w.setState(StateRunning, "crawl started")

	result := crawler.NewCrawlResult()
	fr := frontier.New(w.cfg.MaxPages)
	fr.Enqueue(w.cfg.SeedURL)

	final := StateCompleted
	for !fr.Exhausted() {
		if w.stopFlag.Load() || ctx.Err() != nil {
			final = StateStopped
			break
		}
		pageURL, ok := fr.Next()
		if !ok {
			break
		}
		fr.MarkVisited(pageURL)
		w.processPage(ctx, pageURL, seedHost, fr, result)

		if w.cfg.Delay > 0 && !fr.Exhausted() {
			select {
			case <-time.After(w.cfg.Delay):
			case <-ctx.Done():
			}
		}
	}
	if ctx.Err() != nil {
		final = StateStopped
	}

	result.VisitedPages = fr.PagesCounted()
	w.setState(final, fmt.Sprintf("crawl finished after %d pages", result.VisitedPages))
	w.emit(progress.Event{Kind: progress.KindDone, State: string(final)})
	return result, nil
}

// processPage runs the full per-page pipeline. Failures are recorded on
// the result and reported as events; they never propagate, so one bad
// page cannot end the run.
func (w *Worker) processPage(ctx context.Context, pageURL, seedHost string, fr *frontier.Frontier, result *crawler.CrawlResult) {
	defer func() {
		if r := recover(); r != nil {
			err := crawler.NewExtractionError(pageURL, fmt.Errorf("panic: %v", r))
			result.RecordError(err.Error())
			w.logger.Error("page processing panicked", zap.String("url", pageURL), zap.Any("panic", r))
			w.emitPageError(progress.KindError, pageURL, err)
		}
	}()

	res, err := w.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		result.RecordError(err.Error())
		w.logger.Warn("page fetch failed", zap.String("url", pageURL), zap.Error(err))
		w.emitPageError(progress.KindNetworkError, pageURL, err)
		return
	}
	result.TotalBytes += int64(len(res.Body))

	if w.downloads != nil && w.cfg.DownloadHTML {
		if _, err := w.downloads.SaveHTML(pageURL, res.Body); err != nil {
			result.RecordError(err.Error())
			w.emitPageError(progress.KindError, pageURL, err)
		}
	}

	if !res.IsHTML() {
		w.logger.Debug("skipping non-html response",
			zap.String("url", pageURL),
			zap.String("content_type", res.Headers.Get("Content-Type")))
		return
	}

	doc, err := extractor.Parse(res.Body)
	if err != nil {
		cerr := crawler.NewExtractionError(pageURL, err)
		result.RecordError(cerr.Error())
		w.emitPageError(progress.KindError, pageURL, cerr)
		return
	}
	out, err := extractor.Extract(pageURL, doc, seedHost, w.opts, w.cfg.ExcludedExtensions)
	if err != nil {
		cerr := crawler.NewExtractionError(pageURL, err)
		result.RecordError(cerr.Error())
		w.emitPageError(progress.KindError, pageURL, cerr)
		return
	}

	w.merge(result, out, pageURL)

	if w.cfg.CrawlEnabled {
		for _, link := range out.Links {
			if link.Internal {
				fr.Enqueue(link.URL)
			}
		}
	}

	w.downloadAssets(ctx, out, result)

	fr.CountPage()
	w.emit(progress.Event{
		Kind:        progress.KindPage,
		URL:         pageURL,
		StatusClass: progress.ClassifyStatus(res.StatusCode),
		Bytes:       int64(len(res.Body)),
		Dur:         res.Duration,
	})
	w.emit(progress.Event{
		Kind:     progress.KindProgress,
		Fraction: completionRatio(fr.PagesCounted(), w.cfg.MaxPages),
	})
}

// merge folds one page's extraction output into the run result.
func (w *Worker) merge(result *crawler.CrawlResult, out extractor.Output, pageURL string) {
	for _, link := range out.Links {
		result.Links.Add(link.URL)
		if link.Internal {
			result.InternalLinks.Add(link.URL)
		} else {
			result.ExternalLinks.Add(link.URL)
		}
	}
	for _, img := range out.Images {
		result.Images.Add(img)
	}
	result.Texts = append(result.Texts, out.Texts...)
	for _, email := range out.Emails {
		result.Emails.Add(email)
	}
	for _, phone := range out.Phones {
		result.Phones.Add(phone)
	}
	if len(out.Meta) > 0 {
		result.Meta[pageURL] = out.Meta
	}
	result.Forms = append(result.Forms, out.Forms...)
	for _, script := range out.Scripts {
		result.Scripts.Add(script)
	}
	for _, sheet := range out.Stylesheets {
		result.Stylesheets.Add(sheet)
	}
}

func (w *Worker) downloadAssets(ctx context.Context, out extractor.Output, result *crawler.CrawlResult) {
	if w.downloads == nil {
		return
	}
	if w.cfg.DownloadImages {
		for _, u := range out.Images {
			w.downloadOne(ctx, u, crawler.CategoryImage, result)
		}
	}
	if w.cfg.DownloadResources {
		for _, u := range out.Scripts {
			w.downloadOne(ctx, u, crawler.CategoryScript, result)
		}
		for _, u := range out.Stylesheets {
			w.downloadOne(ctx, u, crawler.CategoryStylesheet, result)
		}
	}
}

// downloadOne fetches a single asset at most once per run.
func (w *Worker) downloadOne(ctx context.Context, rawURL string, cat crawler.DownloadCategory, result *crawler.CrawlResult) {
	if _, done := w.downloaded[rawURL]; done {
		return
	}
	w.downloaded[rawURL] = struct{}{}

	rec, err := w.downloads.Download(ctx, rawURL, cat)
	if err != nil {
		result.RecordError(err.Error())
		w.logger.Warn("asset download failed", zap.String("url", rawURL), zap.Error(err))
		w.emitPageError(progress.KindError, rawURL, err)
		return
	}
	result.Downloads = append(result.Downloads, rec)
}

func (w *Worker) setState(s State, msg string) {
	w.state.Store(s)
	w.logger.Info("run state changed", zap.String("state", string(s)), zap.String("detail", msg))
	w.emit(progress.Event{Kind: progress.KindStatus, State: string(s), Message: msg})
}

func (w *Worker) emit(evt progress.Event) {
	if w.emitter == nil {
		return
	}
	evt.RunID = w.runID
	evt.TS = w.clock.Now()
	w.emitter.Emit(evt)
}

func (w *Worker) emitPageError(kind progress.Kind, pageURL string, err error) {
	evt := progress.Event{
		Kind:    kind,
		URL:     pageURL,
		Message: err.Error(),
	}
	var ce *crawler.CrawlError
	if errors.As(err, &ce) {
		evt.ErrKind = string(ce.Kind)
	}
	w.emit(evt)
}

func completionRatio(pages, maxPages int) float64 {
	if maxPages <= 0 {
		return 1
	}
	ratio := float64(pages) / float64(maxPages)
	if ratio > 1 {
		return 1
	}
	return ratio
}
