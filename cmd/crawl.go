package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sitegrab/sitegrab/internal/clock/system"
	"github.com/sitegrab/sitegrab/internal/crawler"
	"github.com/sitegrab/sitegrab/internal/download"
	"github.com/sitegrab/sitegrab/internal/export"
	"github.com/sitegrab/sitegrab/internal/fetcher"
	"github.com/sitegrab/sitegrab/internal/hash/sha256"
	"github.com/sitegrab/sitegrab/internal/id/uuid"
	"github.com/sitegrab/sitegrab/internal/logging"
	"github.com/sitegrab/sitegrab/internal/progress"
	"github.com/sitegrab/sitegrab/internal/progress/sinks"
	"github.com/sitegrab/sitegrab/internal/server"
	"github.com/sitegrab/sitegrab/internal/worker"
)

// newCrawlCmd creates and configures the 'crawl' subcommand.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Start a crawl from the given seed URL",
		Long: `Crawls the site rooted at the seed URL. A missing scheme defaults to
http://. The crawl stays within the seed's domain (including subdomains),
visits each page once, and stops at the configured page ceiling.`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawl,
	}

	f := cmd.Flags()
	f.Int("max-pages", 50, "maximum number of pages to visit")
	f.Bool("no-follow", false, "extract the seed page only; do not follow internal links")
	f.Duration("delay", 500*time.Millisecond, "pause between page fetches")
	f.Duration("timeout", 10*time.Second, "per-request timeout")
	f.String("user-agent", "", "User-Agent header (defaults to the sitegrab UA)")
	f.Bool("no-redirects", false, "do not follow HTTP redirects")
	f.Bool("download-images", false, "download extracted images")
	f.Bool("download-resources", false, "download extracted scripts and stylesheets")
	f.Bool("download-html", false, "save the raw HTML of every fetched page")
	f.String("download-root", "downloads", "parent directory for run folders")
	f.String("folder-name", "", "run folder name (default <host>_<timestamp>)")
	f.String("export", "", "write a report in this format: json, csv, txt, html")
	f.String("export-path", "", "report file path (default web_scrape_<timestamp>.<ext>)")
	f.String("metrics-addr", "", "serve /metrics and /healthz on this address while crawling")
	f.Int("max-net-errors", 3, "stop after this many consecutive network failures (0 disables)")

	bind := func(key, flag string) {
		cobra.CheckErr(viper.BindPFlag(key, f.Lookup(flag)))
	}
	bind("crawl.max_pages", "max-pages")
	bind("crawl.delay", "delay")
	bind("http.timeout", "timeout")
	bind("download.images", "download-images")
	bind("download.resources", "download-resources")
	bind("download.html", "download-html")
	bind("download.root", "download-root")
	bind("download.folder_name", "folder-name")
	bind("run.export_format", "export")
	bind("run.export_path", "export-path")
	bind("run.metrics_addr", "metrics-addr")
	bind("run.max_net_errors", "max-net-errors")

	return cmd
}

func runCrawl(cmd *cobra.Command, args []string) error {
	logger, err := logging.New(verbose, logLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	v := viper.GetViper()
	v.Set("crawl.seed_url", crawler.EnsureScheme(args[0]))
	if noFollow, _ := cmd.Flags().GetBool("no-follow"); noFollow {
		v.Set("crawl.enabled", false)
	}
	if ua, _ := cmd.Flags().GetString("user-agent"); ua != "" {
		v.Set("http.user_agent", ua)
	}
	if noRedirects, _ := cmd.Flags().GetBool("no-redirects"); noRedirects {
		v.Set("http.follow_redirects", false)
	}

	cfg, err := crawler.LoadConfig(v)
	if err != nil {
		return fmt.Errorf("load crawl config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := system.New()
	pageFetcher := fetcher.New(fetcher.Config{
		UserAgent:       cfg.UserAgent,
		Timeout:         cfg.Timeout,
		FollowRedirects: cfg.FollowRedirects,
		MaxAttempts:     v.GetInt("http.max_attempts"),
		RetryPause:      v.GetDuration("http.retry_pause"),
	}, logger)

	chSink := sinks.NewChannelSink(256)
	sinkList := []progress.Sink{chSink}
	if verbose {
		sinkList = append(sinkList, sinks.NewLogSink(logger))
	}

	var metricsSrv *server.Server
	if addr := v.GetString("run.metrics_addr"); addr != "" {
		reg := prometheus.NewRegistry()
		promSink, err := sinks.NewPrometheusSink(reg)
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		sinkList = append(sinkList, promSink)
		metricsSrv = server.New(addr, reg, logger)
		metricsSrv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown failed", zap.Error(err))
			}
		}()
	}

	hub := progress.NewHub(progress.Config{Logger: logger}, sinkList...)

	var downloads *download.Manager
	if cfg.DownloadsEnabled() {
		// Assets get a single attempt; only page fetches retry.
		assetFetcher := fetcher.New(fetcher.Config{
			UserAgent:       cfg.UserAgent,
			Timeout:         cfg.Timeout,
			FollowRedirects: cfg.FollowRedirects,
			MaxAttempts:     1,
		}, logger)
		downloads, err = download.NewManager(download.Config{
			Root:       cfg.DownloadRoot,
			FolderName: cfg.FolderName,
			SeedURL:    cfg.SeedURL,
		}, assetFetcher, sha256.New(), clock, uuid.New(), logger)
		if err != nil {
			return fmt.Errorf("prepare download directory: %w", err)
		}
		logger.Info("downloads enabled", zap.String("dir", downloads.Dir()))
	}

	w := worker.New(cfg, pageFetcher, downloads, hub, clock, logger)

	type runOutcome struct {
		result *crawler.CrawlResult
		err    error
	}
	outcomeCh := make(chan runOutcome, 1)
	go func() {
		result, err := w.Run(ctx)
		outcomeCh <- runOutcome{result, err}
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hub.Close(closeCtx); err != nil {
			logger.Warn("progress hub close failed", zap.Error(err))
		}
	}()

	watchEvents(chSink.Events(), w, v.GetInt("run.max_net_errors"), logger)

	outcome := <-outcomeCh
	if outcome.err != nil {
		return outcome.err
	}

	if err := exportResult(v, outcome.result, clock.Now()); err != nil {
		return err
	}
	printSummary(cmd, outcome.result, string(w.State()), downloads)
	return nil
}

// watchEvents consumes the run's event stream until the hub closes it,
// requesting a stop once too many network failures occur back to back.
func watchEvents(events <-chan progress.Event, w *worker.Worker, maxNetErrors int, logger *zap.Logger) {
	consecutive := 0
	for evt := range events {
		switch evt.Kind {
		case progress.KindNetworkError:
			consecutive++
			if maxNetErrors > 0 && consecutive >= maxNetErrors {
				logger.Warn("stopping crawl after consecutive network failures",
					zap.Int("failures", consecutive))
				w.Stop()
			}
		case progress.KindPage:
			consecutive = 0
		}
	}
}

func exportResult(v *viper.Viper, result *crawler.CrawlResult, now time.Time) error {
	name := v.GetString("run.export_format")
	if name == "" {
		return nil
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		return err
	}
	path := v.GetString("run.export_path")
	if path == "" {
		path = export.DefaultFileName(format, now)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if err := export.Write(f, format, result); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printSummary(cmd *cobra.Command, result *crawler.CrawlResult, state string, downloads *download.Manager) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Crawl %s.\n", state)
	fmt.Fprintf(out, "  Pages visited:  %d\n", result.VisitedPages)
	fmt.Fprintf(out, "  Links found:    %d (%d internal, %d external)\n",
		len(result.Links), len(result.InternalLinks), len(result.ExternalLinks))
	fmt.Fprintf(out, "  Images:         %d\n", len(result.Images))
	fmt.Fprintf(out, "  Emails/Phones:  %d/%d\n", len(result.Emails), len(result.Phones))
	fmt.Fprintf(out, "  Data fetched:   %s\n", export.FormatByteSize(result.TotalBytes))
	if downloads != nil {
		fmt.Fprintf(out, "  Downloads:      %d -> %s\n", len(result.Downloads), downloads.Dir())
	}
	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "  Errors:         %d\n", len(result.Errors))
	}
}
