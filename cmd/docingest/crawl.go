package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/fwojciec/docingest"
	"github.com/fwojciec/docingest/crawl"
	"github.com/fwojciec/docingest/fs"
	"github.com/fwojciec/docingest/goquery"
	"github.com/fwojciec/docingest/htmltomarkdown"
	"github.com/fwojciec/docingest/markdown"
	ingesthttp "github.com/fwojciec/docingest/http"
	"github.com/fwojciec/docingest/prometheus"
	"github.com/fwojciec/docingest/readability"
	"github.com/fwojciec/docingest/rod"
	ingestslog "github.com/fwojciec/docingest/slog"
	"github.com/fwojciec/docingest/sqlite"
	"github.com/fwojciec/docingest/trafilatura"
)

// robotsAgent is matched against robots.txt groups when no user agent
// override is configured.
const robotsAgent = "docingest"

// maxBackoff caps the delay between two attempts of one URL.
const maxBackoff = 30 * time.Second

// Config returns the crawl configuration described by the flags.
func (c *CrawlCmd) Config() docingest.CrawlConfig {
	cfg := docingest.CrawlConfig{
		StartURL:       c.URL,
		ScopePrefix:    c.Prefix,
		OutputDir:      c.Out,
		MaxPages:       c.MaxPages,
		MaxConcurrency: c.Concurrency,
		Delay:          c.Delay,
		MaxAttempts:    c.MaxAttempts,
		MaxDepth:       c.MaxDepth,
		SessionPath:    c.Session,
		UserAgent:      c.UserAgent,
		Resume:         c.Resume,
		Screenshots:    c.Screenshots,
		Exclude:        c.Exclude,
		StripParams:    c.StripParam,
	}
	if cfg.Exclude == nil {
		cfg.Exclude = docingest.DefaultExcludePatterns
	}
	if cfg.StripParams == nil {
		cfg.StripParams = docingest.DefaultStripParams
	}
	return cfg.WithDefaults()
}

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) (err error) {
	ctx := deps.Ctx
	logger := deps.Logger

	cfg := c.Config()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}

	store, err := fs.Open(cfg.OutputDir, fs.WithFsync(!c.NoFsync))
	if err != nil {
		return fmt.Errorf("failed to open output directory %q: %w", cfg.OutputDir, err)
	}
	defer closeInto(&err, store, "output directory")

	writers := docingest.MultiRecordWriter{store}
	summaries := docingest.MultiSummaryWriter{store}

	if c.Catalog != "" {
		db := sqlite.NewDB(c.Catalog)
		if err := db.Open(); err != nil {
			return fmt.Errorf("failed to open catalog at %q: %w", c.Catalog, err)
		}
		defer closeInto(&err, db, "catalog")
		catalog := sqlite.NewCatalog(db)
		writers = append(writers, catalog)
		summaries = append(summaries, catalog)
	}
	if c.MarkdownDir != "" {
		writers = append(writers, fs.NewMarkdownWriter(c.MarkdownDir))
	}
	if c.Report != "" {
		summaries = append(summaries, markdown.NewReportWriter(c.Report))
	}

	metrics := prometheus.NewMetrics()
	records := ingestslog.NewLoggingRecordWriter(prometheus.NewInstrumentedRecordWriter(writers, metrics), logger)

	fetcher, err := newFetcher(c.Fetcher, c.Timeout, c.BrowserBin, logger)
	if err != nil {
		if c.Fetcher == fetcherBrowser {
			fmt.Fprintln(deps.Stderr, "Hint: Chrome or Chromium must be installed, or use --fetcher http")
		}
		return err
	}
	defer fetcher.Close()

	start, _ := url.Parse(cfg.StartURL)
	crawler := &crawl.Crawler{
		Fetcher:    ingestslog.NewLoggingFetcher(prometheus.NewInstrumentedFetcher(fetcher, metrics), logger),
		Extractor:  newExtractor(c.Extractor),
		Converter:  htmltomarkdown.NewConverter(htmltomarkdown.WithDomain(start.Scheme + "://" + start.Host)),
		Links:      goquery.NewLinkExtractor(),
		Challenges: goquery.NewChallengeDetector(),
		Records:    records,
		Resume:     store,
		Logger:     logger,
		Backoff:    crawl.ExponentialBackoff(c.Backoff, maxBackoff),
	}
	if c.Session != "" {
		crawler.Sessions = ingestslog.NewLoggingSessionSource(fs.NewSessionFile(c.Session), logger)
	}
	if cfg.Screenshots {
		if c.Fetcher != fetcherBrowser {
			logger.Warn("screenshots need the browser fetcher; none will be taken", "fetcher", c.Fetcher)
		}
		crawler.Screenshots = fs.NewScreenshotWriter(cfg.OutputDir)
	}
	if c.Sitemap {
		sitemaps := ingesthttp.NewSitemapService(nil).WithUserAgent(cfg.UserAgent)
		if cfg.MaxPages > 0 {
			// Seeds beyond the page cap could never be fetched.
			sitemaps = sitemaps.WithMaxURLs(cfg.MaxPages)
		}
		crawler.Sitemaps = ingestslog.NewLoggingSitemapService(sitemaps, logger)
	}
	if c.Robots {
		agent := cfg.UserAgent
		if agent == "" {
			agent = robotsAgent
		}
		robots, err := ingesthttp.LoadRobots(ctx, nil, cfg.StartURL, agent)
		if err != nil {
			return err
		}
		if d := robots.CrawlDelay(); d > cfg.Delay {
			logger.Info("robots.txt crawl delay applied", "delay", d)
			cfg.Delay = d
		}
		crawler.Policy = robots
	}

	summary, runErr := crawler.Run(ctx, cfg)

	// The summary is recorded even when the run was interrupted.
	writeCtx := context.WithoutCancel(ctx)
	if err := summaries.WriteSummary(writeCtx, summary); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("writing run summary: %w", err))
	}
	if c.MetricsFile != "" {
		if err := metrics.WriteTextfile(c.MetricsFile); err != nil {
			logger.Warn("writing metrics failed", "path", c.MetricsFile, "err", err)
		}
	}

	printSummary(deps.Stdout, summary)
	return runErr
}

// closeInto closes c and joins a failure into *err, so that a record
// store that cannot flush fails the command.
func closeInto(err *error, c io.Closer, what string) {
	if cerr := c.Close(); cerr != nil {
		*err = errors.Join(*err, fmt.Errorf("closing %s: %w", what, cerr))
	}
}

func newFetcher(kind string, timeout time.Duration, bin string, logger *slog.Logger) (docingest.Fetcher, error) {
	switch kind {
	case fetcherHTTP:
		return newHTTPFetcher(timeout), nil
	case fetcherBrowser:
		opts := []rod.Option{rod.WithFetchTimeout(timeout), rod.WithLogger(logger)}
		if bin != "" {
			opts = append(opts, rod.WithBin(bin))
		}
		f, err := rod.NewFetcher(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
		return f, nil
	default:
		return nil, docingest.Errorf(docingest.EINVALID, "unknown fetcher %q", kind)
	}
}

func newHTTPFetcher(timeout time.Duration) *ingesthttp.Fetcher {
	return ingesthttp.NewFetcher(ingesthttp.WithTimeout(timeout))
}

func newExtractor(name string) docingest.Extractor {
	if name == extractorReadability {
		return readability.NewExtractor()
	}
	return trafilatura.NewExtractor()
}

// printSummary writes the human-readable end-of-run report.
func printSummary(w io.Writer, s *docingest.RunSummary) {
	fmt.Fprintf(w, "Run %s: %s in %s\n", s.RunID, s.StopReason, s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "  Pages:       %d (%s of markdown)\n", s.Pages, humanBytes(s.MarkdownBytes))
	if s.Resumed > 0 {
		fmt.Fprintf(w, "  Resumed:     %d\n", s.Resumed)
	}
	fmt.Fprintf(w, "  Images:      %d\n", s.Images)
	fmt.Fprintf(w, "  Video links: %d\n", s.VideoLinks)
	fmt.Fprintf(w, "  Unique media (est.): %d\n", s.UniqueMedia)
	fmt.Fprintf(w, "  Errors:      %d\n", s.Errors)
	for _, kind := range errorKinds {
		if n := s.ErrorsByKind[kind]; n > 0 {
			fmt.Fprintf(w, "    %-18s %d\n", kind, n)
		}
	}
	if s.Degraded {
		fmt.Fprintln(w, "  Warning: challenges were detected; the session may have expired")
	}
	if s.Fatal != "" {
		fmt.Fprintf(w, "  Fatal: %s\n", s.Fatal)
	}
}

var errorKinds = []docingest.ErrorKind{
	docingest.NetworkTimeout,
	docingest.HTTPError,
	docingest.ChallengeDetected,
	docingest.ParseError,
	docingest.ScopeViolation,
	docingest.SessionLoadFailure,
}

