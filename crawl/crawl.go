// Package crawl provides the crawl pipeline of a documentation site.
// It coordinates the frontier, a fixed pool of fetch workers, content
// extraction and link classification, and the record sinks.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/docingest"
	"github.com/fwojciec/docingest/bloom"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Unique media estimation sizing.
const (
	mediaExpectedURLs      = 100000
	mediaFalsePositiveRate = 0.01
)

// Crawler runs bounded, prefix-scoped crawls.
type Crawler struct {
	Fetcher    docingest.Fetcher
	Extractor  docingest.Extractor
	Converter  docingest.Converter
	Links      docingest.LinkExtractor
	Challenges docingest.ChallengeDetector
	Records    docingest.RecordWriter

	// Sessions loads the authentication context. Optional.
	Sessions docingest.SessionSource

	// Resume reads prior runs when the config asks for it. Optional.
	Resume docingest.ResumeSource

	// Sitemaps adds sitemap URLs to the initial frontier. Optional.
	Sitemaps docingest.SitemapService

	// Policy vetoes fetches, e.g. from robots.txt. Optional.
	Policy docingest.URLPolicy

	// Screenshots stores page captures when the config asks for them.
	// Optional.
	Screenshots docingest.ScreenshotStore

	Logger  *slog.Logger
	Backoff BackoffFunc
	Now     func() time.Time
}

// run is the mutable state of a single Run call.
type run struct {
	cfg        docingest.CrawlConfig
	session    *docingest.SessionState
	scope      *Scope
	frontier   *Frontier
	classifier *Classifier
	retry      *RetryPolicy
	logger     *slog.Logger

	dispatched atomic.Int64
	capReached atomic.Bool

	mu      sync.Mutex
	summary *docingest.RunSummary
	media   *bloom.Counter
}

// Run crawls from cfg.StartURL until the frontier is exhausted, the page
// cap is reached, or ctx is canceled. In-flight fetches finish before Run
// returns. A summary is always returned; the error is non-nil only for
// fatal conditions (invalid config, session load failure, sink failure).
func (c *Crawler) Run(ctx context.Context, cfg docingest.CrawlConfig) (*docingest.RunSummary, error) {
	now := c.now()
	cfg = cfg.WithDefaults()
	summary := &docingest.RunSummary{
		RunID:        uuid.NewString(),
		StartURL:     cfg.StartURL,
		StartedAt:    now,
		ErrorsByKind: make(map[docingest.ErrorKind]int),
	}
	finish := func(reason docingest.StopReason, err error) (*docingest.RunSummary, error) {
		summary.StopReason = reason
		summary.FinishedAt = c.now()
		if err != nil {
			summary.Fatal = err.Error()
		}
		return summary, err
	}

	if err := cfg.Validate(); err != nil {
		return finish(docingest.StopFatal, err)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("run", summary.RunID)

	var session *docingest.SessionState
	if c.Sessions != nil {
		s, err := c.Sessions.Load(ctx)
		if err != nil {
			return finish(docingest.StopFatal, &docingest.CrawlError{Kind: docingest.SessionLoadFailure, Err: err})
		}
		session = s
		logger.Info("session loaded", "cookies", session.Len())
	}

	filter, err := cfg.Filter()
	if err != nil {
		return finish(docingest.StopFatal, err)
	}
	scope, err := NewScope(cfg.StartURL, cfg.ScopePrefix, filter, cfg.StripParams)
	if err != nil {
		return finish(docingest.StopFatal, err)
	}

	r := &run{
		cfg:        cfg,
		session:    session,
		scope:      scope,
		frontier:   NewFrontier(scope, WithMaxDepth(cfg.MaxDepth), WithClock(c.now)),
		classifier: NewClassifier(scope),
		logger:     logger,
		summary:    summary,
		media:      bloom.NewCounter(mediaExpectedURLs, mediaFalsePositiveRate),
	}
	r.retry = &RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     c.Backoff,
		Challenges:  c.Challenges,
		OnTransition: func(t Transition) {
			if t.State == Retrying {
				logger.Debug("retry", "url", t.URL, "attempt", t.Attempt, "err", t.Err)
			}
		},
	}

	if cfg.Resume && c.Resume != nil {
		if err := c.resume(ctx, r); err != nil {
			return finish(docingest.StopFatal, err)
		}
	}

	if r.frontier.Seed(cfg.StartURL) {
		logger.Info("seeded", "url", cfg.StartURL, "prefix", scope.Prefix())
	}
	c.seedSitemap(ctx, r, filter)

	runErr := c.work(ctx, r)
	logger.Info("workers stopped", "visited", r.frontier.VisitedCount(), "queued", r.frontier.Size())

	switch {
	case runErr != nil:
		return finish(docingest.StopFatal, runErr)
	case ctx.Err() != nil:
		return finish(docingest.StopAborted, nil)
	case r.capReached.Load():
		return finish(docingest.StopPageCap, nil)
	default:
		return finish(docingest.StopExhausted, nil)
	}
}

// resume marks prior pages visited, then queues their unvisited links.
func (c *Crawler) resume(ctx context.Context, r *run) error {
	state, err := c.Resume.LoadResumeState(ctx)
	if err != nil {
		return fmt.Errorf("loading resume state: %w", err)
	}
	for _, page := range state.Pages {
		if r.frontier.Claim(page.URL) {
			r.summary.Resumed++
		}
	}
	pending := 0
	for _, page := range state.Pages {
		for _, link := range page.OutboundLinks {
			if r.frontier.Enqueue(link, page.Depth+1) {
				pending++
			}
		}
	}
	r.logger.Info("resumed", "visited", r.summary.Resumed, "pending", pending)
	return nil
}

func (c *Crawler) seedSitemap(ctx context.Context, r *run, filter *docingest.URLFilter) {
	if c.Sitemaps == nil {
		return
	}
	urls, err := c.Sitemaps.DiscoverURLs(ctx, r.cfg.StartURL, filter)
	if err != nil {
		r.logger.Warn("sitemap discovery failed", "err", err)
		return
	}
	added := 0
	for _, u := range urls {
		if r.frontier.Enqueue(u, 1) {
			added++
		}
	}
	r.logger.Info("sitemap seeded", "urls", len(urls), "added", added)
}

// work runs the worker pool until every worker has exited.
func (c *Crawler) work(ctx context.Context, r *run) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < r.cfg.MaxConcurrency; i++ {
		worker := i
		g.Go(func() error {
			return c.worker(gctx, r, worker)
		})
	}
	return g.Wait()
}

func (c *Crawler) worker(ctx context.Context, r *run, id int) error {
	throttle := NewThrottle(r.cfg.Delay)
	logger := r.logger.With("worker", id)
	maxPages := int64(r.cfg.MaxPages)
	capped := maxPages > 0

	for {
		if capped && r.dispatched.Load() >= maxPages {
			r.stopAtCap()
			return nil
		}
		entry, ok := r.frontier.Dequeue(ctx)
		if !ok {
			return nil
		}
		if n := r.dispatched.Add(1); capped && n > maxPages {
			r.frontier.Done()
			r.stopAtCap()
			return nil
		}

		err := c.process(ctx, r, logger, throttle, entry)
		r.frontier.Done()
		if err != nil {
			r.frontier.Close()
			return err
		}
	}
}

func (r *run) stopAtCap() {
	if r.capReached.CompareAndSwap(false, true) {
		r.logger.Info("page cap reached", "max_pages", r.cfg.MaxPages, "queued", r.frontier.Size())
	}
	r.frontier.Close()
}

// process fetches one entry and records its outcome. Only sink failures
// are returned; everything else becomes a record or is dropped.
func (c *Crawler) process(ctx context.Context, r *run, logger *slog.Logger, throttle *Throttle, entry Entry) error {
	if c.Policy != nil && !c.Policy.Allowed(entry.URL) {
		logger.Debug("disallowed by policy", "url", entry.URL)
		return nil
	}
	if err := throttle.Wait(ctx); err != nil {
		return nil
	}

	// In-flight fetches and their records complete even after a stop signal.
	fetchCtx := context.WithoutCancel(ctx)
	req := &docingest.FetchRequest{
		URL:        entry.URL,
		Session:    r.session,
		UserAgent:  r.cfg.UserAgent,
		Screenshot: r.cfg.Screenshots && c.Screenshots != nil,
	}
	resp, attempts, err := r.retry.Do(ctx, entry.URL, func() (*docingest.FetchResponse, error) {
		return c.Fetcher.Fetch(fetchCtx, req)
	})
	throttle.Done(time.Now())
	if err != nil {
		var crawlErr *docingest.CrawlError
		if !errors.As(err, &crawlErr) {
			// Stopped between attempts.
			return nil
		}
		return c.recordError(fetchCtx, r, crawlErr)
	}

	// pageURL keys the record; links resolve against the document's own URL.
	pageURL, baseURL := entry.URL, entry.URL
	if resp.URL != "" {
		baseURL = resp.URL
		final, ok := r.scope.Normalize(resp.URL)
		if !ok || !r.scope.Contains(final) {
			logger.Debug("redirected out of scope", "url", entry.URL, "final", resp.URL, "kind", docingest.ScopeViolation)
			return nil
		}
		if final != entry.URL {
			if !r.frontier.Claim(final) {
				logger.Debug("redirected to visited page", "url", entry.URL, "final", final)
				return nil
			}
			pageURL = final
		}
	}

	page, links, err := c.convert(r, resp, pageURL, baseURL)
	if err != nil {
		return c.recordError(fetchCtx, r, &docingest.CrawlError{
			Kind:    docingest.ParseError,
			URL:     pageURL,
			Attempt: attempts,
			Status:  resp.StatusCode,
			Err:     err,
		})
	}
	page.FetchedAt = c.now()
	page.Depth = entry.Depth
	if len(resp.Screenshot) > 0 && c.Screenshots != nil {
		// A missing screenshot never costs the page record.
		if name, err := c.Screenshots.SaveScreenshot(fetchCtx, pageURL, resp.Screenshot); err != nil {
			logger.Warn("saving screenshot failed", "url", pageURL, "err", err)
		} else {
			page.ScreenshotFile = name
		}
	}

	if err := c.Records.WritePage(fetchCtx, page); err != nil {
		return fmt.Errorf("writing page %s: %w", pageURL, err)
	}
	r.countPage(page)

	for _, link := range links {
		rec := &docingest.MediaRecord{SourcePageURL: pageURL, MediaURL: link.URL, AltText: link.Text}
		switch link.Kind {
		case docingest.LinkImage:
			if err := c.Records.WriteImage(fetchCtx, rec); err != nil {
				return fmt.Errorf("writing image %s: %w", link.URL, err)
			}
			r.countMedia(link)
		case docingest.LinkVideo:
			if err := c.Records.WriteVideoLink(fetchCtx, rec); err != nil {
				return fmt.Errorf("writing video link %s: %w", link.URL, err)
			}
			r.countMedia(link)
		}
	}

	queued := 0
	for _, u := range page.OutboundLinks {
		if r.frontier.Enqueue(u, entry.Depth+1) {
			queued++
		}
	}
	logger.Debug("page done", "url", pageURL, "links", len(page.OutboundLinks), "queued", queued)
	return nil
}

// convert turns a fetched response into a page record and its media links.
func (c *Crawler) convert(r *run, resp *docingest.FetchResponse, pageURL, baseURL string) (*docingest.PageRecord, []docingest.Link, error) {
	if !isHTML(resp.ContentType) {
		return nil, nil, fmt.Errorf("unsupported content type %q", resp.ContentType)
	}
	if strings.TrimSpace(resp.Body) == "" {
		return nil, nil, errors.New("empty document")
	}

	raw, err := c.Links.ExtractLinks(resp.Body, baseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("extracting links: %w", err)
	}
	raw = append(raw, ScanVideoLinks(resp.Body)...)

	var title, description string
	content := resp.Body
	if extracted, err := c.Extractor.Extract(resp.Body); err == nil {
		title = extracted.Title
		description = extracted.Description
		if strings.TrimSpace(extracted.ContentHTML) != "" {
			content = extracted.ContentHTML
		}
	}

	markdown, err := c.Converter.Convert(content)
	if err != nil {
		return nil, nil, fmt.Errorf("converting to markdown: %w", err)
	}

	page := &docingest.PageRecord{
		URL:            pageURL,
		Title:          title,
		Description:    description,
		Markdown:       markdown,
		RawContentHash: ContentHash(resp.Body),
		HTTPStatus:     resp.StatusCode,
		OutboundLinks:  []string{},
	}
	var media []docingest.Link
	for _, link := range r.classifier.Classify(raw) {
		if link.Kind == docingest.LinkPage {
			page.OutboundLinks = append(page.OutboundLinks, link.URL)
			continue
		}
		media = append(media, link)
	}
	return page, media, nil
}

func (c *Crawler) recordError(ctx context.Context, r *run, e *docingest.CrawlError) error {
	rec := &docingest.ErrorRecord{
		URL:        e.URL,
		ErrorKind:  e.Kind,
		Message:    e.Error(),
		Attempt:    e.Attempt,
		HTTPStatus: e.Status,
		Timestamp:  c.now(),
	}
	if err := c.Records.WriteError(ctx, rec); err != nil {
		return fmt.Errorf("writing error record %s: %w", e.URL, err)
	}
	r.countError(e.Kind)
	r.logger.Warn("page failed", "url", e.URL, "kind", e.Kind, "attempt", e.Attempt, "status", e.Status)
	return nil
}

func (r *run) countPage(page *docingest.PageRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Pages++
	r.summary.MarkdownBytes += len(page.Markdown)
}

func (r *run) countMedia(link docingest.Link) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if link.Kind == docingest.LinkImage {
		r.summary.Images++
	} else {
		r.summary.VideoLinks++
	}
	r.media.Observe(link.URL)
	r.summary.UniqueMedia = r.media.Count()
}

func (r *run) countError(kind docingest.ErrorKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Errors++
	r.summary.ErrorsByKind[kind]++
	if kind == docingest.ChallengeDetected {
		r.summary.Degraded = true
	}
}

func (c *Crawler) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// isHTML accepts an empty content type, since browsers report none.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
