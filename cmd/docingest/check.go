package main

import (
	"fmt"
	"strings"

	"github.com/fwojciec/docingest"
	"github.com/fwojciec/docingest/crawl"
	"github.com/fwojciec/docingest/fs"
	"github.com/fwojciec/docingest/goquery"
	ingestslog "github.com/fwojciec/docingest/slog"
	"github.com/fwojciec/docingest/trafilatura"
)

// maxURLDisplay is the width URLs are truncated to in the report.
const maxURLDisplay = 80

// Run executes the check command.
func (c *CheckCmd) Run(deps *Dependencies) error {
	ctx := deps.Ctx

	req := &docingest.FetchRequest{URL: c.URL, UserAgent: c.UserAgent}
	if c.Session != "" {
		session, err := ingestslog.NewLoggingSessionSource(fs.NewSessionFile(c.Session), deps.Logger).Load(ctx)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
			return &docingest.CrawlError{Kind: docingest.SessionLoadFailure, URL: c.URL, Err: err}
		}
		req.Session = session
	}

	kind := c.Fetcher
	if c.Compare {
		kind = fetcherBrowser
	}
	fetcher, err := newFetcher(kind, c.Timeout, c.BrowserBin, deps.Logger)
	if err != nil {
		if kind == fetcherBrowser {
			fmt.Fprintln(deps.Stderr, "Hint: Chrome or Chromium must be installed, or use --fetcher http")
		}
		return err
	}
	defer fetcher.Close()

	resp, err := ingestslog.NewLoggingFetcher(fetcher, deps.Logger).Fetch(ctx, req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", c.URL, err)
	}

	fmt.Fprintf(deps.Stdout, "URL:       %s\n", shortenURL(resp.URL, maxURLDisplay))
	fmt.Fprintf(deps.Stdout, "Status:    %d\n", resp.StatusCode)
	fmt.Fprintf(deps.Stdout, "Size:      %s\n", humanBytes(len(resp.Body)))

	markers := goquery.NewChallengeDetector().Detect(resp.Body)
	if len(markers) == 0 {
		fmt.Fprintln(deps.Stdout, "Challenge: none")
	} else {
		fmt.Fprintf(deps.Stdout, "Challenge: detected (%s)\n", strings.Join(markers, ", "))
	}

	if c.Compare {
		if err := c.compare(deps, req, resp.Body); err != nil {
			return err
		}
	}

	switch {
	case len(markers) > 0:
		return &docingest.CrawlError{
			Kind:   docingest.ChallengeDetected,
			URL:    c.URL,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("markers: %s", strings.Join(markers, ", ")),
		}
	case !resp.OK():
		return &docingest.CrawlError{Kind: docingest.HTTPError, URL: c.URL, Status: resp.StatusCode}
	}
	return nil
}

// compare fetches the page again over plain HTTP and reports whether the
// rendered content differs enough to require a browser.
func (c *CheckCmd) compare(deps *Dependencies, req *docingest.FetchRequest, rendered string) error {
	static := ingestslog.NewLoggingFetcher(newHTTPFetcher(c.Timeout), deps.Logger)
	defer static.Close()

	resp, err := static.Fetch(deps.Ctx, req)
	if err != nil {
		return fmt.Errorf("fetching %s over HTTP: %w", c.URL, err)
	}

	if crawl.NeedsRendering(resp.Body, rendered, trafilatura.NewExtractor()) {
		fmt.Fprintln(deps.Stdout, "Rendering: required (use --fetcher browser)")
	} else {
		fmt.Fprintln(deps.Stdout, "Rendering: not required (--fetcher http is enough)")
	}
	return nil
}
