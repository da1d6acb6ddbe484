// Package rod implements docingest.Fetcher with headless Chrome.
package rod

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/docingest"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Ensure Fetcher implements docingest.Fetcher at compile time.
var _ docingest.Fetcher = (*Fetcher)(nil)

// DefaultFetchTimeout bounds a single page load.
const DefaultFetchTimeout = 30 * time.Second

// serializeJS returns the rendered document including open shadow roots,
// so links rendered inside web components are visible to extraction.
const serializeJS = `() => {
  const roots = [];
  const walk = (node) => {
    for (const el of node.querySelectorAll('*')) {
      if (el.shadowRoot) {
        roots.push(el.shadowRoot);
        walk(el.shadowRoot);
      }
    }
  };
  walk(document);
  const html = document.documentElement;
  if (roots.length === 0 || typeof html.getHTML !== 'function') {
    return '<!DOCTYPE html>' + html.outerHTML;
  }
  return '<!DOCTYPE html><html>' + html.getHTML({serializableShadowRoots: true, shadowRoots: roots}) + '</html>';
}`

// Fetcher retrieves rendered HTML using Chrome browser automation.
// Each fetch opens a fresh tab with the session cookies and storage
// applied, so workers never share page state.
// Fetcher is safe for concurrent use by multiple goroutines.
type Fetcher struct {
	manager        *BrowserManager
	managerOptions []ManagerOption
	timeout        time.Duration
	logger         *slog.Logger
	closed         atomic.Bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithFetchTimeout sets the maximum duration of a single page load.
// Defaults to 30 seconds.
func WithFetchTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithRecycleAfter recycles the browser after n pages.
func WithRecycleAfter(n int64) Option {
	return func(f *Fetcher) {
		f.managerOptions = append(f.managerOptions, WithMaxPages(n))
	}
}

// WithLogger logs browser launches, recycles and failed screenshots.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
		f.managerOptions = append(f.managerOptions, WithManagerLogger(logger))
	}
}

// WithBin uses the Chrome binary at path.
func WithBin(path string) Option {
	return func(f *Fetcher) {
		f.managerOptions = append(f.managerOptions, WithBrowserBin(path))
	}
}

// NewFetcher creates a Fetcher backed by a managed headless Chrome.
// Close must be called when the Fetcher is no longer needed.
//
// Returns an error if Chrome/Chromium cannot be found or launched.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{timeout: DefaultFetchTimeout, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(f)
	}

	manager, err := NewBrowserManager(f.managerOptions...)
	if err != nil {
		return nil, err
	}
	f.manager = manager
	return f, nil
}

// Fetch navigates a new tab to req.URL and returns the rendered HTML
// together with the status of the main document response.
func (f *Fetcher) Fetch(ctx context.Context, req *docingest.FetchRequest) (*docingest.FetchResponse, error) {
	if f.closed.Load() {
		return nil, docingest.Errorf(docingest.EINVALID, "fetcher closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	page, release, err := f.manager.OpenPage()
	if err != nil {
		return nil, err
	}
	defer release()

	page = page.Context(ctx)
	if err := prepare(page, req); err != nil {
		return nil, err
	}

	doc := &documentResponse{status: 200}
	evCtx, stop := context.WithCancel(ctx)
	wait := page.Context(evCtx).EachEvent(func(e *proto.NetworkResponseReceived) {
		if e.Type == proto.NetworkResourceTypeDocument && e.FrameID == page.FrameID {
			doc.set(e.Response.Status, e.Response.MIMEType)
		}
	})
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	defer func() {
		stop()
		<-done
	}()

	if err := page.Navigate(req.URL); err != nil {
		return nil, navigationError(ctx, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, navigationError(ctx, err)
	}

	res, err := page.Eval(serializeJS)
	if err != nil {
		return nil, navigationError(ctx, err)
	}

	finalURL := req.URL
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}

	status, contentType := doc.get()
	resp := &docingest.FetchResponse{
		URL:         finalURL,
		StatusCode:  status,
		ContentType: contentType,
		Body:        res.Value.Str(),
	}
	if req.Screenshot {
		resp.Screenshot = f.screenshot(page, finalURL)
	}
	return resp, nil
}

// screenshot captures the full page as PNG. The rendered HTML is the
// fetch result, so a failed capture is logged and yields nil.
func (f *Fetcher) screenshot(page *rod.Page, pageURL string) []byte {
	png, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		f.logger.Warn("screenshot failed", "url", pageURL, "err", err)
		return nil
	}
	return png
}

// prepare applies the request identity and session to a fresh tab.
func prepare(page *rod.Page, req *docingest.FetchRequest) error {
	if req.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: req.UserAgent}); err != nil {
			return fmt.Errorf("setting user agent: %w", err)
		}
	}
	if cookies := CookieParams(req.Session.Cookies()); len(cookies) > 0 {
		if err := page.SetCookies(cookies); err != nil {
			return fmt.Errorf("setting cookies: %w", err)
		}
	}
	script, err := StorageScript(req.Session.Storage())
	if err != nil {
		return err
	}
	if script != "" {
		if _, err := page.EvalOnNewDocument(script); err != nil {
			return fmt.Errorf("installing storage: %w", err)
		}
	}
	return nil
}

// navigationError prefers the context error so callers can tell a
// timeout from other transport failures.
func navigationError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}

// documentResponse records the last main-frame document response.
// Redirect hops are superseded by the final response.
type documentResponse struct {
	mu          sync.Mutex
	status      int
	contentType string
}

func (d *documentResponse) set(status int, contentType string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = status
	d.contentType = contentType
}

func (d *documentResponse) get() (int, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status, d.contentType
}

// LauncherPID returns the process ID of the browser launcher.
// This method exists for testing purposes to verify proper cleanup.
func (f *Fetcher) LauncherPID() int {
	return f.manager.LauncherPID()
}

// Close releases browser resources. Close is safe to call multiple times.
func (f *Fetcher) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	return f.manager.Close()
}
