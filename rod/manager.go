package rod

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fwojciec/docingest"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultMaxPages is the default number of pages before browser recycling.
const DefaultMaxPages = 75

// BrowserManager hands out tabs from a headless Chrome that is replaced
// after a fixed number of pages. Chrome's baseline memory keeps growing
// even when every tab is closed, so long crawls need fresh processes.
//
// A retired browser stays alive until its last open tab is released;
// workers never lose a page mid-load because another worker triggered
// a recycle.
//
// BrowserManager is safe for concurrent use.
type BrowserManager struct {
	maxPages int64
	logger   *slog.Logger
	bin      string

	mu       sync.Mutex
	current  *instance
	recycled int
	closed   bool
}

// instance is one launched browser process.
type instance struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	served   int64
	open     int
	retired  bool
}

// ManagerOption configures a BrowserManager.
type ManagerOption func(*BrowserManager)

// WithMaxPages sets the maximum number of pages before the browser is recycled.
// Defaults to 75 if not specified.
func WithMaxPages(n int64) ManagerOption {
	return func(bm *BrowserManager) {
		bm.maxPages = n
	}
}

// WithManagerLogger logs browser launches and recycles.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(bm *BrowserManager) {
		bm.logger = logger
	}
}

// WithBrowserBin uses the Chrome binary at path instead of looking one up.
func WithBrowserBin(path string) ManagerOption {
	return func(bm *BrowserManager) {
		bm.bin = path
	}
}

// NewBrowserManager launches a headless Chrome.
// Close must be called when the BrowserManager is no longer needed.
func NewBrowserManager(opts ...ManagerOption) (*BrowserManager, error) {
	bm := &BrowserManager{
		maxPages: DefaultMaxPages,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(bm)
	}
	if bm.maxPages < 1 {
		bm.maxPages = DefaultMaxPages
	}

	inst, err := bm.launch()
	if err != nil {
		return nil, err
	}
	bm.current = inst
	return bm, nil
}

// OpenPage opens a blank tab. The returned release func closes the tab
// and must be called exactly once.
func (bm *BrowserManager) OpenPage() (*rod.Page, func(), error) {
	inst, err := bm.acquire()
	if err != nil {
		return nil, nil, err
	}

	page, err := inst.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		bm.release(inst)
		return nil, nil, fmt.Errorf("opening tab: %w", err)
	}

	var once sync.Once
	return page, func() {
		once.Do(func() {
			_ = page.Close()
			bm.release(inst)
		})
	}, nil
}

// acquire reserves a slot on the current browser, recycling it first
// when it has served maxPages pages.
func (bm *BrowserManager) acquire() (*instance, error) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.closed {
		return nil, docingest.Errorf(docingest.EINVALID, "browser manager closed")
	}

	if bm.current.served >= bm.maxPages {
		bm.recycle()
	}
	bm.current.served++
	bm.current.open++
	return bm.current, nil
}

func (bm *BrowserManager) release(inst *instance) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	inst.open--
	if inst.retired && inst.open == 0 {
		_ = inst.close()
	}
}

// recycle replaces the current browser. If the new launch fails, the old
// browser keeps serving and recycling is retried on the next page.
// Must be called with mu held.
func (bm *BrowserManager) recycle() {
	next, err := bm.launch()
	if err != nil {
		bm.logger.Warn("browser recycle failed", "served", bm.current.served, "err", err)
		return
	}

	old := bm.current
	old.retired = true
	if old.open == 0 {
		_ = old.close()
	}
	bm.current = next
	bm.recycled++
	bm.logger.Info("browser recycled", "served", old.served, "recycles", bm.recycled)
}

// launch starts a browser process with stability flags.
func (bm *BrowserManager) launch() (*instance, error) {
	lnchr := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		Leakless(true).
		Headless(true)
	if bm.bin != "" {
		lnchr = lnchr.Bin(bm.bin)
	}

	u, err := lnchr.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		lnchr.Kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	bm.logger.Debug("browser launched", "pid", lnchr.PID())
	return &instance{browser: browser, launcher: lnchr}, nil
}

func (inst *instance) close() error {
	var err error
	if inst.browser != nil {
		err = inst.browser.Close()
		inst.browser = nil
	}
	if inst.launcher != nil {
		inst.launcher.Kill()
		inst.launcher = nil
	}
	return err
}

// Recycles returns how many times the browser has been replaced.
func (bm *BrowserManager) Recycles() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return bm.recycled
}

// Close shuts down the current browser. Tabs still open are closed with
// it. Close is safe to call multiple times.
func (bm *BrowserManager) Close() error {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.closed {
		return nil
	}
	bm.closed = true
	return bm.current.close()
}

// LauncherPID returns the process ID of the current browser launcher.
// This method exists for testing purposes to verify proper cleanup.
func (bm *BrowserManager) LauncherPID() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if bm.current == nil || bm.current.launcher == nil {
		return 0
	}
	return bm.current.launcher.PID()
}
