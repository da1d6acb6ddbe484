package docingest

import (
	"net/url"
	"path"
	"strings"
	"time"
)

// Defaults for CrawlConfig. DefaultMaxPages is the command-line default;
// a zero MaxPages in a CrawlConfig means no page cap.
const (
	DefaultMaxPages       = 20
	DefaultMaxConcurrency = 3
	DefaultDelay          = 500 * time.Millisecond
	DefaultMaxAttempts    = 3
)

// DefaultExcludePatterns matches wiki maintenance views that never hold
// documentation content.
var DefaultExcludePatterns = []string{
	`(?i)special:`,
	`(?i)action=edit`,
	`(?i)action=history`,
	`(?i)veaction=edit`,
	`(?i)printable=yes`,
}

// DefaultStripParams are query parameters that only select a view of a page.
var DefaultStripParams = []string{"oldid", "printable", "diff"}

// CrawlConfig holds the operator parameters of a run.
// It is read once and never mutated while the run is in progress.
type CrawlConfig struct {
	StartURL string

	// ScopePrefix is the path prefix that in-scope pages share.
	// Empty means the directory of StartURL.
	ScopePrefix string

	OutputDir string

	// MaxPages caps fetches for the run. Zero is unlimited.
	MaxPages       int
	MaxConcurrency int

	// Delay is the minimum time between two fetches of the same worker.
	Delay time.Duration

	// MaxAttempts bounds retries of transient network failures.
	MaxAttempts int

	// MaxDepth limits link distance from the start URL. Zero is unlimited.
	MaxDepth int

	// SessionPath points at a cookies or storage-state file. Optional.
	SessionPath string

	// UserAgent overrides the client identity. Optional.
	UserAgent string

	// Resume preloads pages recorded by previous runs in OutputDir.
	Resume bool

	// Screenshots captures every page as a PNG under OutputDir.
	Screenshots bool

	// Exclude holds regular expressions; matching URLs are out of scope.
	Exclude []string

	// StripParams lists query parameters removed during normalization.
	StripParams []string
}

// WithDefaults returns a copy of c with zero values replaced by defaults.
func (c CrawlConfig) WithDefaults() CrawlConfig {
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.ScopePrefix == "" {
		if u, err := url.Parse(c.StartURL); err == nil {
			c.ScopePrefix = DirPrefix(u.Path)
		}
	}
	return c
}

// Validate checks that the configuration can drive a run.
func (c *CrawlConfig) Validate() error {
	if c.StartURL == "" {
		return Errorf(EINVALID, "start URL required")
	}
	u, err := url.Parse(c.StartURL)
	if err != nil || u.Host == "" {
		return Errorf(EINVALID, "invalid start URL %q", c.StartURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Errorf(EINVALID, "start URL must be http or https: %q", c.StartURL)
	}
	if !strings.HasPrefix(c.ScopePrefix, "/") {
		return Errorf(EINVALID, "scope prefix must start with /: %q", c.ScopePrefix)
	}
	if c.OutputDir == "" {
		return Errorf(EINVALID, "output directory required")
	}
	if c.MaxPages < 0 {
		return Errorf(EINVALID, "max pages must not be negative")
	}
	if c.MaxConcurrency < 1 {
		return Errorf(EINVALID, "max concurrency must be positive")
	}
	if c.Delay < 0 {
		return Errorf(EINVALID, "delay must not be negative")
	}
	if c.MaxAttempts < 1 {
		return Errorf(EINVALID, "max attempts must be positive")
	}
	if c.MaxDepth < 0 {
		return Errorf(EINVALID, "max depth must not be negative")
	}
	if _, err := c.Filter(); err != nil {
		return err
	}
	return nil
}

// Filter compiles the exclude patterns into a URLFilter.
func (c *CrawlConfig) Filter() (*URLFilter, error) {
	return NewURLFilter(c.Exclude)
}

// DirPrefix returns the directory part of a URL path, with a trailing slash.
func DirPrefix(p string) string {
	if p == "" || p == "/" {
		return "/"
	}
	if strings.HasSuffix(p, "/") {
		return p
	}
	dir := path.Dir(p)
	if dir == "/" {
		return "/"
	}
	return dir + "/"
}
