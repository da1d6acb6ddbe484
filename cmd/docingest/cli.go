package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/alecthomas/kong"
)

// Dependencies holds the services shared by every command.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config  kong.ConfigFlag `help:"Load flag values from a JSON file" placeholder:"PATH"`
	Verbose bool            `short:"v" env:"DOCINGEST_VERBOSE" help:"Log at debug level"`
	LogJSON bool            `name:"log-json" env:"DOCINGEST_LOG_JSON" help:"Log as JSON instead of text"`

	Crawl  CrawlCmd  `cmd:"" help:"Crawl a documentation site into an output directory"`
	Check  CheckCmd  `cmd:"" help:"Fetch one page and report whether a challenge blocks it"`
	Errors ErrorsCmd `cmd:"" help:"List failed URLs recorded in a SQLite catalog"`
	Page   PageCmd   `cmd:"" help:"Print a page stored in a SQLite catalog as markdown"`
}

// Fetcher kinds accepted by --fetcher.
const (
	fetcherBrowser = "browser"
	fetcherHTTP    = "http"
)

// Extractor names accepted by --extractor.
const (
	extractorTrafilatura = "trafilatura"
	extractorReadability = "readability"
)

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct {
	URL         string        `arg:"" help:"Start URL of the documentation site"`
	Prefix      string        `help:"Path prefix that in-scope pages share (default: directory of the start URL)"`
	Out         string        `short:"o" required:"" env:"DOCINGEST_OUT" help:"Output directory for JSON Lines records"`
	MaxPages    int           `short:"n" default:"${max_pages}" env:"DOCINGEST_MAX_PAGES" help:"Maximum number of pages to fetch (0 = unlimited)"`
	Concurrency int           `short:"c" default:"3" env:"DOCINGEST_CONCURRENCY" help:"Number of fetch workers"`
	Delay       time.Duration `default:"500ms" env:"DOCINGEST_DELAY" help:"Minimum delay between fetches of one worker"`
	Timeout     time.Duration `short:"t" default:"30s" help:"Fetch timeout per page"`
	MaxAttempts int           `default:"3" help:"Attempts per page for transient network failures"`
	Backoff     time.Duration `default:"1s" help:"Delay before the first retry, doubled on every further attempt"`
	MaxDepth    int           `default:"0" help:"Maximum link depth from the start URL (0 = unlimited)"`
	Session     string        `env:"DOCINGEST_SESSION" help:"Cookies or storage-state JSON file to authenticate with"`
	UserAgent   string        `env:"DOCINGEST_USER_AGENT" help:"User agent override"`
	Resume      bool          `help:"Skip pages recorded by previous runs in the output directory"`
	Screenshots bool          `help:"Save a full-page PNG of every page under <out>/screenshots (browser fetcher only)"`
	Fetcher     string        `default:"browser" enum:"browser,http" help:"Fetcher to use (browser, http)"`
	BrowserBin  string        `name:"browser-bin" env:"DOCINGEST_BROWSER_BIN" help:"Chrome or Chromium binary (default: look up or download)"`
	Extractor   string        `default:"trafilatura" enum:"trafilatura,readability" help:"Main content extractor (trafilatura, readability)"`
	Exclude     []string      `short:"x" help:"Regular expression of URLs to skip (repeatable, replaces the defaults)"`
	StripParam  []string      `name:"strip-param" help:"Query parameter removed from URLs (repeatable, replaces the defaults)"`
	Sitemap     bool          `help:"Seed the frontier from the site's sitemaps"`
	Robots      bool          `help:"Honor robots.txt rules and crawl delay"`
	Catalog     string        `help:"Also mirror records into a SQLite database at this path"`
	MarkdownDir string        `name:"markdown-dir" help:"Also write every page as a markdown file under this directory"`
	MetricsFile string        `name:"metrics-file" help:"Write Prometheus metrics to this file when the run ends"`
	Report      string        `help:"Write a Markdown report of the run to this file"`
	NoFsync     bool          `name:"no-fsync" help:"Do not sync records to disk after every write"`
}

// CheckCmd is the "check" subcommand.
type CheckCmd struct {
	URL        string        `arg:"" help:"Page URL to check"`
	Session    string        `env:"DOCINGEST_SESSION" help:"Cookies or storage-state JSON file to authenticate with"`
	UserAgent  string        `env:"DOCINGEST_USER_AGENT" help:"User agent override"`
	Fetcher    string        `default:"browser" enum:"browser,http" help:"Fetcher to use (browser, http)"`
	BrowserBin string        `name:"browser-bin" env:"DOCINGEST_BROWSER_BIN" help:"Chrome or Chromium binary (default: look up or download)"`
	Timeout    time.Duration `short:"t" default:"30s" help:"Fetch timeout"`
	Compare    bool          `help:"Fetch with both fetchers and report whether the site needs a browser"`
}

// ErrorsCmd is the "errors" subcommand.
type ErrorsCmd struct {
	Catalog string `required:"" env:"DOCINGEST_CATALOG" help:"SQLite catalog written by crawl --catalog"`
	Kind    string `help:"Only list errors of this kind (e.g. HttpError, ChallengeDetected)"`
	Limit   int    `short:"l" default:"50" help:"Maximum number of errors to list (0 = all)"`
	Offset  int    `help:"Number of errors to skip"`
}

// PageCmd is the "page" subcommand.
type PageCmd struct {
	URL     string `arg:"" help:"Page URL as recorded by the crawl"`
	Catalog string `required:"" env:"DOCINGEST_CATALOG" help:"SQLite catalog written by crawl --catalog"`
}
