package docingest

import (
	"context"
	"time"
)

// PageRecord is a successfully fetched and converted page.
// Records are immutable once written.
type PageRecord struct {
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Markdown       string    `json:"markdown"`
	RawContentHash string    `json:"rawContentHash"`
	HTTPStatus     int       `json:"httpStatus"`
	FetchedAt      time.Time `json:"fetchedAt"`
	Depth          int       `json:"depth"`
	OutboundLinks  []string  `json:"outboundLinks"`

	// ScreenshotFile is relative to the output directory. Empty when no
	// screenshot was taken.
	ScreenshotFile string `json:"screenshotFile,omitempty"`
}

// MediaRecord is one reference from a page to an image or video.
// There is no deduplication across pages.
type MediaRecord struct {
	SourcePageURL string `json:"sourcePageUrl"`
	MediaURL      string `json:"mediaUrl"`
	AltText       string `json:"altText,omitempty"`
}

// ImageRecord references an image from a page.
type ImageRecord = MediaRecord

// VideoLinkRecord references a hosted video from a page.
type VideoLinkRecord = MediaRecord

// ErrorRecord is a permanent per-URL failure.
type ErrorRecord struct {
	URL        string    `json:"url"`
	ErrorKind  ErrorKind `json:"errorKind"`
	Message    string    `json:"message"`
	Attempt    int       `json:"attempt"`
	HTTPStatus int       `json:"httpStatus,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// RecordWriter persists crawl records.
// Implementations must be safe for concurrent use; a returned error means
// the record may not be durable and the run must stop.
type RecordWriter interface {
	WritePage(ctx context.Context, rec *PageRecord) error
	WriteImage(ctx context.Context, rec *ImageRecord) error
	WriteVideoLink(ctx context.Context, rec *VideoLinkRecord) error
	WriteError(ctx context.Context, rec *ErrorRecord) error
	Close() error
}

// StopReason explains why a run ended.
type StopReason string

// Stop reasons.
const (
	StopExhausted StopReason = "exhausted"
	StopPageCap   StopReason = "page_cap"
	StopAborted   StopReason = "aborted"
	StopFatal     StopReason = "fatal"
)

// RunSummary is produced at the end of every run, including aborted ones.
type RunSummary struct {
	RunID         string            `json:"runId"`
	StartURL      string            `json:"startUrl"`
	StartedAt     time.Time         `json:"startedAt"`
	FinishedAt    time.Time         `json:"finishedAt"`
	Pages         int               `json:"pages"`
	MarkdownBytes int               `json:"markdownBytes"`
	Images        int               `json:"images"`
	VideoLinks    int               `json:"videoLinks"`
	UniqueMedia   int               `json:"uniqueMediaEstimate"`
	Errors        int               `json:"errors"`
	ErrorsByKind  map[ErrorKind]int `json:"errorsByKind,omitempty"`
	Resumed       int               `json:"resumed"`
	Degraded      bool              `json:"degraded"`
	StopReason    StopReason        `json:"stopReason"`
	Fatal         string            `json:"fatal,omitempty"`
}

// SummaryWriter persists run summaries.
type SummaryWriter interface {
	WriteSummary(ctx context.Context, s *RunSummary) error
}

// ScreenshotStore persists page screenshots.
type ScreenshotStore interface {
	// SaveScreenshot stores png for pageURL and returns its path relative
	// to the output directory.
	SaveScreenshot(ctx context.Context, pageURL string, png []byte) (string, error)
}

// ResumeState is what a prior run left behind.
type ResumeState struct {
	// Pages holds every page record from previous runs, in file order.
	Pages []*PageRecord
}

// ResumeSource reads the state of previous runs.
type ResumeSource interface {
	LoadResumeState(ctx context.Context) (*ResumeState, error)
}
