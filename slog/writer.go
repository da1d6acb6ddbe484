package slog

import (
	"context"
	"log/slog"

	"github.com/fwojciec/docingest"
)

// Ensure LoggingRecordWriter implements docingest.RecordWriter.
var _ docingest.RecordWriter = (*LoggingRecordWriter)(nil)

// LoggingRecordWriter logs every record as it is written. Pages and
// media log at debug level; error records log at warn level.
type LoggingRecordWriter struct {
	next   docingest.RecordWriter
	logger *slog.Logger
}

// NewLoggingRecordWriter creates a new LoggingRecordWriter.
func NewLoggingRecordWriter(next docingest.RecordWriter, logger *slog.Logger) *LoggingRecordWriter {
	return &LoggingRecordWriter{next: next, logger: logger}
}

// WritePage delegates and logs the page.
func (w *LoggingRecordWriter) WritePage(ctx context.Context, rec *docingest.PageRecord) (err error) {
	defer func() {
		w.logger.Debug("page",
			"url", rec.URL,
			"title", rec.Title,
			"depth", rec.Depth,
			"markdown", len(rec.Markdown),
			"links", len(rec.OutboundLinks),
			"err", err,
		)
	}()
	return w.next.WritePage(ctx, rec)
}

// WriteImage delegates and logs the image.
func (w *LoggingRecordWriter) WriteImage(ctx context.Context, rec *docingest.ImageRecord) (err error) {
	defer func() {
		w.logger.Debug("image", "page", rec.SourcePageURL, "url", rec.MediaURL, "err", err)
	}()
	return w.next.WriteImage(ctx, rec)
}

// WriteVideoLink delegates and logs the video link.
func (w *LoggingRecordWriter) WriteVideoLink(ctx context.Context, rec *docingest.VideoLinkRecord) (err error) {
	defer func() {
		w.logger.Debug("video", "page", rec.SourcePageURL, "url", rec.MediaURL, "err", err)
	}()
	return w.next.WriteVideoLink(ctx, rec)
}

// WriteError delegates and logs the failure.
func (w *LoggingRecordWriter) WriteError(ctx context.Context, rec *docingest.ErrorRecord) (err error) {
	defer func() {
		w.logger.Warn("crawl error",
			"url", rec.URL,
			"kind", rec.ErrorKind,
			"attempt", rec.Attempt,
			"status", rec.HTTPStatus,
			"message", rec.Message,
			"err", err,
		)
	}()
	return w.next.WriteError(ctx, rec)
}

// Close delegates to the wrapped writer.
func (w *LoggingRecordWriter) Close() error {
	return w.next.Close()
}
