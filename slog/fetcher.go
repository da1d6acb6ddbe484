// Package slog provides log/slog decorators for docingest services.
package slog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fwojciec/docingest"
)

// Ensure LoggingFetcher implements docingest.Fetcher.
var _ docingest.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher logs every fetch: successes at debug, failures at warn.
type LoggingFetcher struct {
	next   docingest.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next docingest.Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch delegates to the wrapped fetcher.
func (f *LoggingFetcher) Fetch(ctx context.Context, req *docingest.FetchRequest) (resp *docingest.FetchResponse, err error) {
	defer func(begin time.Time) {
		attrs := []any{"url", req.URL, "duration", time.Since(begin)}
		if resp != nil {
			attrs = append(attrs, "status", resp.StatusCode, "bytes", len(resp.Body))
			if resp.URL != req.URL {
				attrs = append(attrs, "final", resp.URL)
			}
		}
		logOutcome(ctx, f.logger, slog.LevelDebug, "fetch", err, attrs...)
	}(time.Now())
	return f.next.Fetch(ctx, req)
}

// Close delegates to the wrapped fetcher.
func (f *LoggingFetcher) Close() error {
	return f.next.Close()
}

// logOutcome logs msg at level, or at warn with the error attached.
// Cancellation is expected on shutdown and stays at level.
func logOutcome(ctx context.Context, logger *slog.Logger, level slog.Level, msg string, err error, attrs ...any) {
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			level = slog.LevelWarn
		}
		attrs = append(attrs, "err", err)
		if kind := docingest.ErrorKindOf(err); kind != "" {
			attrs = append(attrs, "kind", string(kind))
		}
	}
	logger.Log(ctx, level, msg, attrs...)
}
