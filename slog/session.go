package slog

import (
	"context"
	"log/slog"

	"github.com/fwojciec/docingest"
)

// Ensure LoggingSessionSource implements docingest.SessionSource.
var _ docingest.SessionSource = (*LoggingSessionSource)(nil)

// LoggingSessionSource logs how many cookies a session carries.
// Cookie values are never logged.
type LoggingSessionSource struct {
	next   docingest.SessionSource
	logger *slog.Logger
}

// NewLoggingSessionSource creates a new LoggingSessionSource.
func NewLoggingSessionSource(next docingest.SessionSource, logger *slog.Logger) *LoggingSessionSource {
	return &LoggingSessionSource{next: next, logger: logger}
}

// Load delegates to the wrapped source and logs the result.
func (s *LoggingSessionSource) Load(ctx context.Context) (session *docingest.SessionState, err error) {
	defer func() {
		logOutcome(ctx, s.logger, slog.LevelInfo, "session loaded", err,
			"cookies", session.Len(),
			"storage", len(session.Storage()) > 0,
		)
	}()
	return s.next.Load(ctx)
}
