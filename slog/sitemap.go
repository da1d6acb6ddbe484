package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docingest"
)

// Ensure LoggingSitemapService implements docingest.SitemapService.
var _ docingest.SitemapService = (*LoggingSitemapService)(nil)

// LoggingSitemapService logs sitemap discovery. The exclude count is
// logged so an empty result can be told apart from an over-eager filter.
type LoggingSitemapService struct {
	next   docingest.SitemapService
	logger *slog.Logger
}

// NewLoggingSitemapService creates a new LoggingSitemapService.
func NewLoggingSitemapService(next docingest.SitemapService, logger *slog.Logger) *LoggingSitemapService {
	return &LoggingSitemapService{next: next, logger: logger}
}

// DiscoverURLs delegates to the wrapped service.
func (s *LoggingSitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter *docingest.URLFilter) (urls []string, err error) {
	defer func(begin time.Time) {
		excluded := 0
		if filter != nil {
			excluded = len(filter.Exclude)
		}
		logOutcome(ctx, s.logger, slog.LevelInfo, "sitemap discovery", err,
			"url", baseURL,
			"found", len(urls),
			"exclude_patterns", excluded,
			"duration", time.Since(begin),
		)
	}(time.Now())
	return s.next.DiscoverURLs(ctx, baseURL, filter)
}
