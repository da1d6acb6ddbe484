package mock

import (
	"context"

	"github.com/fwojciec/docingest"
)

var _ docingest.SitemapService = (*SitemapService)(nil)

// SitemapService is a mock implementation of docingest.SitemapService.
type SitemapService struct {
	DiscoverURLsFn func(ctx context.Context, baseURL string, filter *docingest.URLFilter) ([]string, error)
}

func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter *docingest.URLFilter) ([]string, error) {
	return s.DiscoverURLsFn(ctx, baseURL, filter)
}
