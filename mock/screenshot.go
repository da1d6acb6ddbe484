package mock

import (
	"context"

	"github.com/fwojciec/docingest"
)

var _ docingest.ScreenshotStore = (*ScreenshotStore)(nil)

// ScreenshotStore is a mock implementation of docingest.ScreenshotStore.
type ScreenshotStore struct {
	SaveScreenshotFn func(ctx context.Context, pageURL string, png []byte) (string, error)
}

func (s *ScreenshotStore) SaveScreenshot(ctx context.Context, pageURL string, png []byte) (string, error) {
	return s.SaveScreenshotFn(ctx, pageURL, png)
}
