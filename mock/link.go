package mock

import "github.com/fwojciec/docingest"

var (
	_ docingest.LinkExtractor     = (*LinkExtractor)(nil)
	_ docingest.ChallengeDetector = (*ChallengeDetector)(nil)
)

// LinkExtractor is a mock implementation of docingest.LinkExtractor.
type LinkExtractor struct {
	ExtractLinksFn func(html string, baseURL string) ([]docingest.RawLink, error)
}

func (e *LinkExtractor) ExtractLinks(html string, baseURL string) ([]docingest.RawLink, error) {
	return e.ExtractLinksFn(html, baseURL)
}

// ChallengeDetector is a mock implementation of docingest.ChallengeDetector.
type ChallengeDetector struct {
	DetectFn func(html string) []string
}

func (d *ChallengeDetector) Detect(html string) []string {
	return d.DetectFn(html)
}
