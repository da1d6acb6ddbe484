package crawl

import "github.com/fwojciec/docingest"

// NeedsRendering compares the main content of a page fetched over plain
// HTTP with the same page rendered by a browser. It returns true when
// the rendered content is more than 50% longer, meaning the site builds
// its content with JavaScript and must be crawled with a browser.
// Extraction failures also return true.
func NeedsRendering(static, rendered string, extractor docingest.Extractor) bool {
	staticResult, err := extractor.Extract(static)
	if err != nil {
		return true
	}
	renderedResult, err := extractor.Extract(rendered)
	if err != nil {
		return true
	}

	staticLen := len(staticResult.ContentHTML)
	renderedLen := len(renderedResult.ContentHTML)
	if staticLen == 0 {
		return renderedLen > 0
	}
	return float64(renderedLen) > float64(staticLen)*1.5
}
