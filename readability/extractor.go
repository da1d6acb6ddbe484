// Package readability implements docingest.Extractor with go-readability.
package readability

import (
	"strings"

	"github.com/fwojciec/docingest"
	"github.com/go-shiori/go-readability"
)

// Ensure Extractor implements docingest.Extractor at compile time.
var _ docingest.Extractor = (*Extractor)(nil)

// Extractor wraps go-readability to extract main content from HTML.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract processes raw HTML and returns the main content.
// The readability excerpt doubles as the page description.
func (e *Extractor) Extract(rawHTML string) (*docingest.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, docingest.Errorf(docingest.EINVALID, "empty HTML input")
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), nil)
	if err != nil {
		return nil, err
	}

	return &docingest.ExtractResult{
		Title:       strings.TrimSpace(article.Title),
		Description: strings.TrimSpace(article.Excerpt),
		ContentHTML: article.Content,
	}, nil
}
