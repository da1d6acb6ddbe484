// Package htmltomarkdown implements docingest.Converter with
// html-to-markdown.
package htmltomarkdown

import (
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/fwojciec/docingest"
)

// Ensure Converter implements docingest.Converter at compile time.
var _ docingest.Converter = (*Converter)(nil)

var (
	blankRuns      = regexp.MustCompile(`\n{3,}`)
	trailingSpaces = regexp.MustCompile(`[ \t]+\n`)
	removedTags    = []string{"script", "style", "noscript", "iframe", "form", "button"}
)

// Converter wraps html-to-markdown to convert HTML to Markdown.
// Output is normalized: trailing spaces are removed, runs of blank lines
// collapse to one and the result ends without surrounding whitespace, so
// identical content always yields identical Markdown.
type Converter struct {
	conv   *converter.Converter
	domain string
}

// Option configures a Converter.
type Option func(*Converter)

// WithDomain resolves relative links and images against domain.
func WithDomain(domain string) Option {
	return func(c *Converter) {
		c.domain = domain
	}
}

// NewConverter creates a new Converter.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{}
	for _, opt := range opts {
		opt(c)
	}
	c.conv = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	for _, tag := range removedTags {
		c.conv.Register.TagType(tag, converter.TagTypeRemove, converter.PriorityStandard)
	}
	return c
}

// Convert transforms HTML content into Markdown.
func (c *Converter) Convert(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", docingest.Errorf(docingest.EINVALID, "empty HTML input")
	}

	var opts []converter.ConvertOptionFunc
	if c.domain != "" {
		opts = append(opts, converter.WithDomain(c.domain))
	}
	result, err := c.conv.ConvertString(html, opts...)
	if err != nil {
		return "", err
	}

	return normalize(result), nil
}

func normalize(md string) string {
	md = strings.ReplaceAll(md, "\r\n", "\n")
	md = trailingSpaces.ReplaceAllString(md, "\n")
	md = blankRuns.ReplaceAllString(md, "\n\n")
	return strings.TrimSpace(md)
}
