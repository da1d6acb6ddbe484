// Package goquery implements HTML inspection on top of goquery: reference
// extraction for the crawler and anti-bot challenge detection.
package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docingest"
)

// Ensure LinkExtractor implements docingest.LinkExtractor at compile time.
var _ docingest.LinkExtractor = (*LinkExtractor)(nil)

// referenceSelector pairs a CSS selector with the attribute holding the URL.
type referenceSelector struct {
	selector string
	attr     string
	embedded bool
}

// Selectors are evaluated as one union so results keep document order.
var referenceSelectors = []referenceSelector{
	{selector: "a[href]", attr: "href"},
	{selector: "area[href]", attr: "href"},
	{selector: "img[src]", attr: "src", embedded: true},
	{selector: "iframe[src]", attr: "src", embedded: true},
	{selector: "video[src]", attr: "src", embedded: true},
	{selector: "source[src]", attr: "src", embedded: true},
	{selector: "embed[src]", attr: "src", embedded: true},
}

var unionSelector = func() string {
	parts := make([]string, len(referenceSelectors))
	for i, s := range referenceSelectors {
		parts[i] = s.selector
	}
	return strings.Join(parts, ", ")
}()

// LinkExtractor extracts anchors and embedded media references from HTML.
type LinkExtractor struct{}

// NewLinkExtractor creates a new LinkExtractor.
func NewLinkExtractor() *LinkExtractor {
	return &LinkExtractor{}
}

// ExtractLinks returns every reference in document order, resolved against
// baseURL. A <base href> in the document takes precedence over baseURL.
// Non-HTTP references (javascript:, mailto:, data:, ...) are skipped.
// Duplicates are kept; classification dedupes per kind.
func (e *LinkExtractor) ExtractLinks(html string, baseURL string) ([]docingest.RawLink, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, docingest.Errorf(docingest.EINVALID, "invalid base URL: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, docingest.Errorf(docingest.EINVALID, "failed to parse HTML: %v", err)
	}

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = base.ResolveReference(ref)
		}
	}

	var links []docingest.RawLink
	doc.Find(unionSelector).Each(func(_ int, sel *goquery.Selection) {
		tag := goquery.NodeName(sel)
		rs, ok := selectorFor(tag)
		if !ok {
			return
		}
		href, _ := sel.Attr(rs.attr)
		href = strings.TrimSpace(href)
		if href == "" || isNonHTTPLink(href) {
			return
		}
		resolved := resolveURL(base, href)
		if resolved == "" {
			return
		}
		links = append(links, docingest.RawLink{
			URL:      resolved,
			Text:     linkText(sel, tag),
			Embedded: rs.embedded,
			Tag:      tag,
		})
	})

	return links, nil
}

func selectorFor(tag string) (referenceSelector, bool) {
	for _, rs := range referenceSelectors {
		if strings.HasPrefix(rs.selector, tag+"[") {
			return rs, true
		}
	}
	return referenceSelector{}, false
}

// linkText returns the alt text for images and the visible text otherwise.
func linkText(sel *goquery.Selection, tag string) string {
	switch tag {
	case "img", "area":
		alt, _ := sel.Attr("alt")
		return strings.TrimSpace(alt)
	case "iframe":
		title, _ := sel.Attr("title")
		return strings.TrimSpace(title)
	}
	return strings.Join(strings.Fields(sel.Text()), " ")
}

// resolveURL resolves href against base and drops the fragment.
// Returns an empty string if href cannot be parsed.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String()
}

// isNonHTTPLink checks if a href is a non-HTTP link that should be skipped.
func isNonHTTPLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	return strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") ||
		strings.HasPrefix(href, "blob:")
}
