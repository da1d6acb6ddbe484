package crawl

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/fwojciec/docingest"
)

// videoHosts are hosts whose links are recorded as videos. Subdomains match.
var videoHosts = []string{
	"youtube.com",
	"youtube-nocookie.com",
	"youtu.be",
	"vimeo.com",
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".svg":  true,
	".webp": true,
	".bmp":  true,
	".ico":  true,
	".avif": true,
}

var absoluteURLPattern = regexp.MustCompile(`(?i)https?://[^\s"'<>\\]+`)

// rule maps a link to a kind when match holds.
type rule struct {
	kind  docingest.LinkKind
	match func(s *Scope, link docingest.RawLink, u *url.URL) bool
}

// Classifier tags links with the first matching rule:
// video host, image resource, in-scope page, otherwise ignored.
type Classifier struct {
	scope *Scope
	rules []rule
}

// NewClassifier creates a Classifier bounded by scope.
func NewClassifier(scope *Scope) *Classifier {
	return &Classifier{
		scope: scope,
		rules: []rule{
			{kind: docingest.LinkVideo, match: isVideoLink},
			{kind: docingest.LinkImage, match: isImageLink},
			{kind: docingest.LinkPage, match: isPageLink},
		},
	}
}

// ClassifyOne returns the kind of a single link and the URL to record
// for it. Page URLs are normalized; media URLs keep their query.
func (c *Classifier) ClassifyOne(link docingest.RawLink) (docingest.LinkKind, string) {
	u, err := url.Parse(strings.TrimSpace(link.URL))
	if err != nil {
		return docingest.LinkIgnored, ""
	}
	u = c.scope.base.ResolveReference(u)
	if u.Scheme != "http" && u.Scheme != "https" {
		return docingest.LinkIgnored, ""
	}
	u.Fragment = ""

	for _, r := range c.rules {
		if !r.match(c.scope, link, u) {
			continue
		}
		if r.kind == docingest.LinkPage {
			normalized, _ := c.scope.Normalize(u.String())
			return r.kind, normalized
		}
		return r.kind, u.String()
	}
	return docingest.LinkIgnored, ""
}

// Classify tags every link and drops ignored ones. Each URL appears at
// most once per kind, in first-seen order.
func (c *Classifier) Classify(links []docingest.RawLink) []docingest.Link {
	seen := make(map[docingest.LinkKind]map[string]bool)
	var out []docingest.Link
	for _, link := range links {
		kind, u := c.ClassifyOne(link)
		if kind == docingest.LinkIgnored {
			continue
		}
		if seen[kind] == nil {
			seen[kind] = make(map[string]bool)
		}
		if seen[kind][u] {
			continue
		}
		seen[kind][u] = true
		out = append(out, docingest.Link{URL: u, Text: strings.TrimSpace(link.Text), Kind: kind})
	}
	return out
}

// ScanVideoLinks finds video URLs anywhere in the page source, including
// player embeds and scripts that produce no link element.
func ScanVideoLinks(html string) []docingest.RawLink {
	var out []docingest.RawLink
	for _, raw := range absoluteURLPattern.FindAllString(html, -1) {
		raw = strings.TrimRight(raw, ").,;")
		u, err := url.Parse(raw)
		if err != nil || !isVideoHost(u.Hostname()) {
			continue
		}
		out = append(out, docingest.RawLink{URL: raw, Embedded: true, Tag: "script"})
	}
	return out
}

func isVideoLink(_ *Scope, _ docingest.RawLink, u *url.URL) bool {
	return isVideoHost(u.Hostname())
}

func isVideoHost(host string) bool {
	host = strings.ToLower(host)
	for _, h := range videoHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func isImageLink(_ *Scope, link docingest.RawLink, u *url.URL) bool {
	if link.Tag == "img" {
		return true
	}
	return imageExtensions[strings.ToLower(path.Ext(u.Path))]
}

func isPageLink(s *Scope, link docingest.RawLink, u *url.URL) bool {
	if link.Embedded {
		return false
	}
	normalized, ok := s.Normalize(u.String())
	return ok && s.Contains(normalized)
}
