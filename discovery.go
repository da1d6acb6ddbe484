package docingest

import (
	"context"
	"regexp"
)

// SitemapService lists the page URLs a site advertises in its sitemaps.
type SitemapService interface {
	// DiscoverURLs returns the sitemap URLs of baseURL's host that lie
	// under baseURL's directory and pass filter. A nil filter passes
	// everything. A site without sitemaps yields an empty slice.
	DiscoverURLs(ctx context.Context, baseURL string, filter *URLFilter) ([]string, error)
}

// URLPolicy vetoes URLs the crawler must not fetch, such as paths
// disallowed by robots.txt.
type URLPolicy interface {
	Allowed(url string) bool
}

// URLFilter drops URLs by pattern. A URL passes when it matches some
// Include pattern (or Include is empty) and no Exclude pattern.
type URLFilter struct {
	Include []*regexp.Regexp
	Exclude []*regexp.Regexp
}

// NewURLFilter compiles exclude patterns. It returns nil, which passes
// everything, when there are none.
func NewURLFilter(exclude []string) (*URLFilter, error) {
	if len(exclude) == 0 {
		return nil, nil
	}
	f := &URLFilter{Exclude: make([]*regexp.Regexp, 0, len(exclude))}
	for _, p := range exclude {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, Errorf(EINVALID, "invalid exclude pattern %q: %v", p, err)
		}
		f.Exclude = append(f.Exclude, re)
	}
	return f, nil
}

// Match reports whether url passes f. A nil filter passes everything.
func (f *URLFilter) Match(url string) bool {
	if f == nil {
		return true
	}
	return (len(f.Include) == 0 || anyMatch(f.Include, url)) && !anyMatch(f.Exclude, url)
}

func anyMatch(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
