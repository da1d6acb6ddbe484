package crawl

import (
	"net/url"
	"strings"

	"github.com/fwojciec/docingest"
)

// Scope decides which URLs belong to the crawl and maps every URL to
// its canonical form. Normalization is lossy but deterministic.
type Scope struct {
	base        *url.URL
	prefix      string
	filter      *docingest.URLFilter
	stripParams map[string]bool
}

// NewScope returns a scope rooted at startURL. Pages are in scope when
// they live on the start host under prefix and pass filter.
func NewScope(startURL, prefix string, filter *docingest.URLFilter, stripParams []string) (*Scope, error) {
	base, err := url.Parse(strings.TrimSpace(startURL))
	if err != nil || base.Host == "" {
		return nil, docingest.Errorf(docingest.EINVALID, "invalid start URL %q", startURL)
	}
	if prefix == "" {
		prefix = docingest.DirPrefix(base.Path)
	}
	strip := make(map[string]bool, len(stripParams))
	for _, p := range stripParams {
		strip[strings.ToLower(p)] = true
	}
	return &Scope{
		base:        base,
		prefix:      prefix,
		filter:      filter,
		stripParams: strip,
	}, nil
}

// Prefix returns the scope path prefix.
func (s *Scope) Prefix() string {
	return s.prefix
}

// Normalize resolves raw against the start URL and canonicalizes it:
// lower-case scheme and host, no fragment, no default port, noise
// parameters removed, query keys sorted, and no trailing slash except
// on the root path. Only http and https URLs normalize.
func (s *Scope) Normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	u := s.base.ResolveReference(ref)

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	u.Host = strings.ToLower(u.Host)
	if port := u.Port(); (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = u.Hostname()
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil

	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			if s.stripParams[strings.ToLower(key)] {
				q.Del(key)
			}
		}
		u.RawQuery = q.Encode()
	}
	u.ForceQuery = false

	if u.Path == "" {
		u.Path = "/"
	}
	if len(u.Path) > 1 {
		u.Path = strings.TrimRight(u.Path, "/")
		if u.Path == "" {
			u.Path = "/"
		}
	}
	u.RawPath = ""

	return u.String(), true
}

// Contains reports whether a normalized URL is in scope.
// The prefix directory itself is in scope even without its trailing slash.
func (s *Scope) Contains(normalized string) bool {
	u, err := url.Parse(normalized)
	if err != nil {
		return false
	}
	if !strings.EqualFold(u.Hostname(), s.base.Hostname()) {
		return false
	}
	if !strings.HasPrefix(u.Path, s.prefix) && u.Path != strings.TrimRight(s.prefix, "/") {
		return false
	}
	return s.filter.Match(normalized)
}
