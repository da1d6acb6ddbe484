package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fwojciec/docingest"
	"github.com/temoto/robotstxt"
)

// Ensure Robots implements docingest.URLPolicy at compile time.
var _ docingest.URLPolicy = (*Robots)(nil)

// Robots is a robots.txt policy for a single host.
// The zero value and a nil Robots allow everything.
type Robots struct {
	data  *robotstxt.RobotsData
	agent string
}

// LoadRobots fetches robots.txt for the host of siteURL and applies the
// rules for agent. A missing or unreadable robots.txt allows everything;
// only a cancelled context is reported as an error.
func LoadRobots(ctx context.Context, client *http.Client, siteURL, agent string) (*Robots, error) {
	data, err := fetchRobots(ctx, client, siteURL, agent)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &Robots{}, nil
	}
	return &Robots{data: data, agent: agent}, nil
}

// ParseRobots builds a policy from a robots.txt body.
func ParseRobots(body []byte, agent string) (*Robots, error) {
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, docingest.Errorf(docingest.EINVALID, "invalid robots.txt: %v", err)
	}
	return &Robots{data: data, agent: agent}, nil
}

// Allowed reports whether the policy permits fetching rawURL.
func (r *Robots) Allowed(rawURL string) bool {
	if r == nil || r.data == nil {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return r.data.TestAgent(path, r.agent)
}

// CrawlDelay returns the Crawl-delay directive, or zero.
func (r *Robots) CrawlDelay() time.Duration {
	if r == nil || r.data == nil {
		return 0
	}
	if g := r.data.FindGroup(r.agent); g != nil {
		return g.CrawlDelay
	}
	return 0
}

// Sitemaps returns the Sitemap directives.
func (r *Robots) Sitemaps() []string {
	if r == nil || r.data == nil {
		return nil
	}
	return r.data.Sitemaps
}

func fetchRobots(ctx context.Context, client *http.Client, siteURL, agent string) (*robotstxt.RobotsData, error) {
	if client == nil {
		client = http.DefaultClient
	}
	base, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("invalid site URL: %w", err)
	}
	robotsURL := base.ResolveReference(&url.URL{Path: "/robots.txt"})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil, err
	}
	if agent != "" {
		req.Header.Set("User-Agent", agent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return nil, err
	}
	return robotstxt.FromStatusAndBytes(resp.StatusCode, body)
}
