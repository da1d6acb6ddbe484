package http

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/docingest"
)

// Ensure SitemapService implements docingest.SitemapService.
var _ docingest.SitemapService = (*SitemapService)(nil)

// Sitemap limits, from the sitemaps.org protocol.
const (
	DefaultMaxSitemapURLs = 50000
	maxSitemapBytes       = 50 << 20
	maxIndexDepth         = 3
)

// SitemapService discovers page URLs from a site's sitemaps. Sitemaps
// are located through robots.txt, then at well-known paths. Indexes are
// followed, gzip-compressed sitemaps are accepted, and only URLs under
// the base URL's directory are returned.
type SitemapService struct {
	client    *http.Client
	userAgent string
	maxURLs   int
}

// NewSitemapService creates a new SitemapService with the given HTTP client.
// If client is nil, http.DefaultClient is used.
func NewSitemapService(client *http.Client) *SitemapService {
	if client == nil {
		client = http.DefaultClient
	}
	return &SitemapService{client: client, maxURLs: DefaultMaxSitemapURLs}
}

// WithUserAgent returns a copy of s that identifies itself as agent.
func (s *SitemapService) WithUserAgent(agent string) *SitemapService {
	c := *s
	c.userAgent = agent
	return &c
}

// WithMaxURLs returns a copy of s that stops after n page URLs.
func (s *SitemapService) WithMaxURLs(n int) *SitemapService {
	c := *s
	c.maxURLs = n
	return &c
}

// DiscoverURLs returns the in-scope page URLs listed in the sitemaps of
// baseURL's host, in sitemap order and without duplicates. A site without
// sitemaps yields an empty slice. Unreadable child sitemaps of an index
// are skipped; only a canceled context or an unreadable top-level sitemap
// is an error.
func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter *docingest.URLFilter) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil, docingest.Errorf(docingest.EINVALID, "invalid base URL %q", baseURL)
	}

	w := &sitemapWalk{
		svc:     s,
		prefix:  docingest.DirPrefix(base.Path),
		filter:  filter,
		visited: make(map[string]bool),
		found:   make(map[string]bool),
		urls:    []string{},
	}

	sitemaps, err := s.locate(ctx, base)
	if err != nil {
		return nil, err
	}
	for _, loc := range sitemaps {
		if err := w.visit(ctx, loc, 0); err != nil {
			return nil, err
		}
		if w.full() {
			break
		}
	}
	return w.urls, nil
}

// locate returns the sitemaps declared in robots.txt, or else the first
// well-known sitemap location that answers 200.
func (s *SitemapService) locate(ctx context.Context, base *url.URL) ([]string, error) {
	robots, err := LoadRobots(ctx, s.client, base.String(), s.userAgent)
	if err != nil {
		return nil, err
	}
	if declared := robots.Sitemaps(); len(declared) > 0 {
		return declared, nil
	}

	candidates := []string{"/sitemap.xml", "/sitemap_index.xml"}
	if prefix := docingest.DirPrefix(base.Path); prefix != "/" {
		candidates = append(candidates, prefix+"sitemap.xml")
	}
	for _, p := range candidates {
		loc := base.ResolveReference(&url.URL{Path: p}).String()
		ok, err := s.exists(ctx, loc)
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if ok {
			return []string{loc}, nil
		}
	}
	return nil, nil
}

// sitemapWalk is the state of one discovery.
type sitemapWalk struct {
	svc     *SitemapService
	prefix  string
	filter  *docingest.URLFilter
	visited map[string]bool
	found   map[string]bool
	urls    []string
}

func (w *sitemapWalk) full() bool {
	return w.svc.maxURLs > 0 && len(w.urls) >= w.svc.maxURLs
}

// visit reads one sitemap. Errors below the top level are swallowed so
// that one broken child does not hide the rest of an index.
func (w *sitemapWalk) visit(ctx context.Context, loc string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.visited[loc] || depth > maxIndexDepth {
		return nil
	}
	w.visited[loc] = true

	root, err := w.svc.read(ctx, loc)
	if err != nil {
		if depth == 0 || ctx.Err() != nil {
			return err
		}
		return nil
	}

	switch root.Tag {
	case "sitemapindex":
		for _, child := range locs(root, "sitemap") {
			if err := w.visit(ctx, child, depth+1); err != nil {
				return err
			}
			if w.full() {
				return nil
			}
		}
	case "urlset":
		for _, u := range locs(root, "url") {
			w.add(u)
			if w.full() {
				return nil
			}
		}
	default:
		if depth == 0 {
			return fmt.Errorf("%s: unexpected root element <%s>", loc, root.Tag)
		}
	}
	return nil
}

func (w *sitemapWalk) add(raw string) {
	if w.found[raw] || !inPrefix(raw, w.prefix) || !w.filter.Match(raw) {
		return
	}
	w.found[raw] = true
	w.urls = append(w.urls, raw)
}

// inPrefix reports whether raw's path is under prefix. The prefix
// directory itself matches without its trailing slash, so /docs is
// under /docs/ but /documentation is not.
func inPrefix(raw, prefix string) bool {
	if prefix == "/" {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.HasPrefix(u.Path, prefix) || u.Path == strings.TrimSuffix(prefix, "/")
}

// locs returns the trimmed <loc> texts of every child element named tag.
// Sitemap namespaces are ignored.
func locs(root *etree.Element, tag string) []string {
	var out []string
	for _, el := range root.SelectElements(tag) {
		loc := el.SelectElement("loc")
		if loc == nil {
			continue
		}
		if s := strings.TrimSpace(loc.Text()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// read fetches and parses a sitemap, decompressing it when needed.
func (s *SitemapService) read(ctx context.Context, loc string) (*etree.Element, error) {
	resp, err := s.do(ctx, http.MethodGet, loc)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sitemap %s: HTTP %d", loc, resp.StatusCode)
	}

	body, err := decompress(bufio.NewReader(io.LimitReader(resp.Body, maxSitemapBytes)))
	if err != nil {
		return nil, fmt.Errorf("sitemap %s: %w", loc, err)
	}

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(body); err != nil {
		return nil, fmt.Errorf("parsing sitemap %s: %w", loc, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("sitemap %s: empty document", loc)
	}
	return root, nil
}

var gzipMagic = []byte{0x1f, 0x8b}

// decompress unwraps gzip content by sniffing its magic bytes; servers
// label .xml.gz files inconsistently.
func decompress(r *bufio.Reader) (io.Reader, error) {
	head, _ := r.Peek(len(gzipMagic))
	if !bytes.Equal(head, gzipMagic) {
		return r, nil
	}
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	return io.LimitReader(zr, maxSitemapBytes), nil
}

func (s *SitemapService) exists(ctx context.Context, loc string) (bool, error) {
	resp, err := s.do(ctx, http.MethodHead, loc)
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

func (s *SitemapService) do(ctx context.Context, method, loc string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, loc, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	return s.client.Do(req)
}
