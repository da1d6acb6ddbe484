package crawl_test

import (
	"testing"

	"github.com/fwojciec/docingest"
	"github.com/fwojciec/docingest/crawl"
	"github.com/stretchr/testify/assert"
)

func TestClassifier_ClassifyOne(t *testing.T) {
	t.Parallel()

	c := crawl.NewClassifier(newScope(t))

	tests := []struct {
		name string
		link docingest.RawLink
		kind docingest.LinkKind
		url  string
	}{
		{
			name: "youtube watch link",
			link: docingest.RawLink{URL: "https://www.youtube.com/watch?v=abc", Tag: "a"},
			kind: docingest.LinkVideo,
			url:  "https://www.youtube.com/watch?v=abc",
		},
		{
			name: "short youtube link",
			link: docingest.RawLink{URL: "https://youtu.be/abc", Tag: "a"},
			kind: docingest.LinkVideo,
			url:  "https://youtu.be/abc",
		},
		{
			name: "embedded vimeo player",
			link: docingest.RawLink{URL: "https://player.vimeo.com/video/1", Tag: "iframe", Embedded: true},
			kind: docingest.LinkVideo,
			url:  "https://player.vimeo.com/video/1",
		},
		{
			name: "image by extension under prefix wins over page",
			link: docingest.RawLink{URL: "https://example.org/docs/image.png", Tag: "a"},
			kind: docingest.LinkImage,
			url:  "https://example.org/docs/image.png",
		},
		{
			name: "image element without extension",
			link: docingest.RawLink{URL: "https://cdn.example.org/render?id=1", Tag: "img", Embedded: true},
			kind: docingest.LinkImage,
			url:  "https://cdn.example.org/render?id=1",
		},
		{
			name: "external image",
			link: docingest.RawLink{URL: "https://other.org/logo.SVG", Tag: "a"},
			kind: docingest.LinkImage,
			url:  "https://other.org/logo.SVG",
		},
		{
			name: "in-scope page is normalized",
			link: docingest.RawLink{URL: "https://example.org/docs/A/#intro", Tag: "a"},
			kind: docingest.LinkPage,
			url:  "https://example.org/docs/A",
		},
		{
			name: "external page",
			link: docingest.RawLink{URL: "https://other.org/x", Tag: "a"},
			kind: docingest.LinkIgnored,
		},
		{
			name: "out of prefix page",
			link: docingest.RawLink{URL: "https://example.org/blog/x", Tag: "a"},
			kind: docingest.LinkIgnored,
		},
		{
			name: "embedded in-scope frame",
			link: docingest.RawLink{URL: "https://example.org/docs/widget", Tag: "iframe", Embedded: true},
			kind: docingest.LinkIgnored,
		},
		{
			name: "mailto",
			link: docingest.RawLink{URL: "mailto:docs@example.org", Tag: "a"},
			kind: docingest.LinkIgnored,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			kind, u := c.ClassifyOne(tt.link)

			assert.Equal(t, tt.kind, kind)
			if tt.kind != docingest.LinkIgnored {
				assert.Equal(t, tt.url, u)
			}
		})
	}
}

func TestClassifier_Classify_docs_scenario(t *testing.T) {
	t.Parallel()

	c := crawl.NewClassifier(newScope(t))

	links := c.Classify([]docingest.RawLink{
		{URL: "https://example.org/docs/A", Tag: "a"},
		{URL: "https://example.org/docs/B", Tag: "a"},
		{URL: "https://other.org/x", Tag: "a"},
		{URL: "https://example.org/docs/image.png", Tag: "img", Text: "diagram", Embedded: true},
	})

	var pages, images []docingest.Link
	for _, l := range links {
		switch l.Kind {
		case docingest.LinkPage:
			pages = append(pages, l)
		case docingest.LinkImage:
			images = append(images, l)
		}
	}
	assert.Len(t, pages, 2)
	assert.Len(t, images, 1)
	assert.Equal(t, "diagram", images[0].Text)
	assert.Len(t, links, 3, "external link is ignored")
}

func TestClassifier_Classify_dedupes_within_page(t *testing.T) {
	t.Parallel()

	c := crawl.NewClassifier(newScope(t))

	links := c.Classify([]docingest.RawLink{
		{URL: "https://example.org/docs/A", Tag: "a"},
		{URL: "https://example.org/docs/A#x", Tag: "a"},
		{URL: "https://youtu.be/abc", Tag: "a"},
		{URL: "https://youtu.be/abc", Tag: "script", Embedded: true},
	})

	assert.Len(t, links, 2)
}

func TestScanVideoLinks(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<script>var player = "https://www.youtube.com/embed/xyz";</script>
<p>Watch (https://youtu.be/abc).</p>
<a href="https://example.org/docs/A">A</a>
</body></html>`

	links := crawl.ScanVideoLinks(html)

	var urls []string
	for _, l := range links {
		urls = append(urls, l.URL)
		assert.True(t, l.Embedded)
	}
	assert.Equal(t, []string{"https://www.youtube.com/embed/xyz", "https://youtu.be/abc"}, urls)
}
