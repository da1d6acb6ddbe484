package crawl_test

import (
	"regexp"
	"testing"

	"github.com/fwojciec/docingest"
	"github.com/fwojciec/docingest/crawl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScope(t *testing.T) *crawl.Scope {
	t.Helper()
	scope, err := crawl.NewScope("https://example.org/docs/Main", "/docs/", nil, docingest.DefaultStripParams)
	require.NoError(t, err)
	return scope
}

func TestScope_Normalize(t *testing.T) {
	t.Parallel()

	scope := newScope(t)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"absolute", "https://example.org/docs/A", "https://example.org/docs/A"},
		{"relative to start", "B", "https://example.org/docs/B"},
		{"root relative", "/docs/C", "https://example.org/docs/C"},
		{"strips fragment", "/docs/A#section", "https://example.org/docs/A"},
		{"lowercases host and scheme", "HTTPS://Example.ORG/docs/A", "https://example.org/docs/A"},
		{"drops default port", "https://example.org:443/docs/A", "https://example.org/docs/A"},
		{"keeps other ports", "https://example.org:8443/docs/A", "https://example.org:8443/docs/A"},
		{"trims trailing slash", "/docs/A/", "https://example.org/docs/A"},
		{"keeps root slash", "https://example.org", "https://example.org/"},
		{"strips noisy params", "/docs/A?oldid=12&printable=yes", "https://example.org/docs/A"},
		{"sorts query", "/docs/A?b=2&a=1", "https://example.org/docs/A?a=1&b=2"},
		{"trims whitespace", "  /docs/A  ", "https://example.org/docs/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := scope.Normalize(tt.raw)

			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScope_Normalize_rejects_non_http(t *testing.T) {
	t.Parallel()

	scope := newScope(t)

	for _, raw := range []string{"", "mailto:docs@example.org", "javascript:void(0)", "ftp://example.org/docs/A"} {
		_, ok := scope.Normalize(raw)
		assert.False(t, ok, "expected %q to be rejected", raw)
	}
}

func TestScope_Normalize_is_deterministic(t *testing.T) {
	t.Parallel()

	scope := newScope(t)

	variants := []string{
		"https://example.org/docs/A",
		"https://example.org/docs/A/",
		"https://EXAMPLE.org/docs/A#top",
		"/docs/A?oldid=3",
		"A",
	}
	for _, raw := range variants {
		got, ok := scope.Normalize(raw)
		require.True(t, ok)
		assert.Equal(t, "https://example.org/docs/A", got, "variant %q", raw)
	}
}

func TestScope_Contains(t *testing.T) {
	t.Parallel()

	filter := &docingest.URLFilter{Exclude: []*regexp.Regexp{regexp.MustCompile(`(?i)special:`)}}
	scope, err := crawl.NewScope("https://example.org/docs/Main", "/docs/", filter, nil)
	require.NoError(t, err)

	assert.True(t, scope.Contains("https://example.org/docs/A"))
	assert.True(t, scope.Contains("https://example.org/docs/a/b"))
	assert.True(t, scope.Contains("https://example.org/docs"), "prefix directory itself")
	assert.False(t, scope.Contains("https://example.org/docsearch"))
	assert.False(t, scope.Contains("https://example.org/other/A"))
	assert.False(t, scope.Contains("https://other.org/docs/A"))
	assert.False(t, scope.Contains("https://example.org/docs/Special:RecentChanges"))
}

func TestNewScope(t *testing.T) {
	t.Parallel()

	t.Run("defaults prefix to start directory", func(t *testing.T) {
		t.Parallel()

		scope, err := crawl.NewScope("https://example.org/403/en/Main_page", "", nil, nil)

		require.NoError(t, err)
		assert.Equal(t, "/403/en/", scope.Prefix())
	})

	t.Run("rejects relative start URL", func(t *testing.T) {
		t.Parallel()

		_, err := crawl.NewScope("/docs/Main", "/docs/", nil, nil)

		require.Error(t, err)
		assert.Equal(t, docingest.EINVALID, docingest.ErrorCode(err))
	})
}
