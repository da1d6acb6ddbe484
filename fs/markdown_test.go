package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/docingest"
	"github.com/fwojciec/docingest/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLToPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "simple path",
			url:  "https://example.com/docs/api/users",
			want: "docs/api/users.md",
		},
		{
			name: "trailing slash becomes index",
			url:  "https://example.com/docs/",
			want: "docs/index.md",
		},
		{
			name: "root path becomes index",
			url:  "https://example.com/",
			want: "index.md",
		},
		{
			name: "no trailing slash",
			url:  "https://example.com/docs",
			want: "docs.md",
		},
		{
			name: "ignores query string",
			url:  "https://example.com/docs/api?version=2",
			want: "docs/api.md",
		},
		{
			name: "ignores fragment",
			url:  "https://example.com/docs/api#section",
			want: "docs/api.md",
		},
		{
			name: "root without trailing slash",
			url:  "https://example.com",
			want: "index.md",
		},
		{
			name: "deep nesting",
			url:  "https://example.com/a/b/c/d/e/f",
			want: "a/b/c/d/e/f.md",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := fs.URLToPath(tt.url)

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatPage(t *testing.T) {
	t.Parallel()

	t.Run("formats page with frontmatter", func(t *testing.T) {
		t.Parallel()

		rec := &docingest.PageRecord{
			URL:            "https://example.com/docs/api",
			Title:          "API Reference",
			Markdown:       "# API Reference\n\nThis is the API documentation.",
			RawContentHash: "1a2b",
			FetchedAt:      time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
		}

		got := fs.FormatPage(rec)

		want := `---
source: https://example.com/docs/api
title: API Reference
crawled: 2025-01-08
hash: 1a2b
---

# API Reference

This is the API documentation.`

		assert.Equal(t, want, got)
	})

	t.Run("includes description when present", func(t *testing.T) {
		t.Parallel()

		got := fs.FormatPage(&docingest.PageRecord{
			URL:         "https://example.com/docs/api",
			Title:       "API",
			Description: "Endpoints and errors",
		})

		assert.Contains(t, got, "\ndescription: Endpoints and errors\n")
	})

	t.Run("references the screenshot when present", func(t *testing.T) {
		t.Parallel()

		got := fs.FormatPage(&docingest.PageRecord{
			URL:            "https://example.com/docs/api",
			Title:          "API",
			ScreenshotFile: "screenshots/docs_api.png",
		})

		assert.Contains(t, got, "\nscreenshot: screenshots/docs_api.png\n---")
	})
}

func TestMarkdownWriter_ImplementsInterface(t *testing.T) {
	t.Parallel()

	var _ docingest.RecordWriter = &fs.MarkdownWriter{}
}

func TestMarkdownWriter_WritePage(t *testing.T) {
	t.Parallel()

	t.Run("writes page to URL path", func(t *testing.T) {
		t.Parallel()

		baseDir := t.TempDir()
		w := fs.NewMarkdownWriter(baseDir)

		err := w.WritePage(context.Background(), &docingest.PageRecord{
			URL:       "https://example.com/docs/api/users",
			Title:     "Users API",
			Markdown:  "# Users API",
			FetchedAt: time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
		})

		require.NoError(t, err)
		content, err := os.ReadFile(filepath.Join(baseDir, "docs/api/users.md"))
		require.NoError(t, err)
		assert.Contains(t, string(content), "source: https://example.com/docs/api/users")
		assert.Contains(t, string(content), "# Users API")
	})

	t.Run("root page becomes index", func(t *testing.T) {
		t.Parallel()

		baseDir := t.TempDir()
		w := fs.NewMarkdownWriter(baseDir)

		err := w.WritePage(context.Background(), &docingest.PageRecord{URL: "https://example.com/", Markdown: "home"})

		require.NoError(t, err)
		_, err = os.Stat(filepath.Join(baseDir, "index.md"))
		require.NoError(t, err)
	})

	t.Run("rejects path traversal", func(t *testing.T) {
		t.Parallel()

		w := fs.NewMarkdownWriter(t.TempDir())

		err := w.WritePage(context.Background(), &docingest.PageRecord{
			URL:      "https://example.com/../../../etc/passwd",
			Markdown: "bad content",
		})

		require.Error(t, err)
		assert.Contains(t, docingest.ErrorMessage(err), "path traversal")
	})

	t.Run("ignores media and errors", func(t *testing.T) {
		t.Parallel()

		baseDir := t.TempDir()
		w := fs.NewMarkdownWriter(baseDir)

		require.NoError(t, w.WriteImage(context.Background(), &docingest.ImageRecord{MediaURL: "https://example.com/a.png"}))
		require.NoError(t, w.WriteError(context.Background(), &docingest.ErrorRecord{URL: "https://example.com/x"}))

		entries, err := os.ReadDir(baseDir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
