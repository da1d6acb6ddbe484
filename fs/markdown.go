package fs

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/docingest"
)

// URLToPath converts a documentation URL to a relative file path.
// Example: https://example.com/docs/api/users → docs/api/users.md
func URLToPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	path := u.Path

	if path == "" || path == "/" {
		return "index.md", nil
	}

	path = strings.TrimPrefix(path, "/")

	if strings.HasSuffix(path, "/") {
		return path + "index.md", nil
	}

	return path + ".md", nil
}

// FormatPage formats a page record with YAML frontmatter.
func FormatPage(rec *docingest.PageRecord) string {
	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("source: ")
	b.WriteString(rec.URL)
	b.WriteString("\ntitle: ")
	b.WriteString(rec.Title)
	if rec.Description != "" {
		b.WriteString("\ndescription: ")
		b.WriteString(rec.Description)
	}
	b.WriteString("\ncrawled: ")
	b.WriteString(rec.FetchedAt.Format("2006-01-02"))
	b.WriteString("\nhash: ")
	b.WriteString(rec.RawContentHash)
	if rec.ScreenshotFile != "" {
		b.WriteString("\nscreenshot: ")
		b.WriteString(rec.ScreenshotFile)
	}
	b.WriteString("\n---\n\n")
	b.WriteString(rec.Markdown)
	return b.String()
}

// Ensure MarkdownWriter implements docingest.RecordWriter at compile time.
var _ docingest.RecordWriter = (*MarkdownWriter)(nil)

// MarkdownWriter mirrors page records as markdown files with frontmatter,
// laid out by URL path. Media and error records are ignored.
type MarkdownWriter struct {
	baseDir string
}

// NewMarkdownWriter creates a MarkdownWriter that writes under baseDir.
func NewMarkdownWriter(baseDir string) *MarkdownWriter {
	return &MarkdownWriter{baseDir: baseDir}
}

// WritePage writes the page to disk as a markdown file.
func (w *MarkdownWriter) WritePage(ctx context.Context, rec *docingest.PageRecord) error {
	relPath, err := URLToPath(rec.URL)
	if err != nil {
		return err
	}

	fullPath := filepath.Join(w.baseDir, relPath)
	rel, err := filepath.Rel(w.baseDir, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return docingest.Errorf(docingest.EINVALID, "path traversal in %q", rec.URL)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return os.WriteFile(fullPath, []byte(FormatPage(rec)), 0644)
}

func (w *MarkdownWriter) WriteImage(context.Context, *docingest.ImageRecord) error { return nil }

func (w *MarkdownWriter) WriteVideoLink(context.Context, *docingest.VideoLinkRecord) error {
	return nil
}

func (w *MarkdownWriter) WriteError(context.Context, *docingest.ErrorRecord) error { return nil }

func (w *MarkdownWriter) Close() error { return nil }
