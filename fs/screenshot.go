package fs

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/docingest"
)

// ScreenshotsDir is the directory inside the output directory that holds
// page captures.
const ScreenshotsDir = "screenshots"

// maxScreenshotName bounds the path-derived part of a capture file name.
const maxScreenshotName = 120

// Ensure ScreenshotWriter implements docingest.ScreenshotStore at compile time.
var _ docingest.ScreenshotStore = (*ScreenshotWriter)(nil)

// ScreenshotWriter stores page captures as PNG files under
// <outputDir>/screenshots. A later capture of the same page replaces the
// earlier one.
type ScreenshotWriter struct {
	outputDir string
}

// NewScreenshotWriter creates a ScreenshotWriter for outputDir.
func NewScreenshotWriter(outputDir string) *ScreenshotWriter {
	return &ScreenshotWriter{outputDir: outputDir}
}

// SaveScreenshot writes png and returns its slash-separated path relative
// to the output directory.
func (w *ScreenshotWriter) SaveScreenshot(ctx context.Context, pageURL string, png []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(png) == 0 {
		return "", docingest.Errorf(docingest.EINVALID, "empty screenshot for %q", pageURL)
	}
	name, err := ScreenshotName(pageURL)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(w.outputDir, ScreenshotsDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating screenshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".capture-*")
	if err != nil {
		return "", fmt.Errorf("creating screenshot: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(png); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing screenshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("writing screenshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return "", fmt.Errorf("writing screenshot: %w", err)
	}
	return path.Join(ScreenshotsDir, name), nil
}

// ScreenshotName derives a flat file name from a page URL: the path with
// slashes turned into underscores, "main_page" for the site root, and a
// hash of the query when there is one.
// Example: https://example.com/docs/admin/Backup → docs_admin_Backup.png
func ScreenshotName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", docingest.Errorf(docingest.EINVALID, "invalid page URL %q", rawURL)
	}

	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		}
		return '_'
	}, strings.Trim(u.Path, "/"))
	name = strings.Trim(name, ".")
	if name == "" {
		name = "main_page"
	}
	if len(name) > maxScreenshotName {
		name = name[:maxScreenshotName]
	}
	if u.RawQuery != "" {
		name += "_" + strconv.FormatUint(xxhash.Sum64String(u.RawQuery), 16)
	}
	return name + ".png", nil
}
