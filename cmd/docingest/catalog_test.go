package main_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/docingest"
	main "github.com/fwojciec/docingest/cmd/docingest"
	"github.com/fwojciec/docingest/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedCatalog writes two pages and three errors into a new catalog file.
func seedCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	db := sqlite.NewDB(path)
	require.NoError(t, db.Open())
	defer db.Close()

	ctx := context.Background()
	catalog := sqlite.NewCatalog(db)
	at := time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC)
	require.NoError(t, catalog.WritePage(ctx, &docingest.PageRecord{
		URL: "https://docs.example.org/docs/Main", Title: "Main", Markdown: "# Main\n\nStart here.", HTTPStatus: 200, FetchedAt: at,
	}))
	require.NoError(t, catalog.WritePage(ctx, &docingest.PageRecord{
		URL: "https://docs.example.org/docs/Quiz", Title: "Quiz", Markdown: "# Quiz", HTTPStatus: 200, FetchedAt: at,
	}))
	for _, rec := range []*docingest.ErrorRecord{
		{URL: "https://docs.example.org/docs/Gone", ErrorKind: docingest.HTTPError, Attempt: 2, HTTPStatus: 404, Timestamp: at},
		{URL: "https://docs.example.org/docs/Login", ErrorKind: docingest.ChallengeDetected, Attempt: 1, HTTPStatus: 403, Timestamp: at},
		{URL: "https://docs.example.org/docs/Slow", ErrorKind: docingest.NetworkTimeout, Attempt: 3, Timestamp: at},
	} {
		require.NoError(t, catalog.WriteError(ctx, rec))
	}
	return path
}

func TestErrorsCmd(t *testing.T) {
	t.Parallel()

	t.Run("lists every error with the page count", func(t *testing.T) {
		t.Parallel()

		path := seedCatalog(t)
		var stdout, stderr bytes.Buffer

		err := main.NewMain().Run(context.Background(), []string{"errors", "--catalog", path}, &stdout, &stderr)

		require.NoError(t, err, stderr.String())
		out := stdout.String()
		assert.Contains(t, out, "Catalog: 2 pages, 3 errors listed")
		assert.Contains(t, out, "https://docs.example.org/docs/Gone (HTTP 404)")
		assert.Contains(t, out, "ChallengeDetected")
		assert.Contains(t, out, "https://docs.example.org/docs/Slow\n")
	})

	t.Run("filters by kind", func(t *testing.T) {
		t.Parallel()

		path := seedCatalog(t)
		var stdout, stderr bytes.Buffer

		err := main.NewMain().Run(context.Background(), []string{"errors", "--catalog", path, "--kind", "HttpError"}, &stdout, &stderr)

		require.NoError(t, err, stderr.String())
		assert.Contains(t, stdout.String(), "1 errors listed")
		assert.Contains(t, stdout.String(), "/docs/Gone")
		assert.NotContains(t, stdout.String(), "/docs/Login")
	})

	t.Run("pages through errors", func(t *testing.T) {
		t.Parallel()

		path := seedCatalog(t)
		var stdout, stderr bytes.Buffer

		err := main.NewMain().Run(context.Background(), []string{"errors", "--catalog", path, "--limit", "1", "--offset", "1"}, &stdout, &stderr)

		require.NoError(t, err, stderr.String())
		assert.Contains(t, stdout.String(), "1 errors listed")
		assert.Contains(t, stdout.String(), "/docs/Login")
	})

	t.Run("rejects an unknown kind", func(t *testing.T) {
		t.Parallel()

		path := seedCatalog(t)
		var stdout, stderr bytes.Buffer

		err := main.NewMain().Run(context.Background(), []string{"errors", "--catalog", path, "--kind", "Teapot"}, &stdout, &stderr)

		assert.Equal(t, docingest.EINVALID, docingest.ErrorCode(err))
		assert.Contains(t, stderr.String(), "unknown error kind")
	})

	t.Run("does not create a missing catalog", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "missing.db")
		var stdout, stderr bytes.Buffer

		err := main.NewMain().Run(context.Background(), []string{"errors", "--catalog", path}, &stdout, &stderr)

		assert.Equal(t, docingest.ENOTFOUND, docingest.ErrorCode(err))
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestPageCmd(t *testing.T) {
	t.Parallel()

	t.Run("prints the stored page with front matter", func(t *testing.T) {
		t.Parallel()

		path := seedCatalog(t)
		var stdout, stderr bytes.Buffer

		err := main.NewMain().Run(context.Background(), []string{"page", "https://docs.example.org/docs/Main", "--catalog", path}, &stdout, &stderr)

		require.NoError(t, err, stderr.String())
		assert.Contains(t, stdout.String(), "source: https://docs.example.org/docs/Main\n")
		assert.Contains(t, stdout.String(), "# Main\n\nStart here.")
	})

	t.Run("reports an unknown page", func(t *testing.T) {
		t.Parallel()

		path := seedCatalog(t)
		var stdout, stderr bytes.Buffer

		err := main.NewMain().Run(context.Background(), []string{"page", "https://docs.example.org/docs/Nope", "--catalog", path}, &stdout, &stderr)

		assert.Equal(t, docingest.ENOTFOUND, docingest.ErrorCode(err))
		assert.Contains(t, stderr.String(), "no page recorded for https://docs.example.org/docs/Nope")
	})
}
