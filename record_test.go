package docingest_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fwojciec/docingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageRecord_JSON(t *testing.T) {
	t.Parallel()

	rec := &docingest.PageRecord{
		URL:            "https://example.org/docs/Main",
		Title:          "Main",
		Markdown:       "# Main",
		RawContentHash: "abc",
		HTTPStatus:     200,
		FetchedAt:      time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		OutboundLinks:  []string{"https://example.org/docs/A"},
	}

	b, err := json.Marshal(rec)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(b, &fields))
	for _, key := range []string{"url", "title", "markdown", "rawContentHash", "httpStatus", "fetchedAt", "outboundLinks"} {
		assert.Contains(t, fields, key)
	}
	assert.NotContains(t, fields, "description", "empty description is omitted")
}

func TestMediaRecord_JSON_omits_empty_alt_text(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(&docingest.ImageRecord{
		SourcePageURL: "https://example.org/docs/Main",
		MediaURL:      "https://example.org/docs/image.png",
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{"sourcePageUrl":"https://example.org/docs/Main","mediaUrl":"https://example.org/docs/image.png"}`, string(b))
}

func TestErrorRecord_JSON_uses_kind_name(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(&docingest.ErrorRecord{
		URL:       "https://example.org/docs/X",
		ErrorKind: docingest.HTTPError,
		Message:   "status 404",
		Attempt:   2,
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Contains(t, string(b), `"errorKind":"HttpError"`)
	assert.Contains(t, string(b), `"attempt":2`)
}
