package rod_test

import (
	"encoding/json"
	"testing"

	"github.com/fwojciec/docingest"
	"github.com/fwojciec/docingest/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieParams(t *testing.T) {
	t.Parallel()

	t.Run("binds host-only cookies by URL", func(t *testing.T) {
		t.Parallel()

		params := rod.CookieParams([]docingest.Cookie{
			{Name: "sid", Value: "abc", Domain: "docs.example.org", Secure: true, SameSite: "Lax", Expires: -1},
		})

		require.Len(t, params, 1)
		assert.Equal(t, "https://docs.example.org/", params[0].URL)
		assert.Empty(t, params[0].Domain)
		assert.Equal(t, "/", params[0].Path)
		assert.Equal(t, proto.NetworkCookieSameSiteLax, params[0].SameSite)
		assert.Zero(t, params[0].Expires)
	})

	t.Run("keeps domain cookies", func(t *testing.T) {
		t.Parallel()

		params := rod.CookieParams([]docingest.Cookie{
			{Name: "cf_clearance", Value: "x", Domain: ".example.org", Path: "/docs", HTTPOnly: true, Expires: 1767225600},
		})

		require.Len(t, params, 1)
		assert.Equal(t, ".example.org", params[0].Domain)
		assert.Empty(t, params[0].URL)
		assert.Equal(t, "/docs", params[0].Path)
		assert.True(t, params[0].HTTPOnly)
		assert.Equal(t, proto.TimeSinceEpoch(1767225600), params[0].Expires)
	})

	t.Run("returns empty for no cookies", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, rod.CookieParams(nil))
	})
}

func TestStorageScript(t *testing.T) {
	t.Parallel()

	t.Run("seeds local storage per origin", func(t *testing.T) {
		t.Parallel()

		storage := json.RawMessage(`{"cookies":[],"origins":[{"origin":"https://docs.example.org","localStorage":[{"name":"theme","value":"dark"}]}]}`)

		script, err := rod.StorageScript(storage)

		require.NoError(t, err)
		assert.Contains(t, script, `{"https://docs.example.org":[["theme","dark"]]}`)
		assert.Contains(t, script, "location.origin")
	})

	t.Run("returns empty without local storage", func(t *testing.T) {
		t.Parallel()

		script, err := rod.StorageScript(json.RawMessage(`{"cookies":[],"origins":[]}`))

		require.NoError(t, err)
		assert.Empty(t, script)

		script, err = rod.StorageScript(nil)
		require.NoError(t, err)
		assert.Empty(t, script)
	})

	t.Run("rejects malformed storage", func(t *testing.T) {
		t.Parallel()

		_, err := rod.StorageScript(json.RawMessage(`{"origins":`))

		require.Error(t, err)
		assert.Equal(t, docingest.EINVALID, docingest.ErrorCode(err))
	})
}
