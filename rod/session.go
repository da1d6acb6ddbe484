package rod

import (
	"encoding/json"
	"strings"

	"github.com/fwojciec/docingest"
	"github.com/go-rod/rod/lib/proto"
)

// CookieParams converts session cookies into CDP cookie parameters.
// Host-only cookies are bound by URL so Chrome does not widen them to
// subdomains.
func CookieParams(cookies []docingest.Cookie) []*proto.NetworkCookieParam {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		path := c.Path
		if path == "" {
			path = "/"
		}
		p := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Path:     path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if strings.HasPrefix(c.Domain, ".") {
			p.Domain = c.Domain
		} else {
			scheme := "http"
			if c.Secure {
				scheme = "https"
			}
			p.URL = scheme + "://" + c.Domain + path
		}
		if c.Expires > 0 {
			p.Expires = proto.TimeSinceEpoch(c.Expires)
		}
		switch strings.ToLower(c.SameSite) {
		case "strict":
			p.SameSite = proto.NetworkCookieSameSiteStrict
		case "lax":
			p.SameSite = proto.NetworkCookieSameSiteLax
		case "none":
			p.SameSite = proto.NetworkCookieSameSiteNone
		}
		params = append(params, p)
	}
	return params
}

type storageState struct {
	Origins []struct {
		Origin       string `json:"origin"`
		LocalStorage []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"localStorage"`
	} `json:"origins"`
}

// StorageScript returns a script that seeds localStorage for the
// origins recorded in a storage-state document. It runs before any page
// script and only touches the origin being loaded. Returns an empty
// string when there is nothing to seed.
func StorageScript(storage json.RawMessage) (string, error) {
	if len(storage) == 0 {
		return "", nil
	}
	var state storageState
	if err := json.Unmarshal(storage, &state); err != nil {
		return "", docingest.Errorf(docingest.EINVALID, "invalid storage state: %v", err)
	}

	entries := make(map[string][][2]string)
	for _, o := range state.Origins {
		for _, kv := range o.LocalStorage {
			entries[o.Origin] = append(entries[o.Origin], [2]string{kv.Name, kv.Value})
		}
	}
	if len(entries) == 0 {
		return "", nil
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return `(() => {
  const items = (` + string(data) + `)[location.origin];
  if (!items) return;
  for (const [k, v] of items) {
    try { localStorage.setItem(k, v); } catch (e) {}
  }
})()`, nil
}
