package docingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Cookie is a browser cookie in the storage-state format used by
// browser automation tools. Expires is seconds since the epoch;
// a negative value marks a session cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// SessionState is the authentication context shared read-only by every
// fetch of a run. Build it with NewSessionState.
type SessionState struct {
	cookies []Cookie
	storage json.RawMessage
	jar     *cookiejar.Jar
}

// NewSessionState returns a session holding cookies and, optionally,
// the raw storage-state document they came from.
func NewSessionState(cookies []Cookie, storage json.RawMessage) (*SessionState, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	for _, c := range cookies {
		if c.Name == "" {
			return nil, Errorf(EINVALID, "cookie without name")
		}
		if c.Domain == "" {
			return nil, Errorf(EINVALID, "cookie %q has no domain", c.Name)
		}
		u, hc := c.httpCookie()
		jar.SetCookies(u, []*http.Cookie{hc})
	}

	return &SessionState{
		cookies: append([]Cookie(nil), cookies...),
		storage: append(json.RawMessage(nil), storage...),
		jar:     jar,
	}, nil
}

// Cookies returns a copy of the session cookies.
func (s *SessionState) Cookies() []Cookie {
	if s == nil {
		return nil
	}
	return append([]Cookie(nil), s.cookies...)
}

// Storage returns the raw storage-state document, if the session was
// loaded from one.
func (s *SessionState) Storage() json.RawMessage {
	if s == nil {
		return nil
	}
	return s.storage
}

// HTTPCookies returns the cookies that apply to a request for u,
// honoring domain, path, secure and expiry rules.
func (s *SessionState) HTTPCookies(u *url.URL) []*http.Cookie {
	if s == nil || s.jar == nil {
		return nil
	}
	return s.jar.Cookies(u)
}

// Len returns the number of cookies in the session.
func (s *SessionState) Len() int {
	if s == nil {
		return 0
	}
	return len(s.cookies)
}

func (c Cookie) httpCookie() (*url.URL, *http.Cookie) {
	host := strings.TrimPrefix(c.Domain, ".")
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}
	path := c.Path
	if path == "" {
		path = "/"
	}

	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     path,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
	}
	// A leading dot marks a domain cookie; otherwise the cookie is host-only.
	if strings.HasPrefix(c.Domain, ".") {
		hc.Domain = host
	}
	if c.Expires > 0 {
		hc.Expires = time.Unix(int64(c.Expires), 0)
	}
	switch strings.ToLower(c.SameSite) {
	case "strict":
		hc.SameSite = http.SameSiteStrictMode
	case "lax":
		hc.SameSite = http.SameSiteLaxMode
	case "none":
		hc.SameSite = http.SameSiteNoneMode
	}

	return &url.URL{Scheme: scheme, Host: host, Path: path}, hc
}

// SessionSource loads the session for a run.
type SessionSource interface {
	Load(ctx context.Context) (*SessionState, error)
}
