package docingest

import "context"

// FetchRequest describes a single page fetch.
type FetchRequest struct {
	URL string

	// Session carries authentication state injected into the request.
	// Nil means the fetch is anonymous.
	Session *SessionState

	// UserAgent overrides the client identity when non-empty.
	UserAgent string

	// Screenshot asks for a full-page PNG capture. Fetchers that do not
	// render pages ignore it.
	Screenshot bool
}

// FetchResponse holds the outcome of a fetch that reached the server.
// Non-2xx responses are returned as responses, not errors.
type FetchResponse struct {
	// URL is the final URL after redirects.
	URL         string
	StatusCode  int
	ContentType string
	Body        string

	// Screenshot holds the PNG capture when one was requested and taken.
	Screenshot []byte
}

// OK reports whether the response has a 2xx status.
func (r *FetchResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Fetcher retrieves pages over the network.
// Implementations may use browser automation to handle JavaScript-rendered content.
type Fetcher interface {
	// Fetch retrieves the page described by req.
	// Errors are reserved for transport failures (DNS, connection, timeout);
	// any response from the server is returned as a FetchResponse.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResponse, error)

	// Close releases underlying resources.
	// Must be called when the Fetcher is no longer needed.
	Close() error
}
