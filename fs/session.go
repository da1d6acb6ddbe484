package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/fwojciec/docingest"
)

// Ensure SessionFile implements docingest.SessionSource at compile time.
var _ docingest.SessionSource = (*SessionFile)(nil)

// SessionFile loads a session from a JSON file. Two formats are accepted:
// a bare array of cookies, or a browser storage-state document with a
// "cookies" array (and usually "origins" holding local storage).
type SessionFile struct {
	Path string
}

// NewSessionFile returns a SessionFile reading path.
func NewSessionFile(path string) *SessionFile {
	return &SessionFile{Path: path}
}

// Load reads and parses the session file.
func (f *SessionFile) Load(ctx context.Context) (*docingest.SessionState, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, docingest.Errorf(docingest.ENOTFOUND, "session file %q not found", f.Path)
	} else if err != nil {
		return nil, err
	}
	return ParseSession(data)
}

// ParseSession decodes a cookies array or a storage-state document.
func ParseSession(data []byte) (*docingest.SessionState, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, docingest.Errorf(docingest.EINVALID, "session file is empty")
	}

	switch data[0] {
	case '[':
		var cookies []docingest.Cookie
		if err := json.Unmarshal(data, &cookies); err != nil {
			return nil, docingest.Errorf(docingest.EINVALID, "invalid cookies array: %v", err)
		}
		return docingest.NewSessionState(cookies, nil)
	case '{':
		var doc struct {
			Cookies *[]docingest.Cookie `json:"cookies"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, docingest.Errorf(docingest.EINVALID, "invalid storage state: %v", err)
		}
		if doc.Cookies == nil {
			return nil, docingest.Errorf(docingest.EINVALID, "storage state has no cookies list")
		}
		return docingest.NewSessionState(*doc.Cookies, json.RawMessage(data))
	default:
		return nil, docingest.Errorf(docingest.EINVALID, "session file must hold a JSON array or object")
	}
}
