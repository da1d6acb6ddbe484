package mock

import (
	"context"

	"github.com/fwojciec/docingest"
)

var (
	_ docingest.SessionSource = (*SessionSource)(nil)
	_ docingest.ResumeSource  = (*ResumeSource)(nil)
	_ docingest.URLPolicy     = (*URLPolicy)(nil)
)

// SessionSource is a mock implementation of docingest.SessionSource.
type SessionSource struct {
	LoadFn func(ctx context.Context) (*docingest.SessionState, error)
}

func (s *SessionSource) Load(ctx context.Context) (*docingest.SessionState, error) {
	return s.LoadFn(ctx)
}

// ResumeSource is a mock implementation of docingest.ResumeSource.
type ResumeSource struct {
	LoadResumeStateFn func(ctx context.Context) (*docingest.ResumeState, error)
}

func (s *ResumeSource) LoadResumeState(ctx context.Context) (*docingest.ResumeState, error) {
	return s.LoadResumeStateFn(ctx)
}

// URLPolicy is a mock implementation of docingest.URLPolicy.
type URLPolicy struct {
	AllowedFn func(url string) bool
}

func (p *URLPolicy) Allowed(url string) bool {
	return p.AllowedFn(url)
}
