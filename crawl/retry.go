package crawl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/docingest"
)

// AttemptState is the state of a single URL's fetch.
type AttemptState int

// Fetch states. Succeeded and Failed are terminal.
const (
	Pending AttemptState = iota
	Retrying
	Succeeded
	Failed
)

func (s AttemptState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Retrying:
		return "retrying"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("AttemptState(%d)", int(s))
}

// maxHTTPAttempts bounds attempts for non-2xx responses.
const maxHTTPAttempts = 2

// BackoffFunc returns the delay before attempt n+1, given that attempt n failed.
type BackoffFunc func(n int) time.Duration

// ExponentialBackoff doubles base for every failed attempt, capped at max.
func ExponentialBackoff(base, max time.Duration) BackoffFunc {
	return func(n int) time.Duration {
		if n < 1 {
			n = 1
		}
		d := base
		for i := 1; i < n; i++ {
			d *= 2
			if max > 0 && d >= max {
				return max
			}
		}
		if max > 0 && d > max {
			return max
		}
		return d
	}
}

// DefaultBackoff waits 1s, 2s, 4s, ... up to 30s.
var DefaultBackoff = ExponentialBackoff(time.Second, 30*time.Second)

// AttemptFunc performs one fetch attempt.
type AttemptFunc func() (*docingest.FetchResponse, error)

// Transition is reported on every state change.
type Transition struct {
	URL     string
	State   AttemptState
	Attempt int
	Err     error
}

// RetryPolicy drives a fetch through Pending, Retrying(n), and finally
// Succeeded or Failed:
//
//   - transport errors retry up to MaxAttempts with backoff
//   - challenge pages fail at once
//   - non-2xx responses retry once
type RetryPolicy struct {
	MaxAttempts int
	Backoff     BackoffFunc

	// Challenges inspects successful transport results. Optional.
	Challenges docingest.ChallengeDetector

	// OnTransition observes state changes. Optional.
	OnTransition func(Transition)
}

// Do runs attempt until a terminal state and reports how many attempts
// were made. ctx only governs waiting between attempts: when it is done,
// Do returns ctx.Err() and the URL must not be recorded. A terminal
// failure is returned as a *docingest.CrawlError together with the last
// response, if any.
func (p *RetryPolicy) Do(ctx context.Context, rawURL string, attempt AttemptFunc) (*docingest.FetchResponse, int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = docingest.DefaultMaxAttempts
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = DefaultBackoff
	}

	p.transition(Transition{URL: rawURL, State: Pending})

	httpFailures := 0
	for n := 1; ; n++ {
		resp, err := attempt()
		if err == nil && resp == nil {
			err = errors.New("no response")
		}
		var markers []string
		if err == nil {
			markers = p.challenged(resp)
		}

		var failure *docingest.CrawlError
		retryable := false
		switch {
		case err != nil:
			failure = &docingest.CrawlError{Kind: docingest.NetworkTimeout, URL: rawURL, Attempt: n, Err: err}
			retryable = n < maxAttempts
		case len(markers) > 0:
			failure = &docingest.CrawlError{
				Kind:    docingest.ChallengeDetected,
				URL:     rawURL,
				Attempt: n,
				Status:  resp.StatusCode,
				Err:     fmt.Errorf("challenge markers %q", markers),
			}
		case !resp.OK():
			httpFailures++
			failure = &docingest.CrawlError{
				Kind:    docingest.HTTPError,
				URL:     rawURL,
				Attempt: n,
				Status:  resp.StatusCode,
				Err:     fmt.Errorf("unexpected status %d", resp.StatusCode),
			}
			retryable = httpFailures < maxHTTPAttempts && n < maxAttempts
		default:
			p.transition(Transition{URL: rawURL, State: Succeeded, Attempt: n})
			return resp, n, nil
		}

		if !retryable {
			p.transition(Transition{URL: rawURL, State: Failed, Attempt: n, Err: failure})
			return resp, n, failure
		}
		if ctx.Err() != nil {
			return nil, n, ctx.Err()
		}

		p.transition(Transition{URL: rawURL, State: Retrying, Attempt: n + 1, Err: failure})

		timer := time.NewTimer(backoff(n))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, n, ctx.Err()
		case <-timer.C:
		}
	}
}

func (p *RetryPolicy) challenged(resp *docingest.FetchResponse) []string {
	if p.Challenges == nil || resp == nil {
		return nil
	}
	markers := p.Challenges.Detect(resp.Body)
	if len(markers) == 0 {
		return nil
	}
	return markers
}

func (p *RetryPolicy) transition(t Transition) {
	if p.OnTransition != nil {
		p.OnTransition(t)
	}
}
