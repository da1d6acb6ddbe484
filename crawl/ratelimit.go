package crawl

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle enforces a minimum gap between the end of one fetch and the
// start of the next fetch of the same worker. Each worker owns its own
// Throttle; it is not shared.
type Throttle struct {
	limit   rate.Limit
	limiter *rate.Limiter
}

// NewThrottle creates a Throttle with the first fetch immediate.
// A zero delay never waits.
func NewThrottle(delay time.Duration) *Throttle {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Throttle{limit: limit, limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next fetch may start.
// Returns an error if the context is canceled before the wait completes.
func (t *Throttle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// Done marks the end of a fetch at now. The next Wait blocks for the
// full delay from this point, however long the fetch took.
func (t *Throttle) Done(now time.Time) {
	if t.limit == rate.Inf {
		return
	}
	t.limiter = rate.NewLimiter(t.limit, 1)
	t.limiter.AllowN(now, 1)
}
