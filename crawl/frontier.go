package crawl

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Entry is a unit of crawl work. Entries are consumed exactly once.
type Entry struct {
	URL          string
	Depth        int
	DiscoveredAt time.Time
}

// Frontier is the work queue and visited set of a run. A URL enters the
// visited set when it is enqueued, not when it is fetched, so Enqueue is
// the single deduplication point. It is safe for concurrent use.
type Frontier struct {
	scope    *Scope
	maxDepth int
	now      func() time.Time

	mu       sync.Mutex
	cond     *sync.Cond
	visited  map[string]struct{}
	queue    *list.List
	inFlight int
	closed   bool
}

// FrontierOption configures a Frontier.
type FrontierOption func(*Frontier)

// WithMaxDepth rejects entries deeper than n. Zero means unlimited.
func WithMaxDepth(n int) FrontierOption {
	return func(f *Frontier) {
		f.maxDepth = n
	}
}

// WithClock sets the time source for DiscoveredAt.
func WithClock(now func() time.Time) FrontierOption {
	return func(f *Frontier) {
		f.now = now
	}
}

// NewFrontier creates an empty frontier bounded by scope.
func NewFrontier(scope *Scope, opts ...FrontierOption) *Frontier {
	f := &Frontier{
		scope:   scope,
		now:     time.Now,
		visited: make(map[string]struct{}),
		queue:   list.New(),
	}
	f.cond = sync.NewCond(&f.mu)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Seed enqueues the start URL at depth 0. The start URL bypasses the
// prefix check so a run may begin outside its own scope. It is a no-op
// when the URL was already visited.
func (f *Frontier) Seed(raw string) bool {
	u, ok := f.scope.Normalize(raw)
	if !ok {
		return false
	}
	return f.insert(u, 0, true)
}

// Enqueue normalizes raw and queues it if it is in scope, within depth,
// and not yet visited. It returns true when the URL was queued.
func (f *Frontier) Enqueue(raw string, depth int) bool {
	u, ok := f.scope.Normalize(raw)
	if !ok || !f.scope.Contains(u) {
		return false
	}
	if f.maxDepth > 0 && depth > f.maxDepth {
		return false
	}
	return f.insert(u, depth, true)
}

// Claim marks a URL as visited without queueing it. It returns false if
// the URL was already visited.
func (f *Frontier) Claim(raw string) bool {
	u, ok := f.scope.Normalize(raw)
	if !ok {
		return false
	}
	return f.insert(u, 0, false)
}

func (f *Frontier) insert(u string, depth int, push bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	if _, seen := f.visited[u]; seen {
		return false
	}
	f.visited[u] = struct{}{}
	if push {
		f.queue.PushBack(Entry{URL: u, Depth: depth, DiscoveredAt: f.now()})
		f.cond.Signal()
	}
	return true
}

// Dequeue blocks until an entry is available. It returns false when the
// frontier is closed, when ctx is done, or when the queue is empty and no
// dequeued entry is still in flight. Every successful Dequeue must be
// paired with a call to Done.
func (f *Frontier) Dequeue(ctx context.Context) (Entry, bool) {
	stop := context.AfterFunc(ctx, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.cond.Broadcast()
	})
	defer stop()

	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if f.closed || ctx.Err() != nil {
			return Entry{}, false
		}
		if front := f.queue.Front(); front != nil {
			f.queue.Remove(front)
			f.inFlight++
			entry, _ := front.Value.(Entry)
			return entry, true
		}
		if f.inFlight == 0 {
			// Nothing queued and nobody left to discover more work.
			f.cond.Broadcast()
			return Entry{}, false
		}
		f.cond.Wait()
	}
}

// Done marks a dequeued entry as finished. Links it produced must be
// enqueued before Done is called.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFlight > 0 {
		f.inFlight--
	}
	if f.inFlight == 0 {
		f.cond.Broadcast()
	}
}

// Close stops the frontier. Blocked and future Dequeue calls return false
// and further inserts are rejected.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.cond.Broadcast()
}

// Size returns the number of queued entries.
func (f *Frontier) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue.Len()
}

// VisitedCount returns the size of the visited set.
func (f *Frontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}
