// Package bloom counts distinct URLs in bounded memory. The crawler uses
// it for the "unique media" figure of a run summary, which may reference
// far more media URLs than it is worth keeping in a set.
package bloom

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Counter counts distinct strings with a Bloom filter. A false positive
// makes a new string look seen, so Count may undercount by roughly the
// configured rate but never overcounts. Counter is safe for concurrent use.
type Counter struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
	n      int
}

// NewCounter sizes a Counter for about capacity distinct strings at the
// given false positive rate.
func NewCounter(capacity uint, fpRate float64) *Counter {
	return &Counter{filter: bloom.NewWithEstimates(capacity, fpRate)}
}

// Observe records s and reports whether it was new.
func (c *Counter) Observe(s string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.filter.TestAndAddString(s) {
		return false
	}
	c.n++
	return true
}

// Seen reports whether s was probably observed before.
func (c *Counter) Seen(s string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter.TestString(s)
}

// Count returns the number of distinct strings observed.
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
