package bloom_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/fwojciec/docingest/bloom"
	"github.com/stretchr/testify/assert"
)

func TestCounter_Observe(t *testing.T) {
	t.Parallel()

	c := bloom.NewCounter(1000, 0.01)

	assert.True(t, c.Observe("https://docs.example.org/img/flow.png"))
	assert.False(t, c.Observe("https://docs.example.org/img/flow.png"))
	assert.True(t, c.Observe("https://www.youtube.com/embed/abc"))
	assert.True(t, c.Seen("https://www.youtube.com/embed/abc"))
	assert.False(t, c.Seen("https://docs.example.org/img/other.png"))
	assert.Equal(t, 2, c.Count())
}

func TestCounter_Count_undercountsWithinRate(t *testing.T) {
	t.Parallel()

	const n = 5000
	c := bloom.NewCounter(n, 0.01)
	for i := 0; i < n; i++ {
		c.Observe(fmt.Sprintf("https://cdn.example.org/media/%d.png", i))
		c.Observe(fmt.Sprintf("https://cdn.example.org/media/%d.png", i))
	}

	assert.LessOrEqual(t, c.Count(), n)
	assert.InDelta(t, n, c.Count(), n*0.02)
}

func TestCounter_concurrentObservers(t *testing.T) {
	t.Parallel()

	c := bloom.NewCounter(1000, 0.001)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.Observe(fmt.Sprintf("https://docs.example.org/img/%d.png", i))
			}
		}()
	}
	wg.Wait()

	assert.InDelta(t, 100, c.Count(), 1)
}
