package crawl_test

import (
	"context"
	"testing"
	"time"

	"github.com/fwojciec/docingest/crawl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottle(t *testing.T) {
	t.Parallel()

	t.Run("allows immediate first fetch", func(t *testing.T) {
		t.Parallel()

		throttle := crawl.NewThrottle(time.Second)

		start := time.Now()
		err := throttle.Wait(context.Background())
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.Less(t, elapsed, 50*time.Millisecond, "first fetch should be immediate")
	})

	t.Run("spaces consecutive fetches by the delay", func(t *testing.T) {
		t.Parallel()

		throttle := crawl.NewThrottle(100 * time.Millisecond)

		require.NoError(t, throttle.Wait(context.Background()))

		start := time.Now()
		err := throttle.Wait(context.Background())
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond, "should wait for the delay")
	})

	t.Run("measures the delay from the end of the previous fetch", func(t *testing.T) {
		t.Parallel()

		throttle := crawl.NewThrottle(100 * time.Millisecond)

		// Given a fetch that takes longer than the delay
		require.NoError(t, throttle.Wait(context.Background()))
		time.Sleep(150 * time.Millisecond)
		throttle.Done(time.Now())

		// When the next fetch asks to start
		start := time.Now()
		err := throttle.Wait(context.Background())

		// Then it still waits the full delay
		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	})

	t.Run("zero delay never waits after a fetch", func(t *testing.T) {
		t.Parallel()

		throttle := crawl.NewThrottle(0)
		require.NoError(t, throttle.Wait(context.Background()))
		throttle.Done(time.Now())

		start := time.Now()
		require.NoError(t, throttle.Wait(context.Background()))

		assert.Less(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("zero delay never waits", func(t *testing.T) {
		t.Parallel()

		throttle := crawl.NewThrottle(0)

		start := time.Now()
		for range 100 {
			require.NoError(t, throttle.Wait(context.Background()))
		}

		assert.Less(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		throttle := crawl.NewThrottle(time.Hour)
		require.NoError(t, throttle.Wait(context.Background()))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := throttle.Wait(ctx)

		assert.Error(t, err)
	})

	t.Run("workers have independent throttles", func(t *testing.T) {
		t.Parallel()

		a := crawl.NewThrottle(time.Hour)
		b := crawl.NewThrottle(time.Hour)
		require.NoError(t, a.Wait(context.Background()))

		start := time.Now()
		err := b.Wait(context.Background())

		require.NoError(t, err)
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	})
}
