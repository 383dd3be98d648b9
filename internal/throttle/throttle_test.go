package throttle

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestThrottle(t *testing.T) {
	t.Parallel()

	t.Run("second request within interval is rejected", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		th := New(2*time.Second, WithClock(clock.Now))

		assert.True(t, th.Allow("1.2.3.4"))
		clock.Advance(500 * time.Millisecond)
		assert.False(t, th.Allow("1.2.3.4"))
		clock.Advance(time.Second)
		assert.False(t, th.Allow("1.2.3.4"))
	})

	t.Run("requests spaced beyond the interval are accepted", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		th := New(2*time.Second, WithClock(clock.Now))

		assert.True(t, th.Allow("1.2.3.4"))
		clock.Advance(2*time.Second + time.Millisecond)
		assert.True(t, th.Allow("1.2.3.4"))
		clock.Advance(2*time.Second + time.Millisecond)
		assert.True(t, th.Allow("1.2.3.4"))
	})

	t.Run("rejections do not extend the wait", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		th := New(2*time.Second, WithClock(clock.Now))

		require.True(t, th.Allow("a"))
		for i := 0; i < 5; i++ {
			clock.Advance(300 * time.Millisecond)
			assert.False(t, th.Allow("a"))
		}
		// 1.5s elapsed since the accepted request
		clock.Advance(600 * time.Millisecond)
		assert.True(t, th.Allow("a"), "interval counts from the last accepted request")
	})

	t.Run("identities are independent", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		th := New(2*time.Second, WithClock(clock.Now))

		assert.True(t, th.Allow("a"))
		assert.True(t, th.Allow("b"))
		assert.False(t, th.Allow("a"))
	})

	t.Run("empty identity shares the unknown bucket", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		th := New(2*time.Second, WithClock(clock.Now))

		assert.True(t, th.Allow(""))
		assert.False(t, th.Allow(UnknownClient))
		assert.Equal(t, 1, th.Len())
	})

	t.Run("zero interval disables throttling", func(t *testing.T) {
		t.Parallel()
		th := New(0)
		for i := 0; i < 10; i++ {
			assert.True(t, th.Allow("a"))
		}
		assert.Zero(t, th.Len())
	})

	t.Run("concurrent requests from one identity admit exactly one", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		th := New(time.Minute, WithClock(clock.Now))

		var wg sync.WaitGroup
		var accepted atomic.Int32
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if th.Allow("same") {
					accepted.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), accepted.Load())
	})
}

func TestThrottle_Sweep(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	th := New(2*time.Second, WithClock(clock.Now))

	require.True(t, th.Allow("old"))
	clock.Advance(time.Second)
	require.True(t, th.Allow("recent"))

	clock.Advance(time.Second)
	assert.Equal(t, 1, th.Sweep())
	assert.Equal(t, 1, th.Len())

	// a swept identity behaves like a new one
	assert.True(t, th.Allow("old"))
	assert.False(t, th.Allow("recent"))
}

func TestThrottle_Run(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	th := New(time.Second, WithClock(clock.Now))
	require.True(t, th.Allow("a"))
	clock.Advance(2 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	swept := make(chan int, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		th.Run(ctx, 10*time.Millisecond, func(removed int) {
			if removed > 0 {
				select {
				case swept <- removed:
				default:
				}
			}
		})
	}()

	select {
	case removed := <-swept:
		assert.Equal(t, 1, removed)
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not run")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.Zero(t, th.Len())
}
