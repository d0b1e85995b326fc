package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func TestCooldown_Allow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCooldown(1500 * time.Millisecond).WithClock(clock.Now)

	assert.True(t, c.Allow(1))
	assert.True(t, c.Allow(2), "users are independent")

	clock.Advance(400 * time.Millisecond)
	assert.False(t, c.Allow(1))

	clock.Advance(1100 * time.Millisecond)
	assert.True(t, c.Allow(1), "exactly one interval after the last accepted send")
}

// TestCooldown_RejectionDoesNotExtend checks rejected attempts never push the window.
func TestCooldown_RejectionDoesNotExtend(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCooldown(time.Second).WithClock(clock.Now)

	assert.True(t, c.Allow(7))
	for i := 0; i < 5; i++ {
		clock.Advance(150 * time.Millisecond)
		assert.False(t, c.Allow(7))
	}
	assert.Equal(t, 250*time.Millisecond, c.Retry(7))

	clock.Advance(250 * time.Millisecond)
	assert.True(t, c.Allow(7))
}

func TestCooldown_ForgetAndPrune(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCooldown(time.Second).WithClock(clock.Now)

	c.Allow(1)
	c.Allow(2)
	c.Forget(1)
	assert.True(t, c.Allow(1))
	assert.Equal(t, time.Duration(0), c.Retry(3))

	clock.Advance(2 * time.Second)
	assert.Equal(t, 2, c.Prune())
}

func TestCooldown_ConcurrentSingleAccept(t *testing.T) {
	c := NewCooldown(time.Hour)

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Allow(99) {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())
}
