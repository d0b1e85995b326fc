package ratelimit

import (
	"sync"
	"time"
)

// Cooldown enforces a minimum gap between accepted messages per user.
// State lives in process memory and is lost on restart.
type Cooldown struct {
	mu       sync.Mutex
	last     map[int64]time.Time
	interval time.Duration
	now      func() time.Time
}

// NewCooldown creates a limiter with the given minimum interval.
func NewCooldown(interval time.Duration) *Cooldown {
	return &Cooldown{
		last:     make(map[int64]time.Time),
		interval: interval,
		now:      time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (c *Cooldown) WithClock(now func() time.Time) *Cooldown {
	c.now = now
	return c
}

// Allow reports whether the user may send now and, if so, records the send.
// A rejected call leaves the recorded time untouched.
func (c *Cooldown) Allow(userID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if last, ok := c.last[userID]; ok && now.Sub(last) < c.interval {
		return false
	}
	c.last[userID] = now
	return true
}

// Retry returns how long the user still has to wait. Zero means allowed.
func (c *Cooldown) Retry(userID int64) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.last[userID]
	if !ok {
		return 0
	}
	if wait := c.interval - c.now().Sub(last); wait > 0 {
		return wait
	}
	return 0
}

// Forget drops the user's state.
func (c *Cooldown) Forget(userID int64) {
	c.mu.Lock()
	delete(c.last, userID)
	c.mu.Unlock()
}

// Prune removes entries older than the interval and returns how many were dropped.
func (c *Cooldown) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for id, last := range c.last {
		if now.Sub(last) >= c.interval {
			delete(c.last, id)
			n++
		}
	}
	return n
}
