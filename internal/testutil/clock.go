// Package testutil holds small helpers shared by tests across packages.
package testutil

import (
	"sync"
	"time"
)

// FrozenClock is a thread-safe manually-advanced clock for tests. It
// satisfies the Clock interfaces declared by the syncstore and loader
// packages.
//
// Unlike the system clock it never moves on its own: every call to Now
// returns the same instant until Advance is called. This lets a test model
// "pull 1 at t0, pull 2 at t1" with distinct, predictable timestamps.
type FrozenClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFrozenClock creates a clock frozen at the given instant.
func NewFrozenClock(at time.Time) *FrozenClock {
	return &FrozenClock{now: at}
}

// Now returns the frozen instant.
func (c *FrozenClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new instant.
func (c *FrozenClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set moves the clock to an absolute instant.
func (c *FrozenClock) Set(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = at
}
