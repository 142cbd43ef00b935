// Package testutil provides shared helpers for tests.
package testutil

import (
	"sync"
	"time"
)

// FixedClock is a thread-safe settable time source for tests.
//
// Production code receives time via a Now() func or a small Clock
// interface; FixedClock satisfies those so tests get stable timestamps in
// persisted records.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock pinned at t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{now: t}
}

// Now returns the pinned time.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set pins the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d and returns the new time.
func (c *FixedClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
