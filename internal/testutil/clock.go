// Package testutil holds deterministic stand-ins for the clock and run ID
// sources so that ledgers written in tests are reproducible.
package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant a DeterministicClock reports after Reset.
var Epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// DeterministicClock is a wall clock that advances by a fixed step on every
// call to Now. It plugs into store.WithClock.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	ticks int64
}

// NewDeterministicClock creates a clock starting at start. A zero step
// defaults to one second.
//
// The first call to Now() returns start+step.
func NewDeterministicClock(start time.Time, step time.Duration) *DeterministicClock {
	if step == 0 {
		step = time.Second
	}
	return &DeterministicClock{start: start, step: step}
}

// Now advances the clock and returns the new time.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return c.start.Add(time.Duration(c.ticks) * c.step)
}

// Ticks returns how many times Now has been called since the last Reset.
func (c *DeterministicClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Reset rewinds the clock so the next Now() returns start+step again.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
