// Package timeutil abstracts wall-clock reads so time-sensitive logic
// (command staleness, stream latency) can be tested with a steerable
// clock instead of sleeps.
package timeutil

import (
	"sync"
	"time"
)

// Clock is the minimal clock surface the daemon needs: an instant for
// stamping, and elapsed time for staleness checks.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// RealClock reads the system clock. The zero value is ready to use.
type RealClock struct{}

func (RealClock) Now() time.Time                  { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// MockClock is a Clock that only moves when told to. It keeps a fixed
// base instant plus an accumulated offset, so a test can rebase with
// Set or creep forward with Advance without ever sleeping.
type MockClock struct {
	mu     sync.RWMutex
	base   time.Time
	offset time.Duration
}

// NewMockClock returns a MockClock frozen at t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{base: t}
}

func (c *MockClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base.Add(c.offset)
}

// Set rebases the clock to exactly t.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = t
	c.offset = 0
}

// Advance moves the clock forward by d (or backward, if d is negative).
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}

func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}
