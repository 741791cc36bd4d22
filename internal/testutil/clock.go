package testutil

import (
	"sync"
	"time"
)

// Epoch is the instant SteppingClock starts from.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// SteppingClock is a deterministic wall clock for tests. Each call to Now
// returns Epoch plus one more step, so runs started from the same clock
// record identical StartedAt times and derive identical clock seeds.
//
// Pass clock.Now to engine.WithNow.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SteppingClock struct {
	mu    sync.Mutex
	step  time.Duration
	calls int64
}

// NewSteppingClock creates a clock advancing by step per call. A zero step
// freezes the clock at Epoch.
func NewSteppingClock(step time.Duration) *SteppingClock {
	return &SteppingClock{step: step}
}

// Now returns the next instant.
func (c *SteppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Epoch.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return t
}

// Calls returns how many times Now has been called.
func (c *SteppingClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Reset rewinds the clock to Epoch.
func (c *SteppingClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}
