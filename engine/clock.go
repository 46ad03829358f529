package engine

import (
	"sync"
	"time"
)

// =============================================================================
// CLOCK - Explicit time source
// =============================================================================
// Every window and deadline decision in the engine takes an explicit
// time input; the Clock is only consulted at the operation boundary
// (service layer, scheduler), never inside entity constructors. This
// keeps deadline logic deterministic under test.

type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock is a controllable clock for tests.
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// MonthsElapsed returns the number of whole calendar months between from
// and to (0 if to precedes from). A month counts as elapsed once
// from.AddDate(0, n, 0) is no longer after to.
func MonthsElapsed(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if months > 0 && from.AddDate(0, months, 0).After(to) {
		months--
	}
	return months
}
