// Package sim drives the single-threaded, time-stepped execution of a
// simulation: a manually advanced simulation clock, a tick runner invoking
// registered callbacks in order, and simple mobility models for the
// endpoints. All callbacks run on the caller's goroutine; calls into the
// channel core are therefore naturally ordered by simulated time.
package sim

import "time"

// Clock exposes the current simulation time as an offset from the start.
type Clock interface {
	Now() time.Duration
}

// ManualClock is a Clock advanced explicitly by the runner (or by tests).
type ManualClock struct {
	now time.Duration
}

// NewManualClock starts a clock at zero simulation time.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// Now returns the current simulation time.
func (c *ManualClock) Now() time.Duration {
	return c.now
}

// Set moves the clock to an absolute simulation time.
func (c *ManualClock) Set(t time.Duration) {
	c.now = t
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.now += d
}
