package engine

import "time"

// Clock is the engine's notion of time: a monotonic simulation offset that
// only moves when the engine ticks, plus a wall clock used for save stamps
// and offline catch-up. Tests inject the wall clock.
type Clock struct {
	elapsed time.Duration
	wall    func() time.Time
}

// NewClock returns a clock at zero using wall for real time. A nil wall uses
// time.Now.
func NewClock(wall func() time.Time) *Clock {
	if wall == nil {
		wall = time.Now
	}
	return &Clock{wall: wall}
}

// Advance moves simulation time forward by delta and returns the new time.
// Negative deltas are ignored.
func (c *Clock) Advance(delta time.Duration) time.Duration {
	if delta > 0 {
		c.elapsed += delta
	}
	return c.elapsed
}

// Now returns the simulation time.
func (c *Clock) Now() time.Duration { return c.elapsed }

// Wall returns the current real time.
func (c *Clock) Wall() time.Time { return c.wall() }
