package motion

import "time"

// Clock supplies the current time in milliseconds.
type Clock interface {
	Now() int64
}

// SystemClock measures wall time since its creation.
type SystemClock struct {
	start time.Time
}

// NewSystemClock returns a clock that reads 0 now.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Now() int64 {
	return time.Since(c.start).Milliseconds()
}

// ManualClock is advanced explicitly. Headless playback and tests use it to
// step time deterministically.
type ManualClock struct {
	T int64
}

func (c *ManualClock) Now() int64 { return c.T }

// Advance moves the clock forward by ms.
func (c *ManualClock) Advance(ms int64) { c.T += ms }

// Set moves the clock to ms.
func (c *ManualClock) Set(ms int64) { c.T = ms }
