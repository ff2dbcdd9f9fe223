package editor

import "sync/atomic"

// Clock is a monotonic logical clock. The editor stamps every dispatched
// transaction with Next(); the bibliography coordinator uses its own Clock
// to number regeneration requests.
//
// Never use wall-clock time for ordering: two edits inside the same
// millisecond must still be strictly ordered.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at start.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the clock value without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
