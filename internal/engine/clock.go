package engine

import "sync/atomic"

// Clock is the monotonic logical clock stamping delivered results and trace
// entries. Logical sequence numbers, never wall-clock time: ordering must be
// deterministic and replayable.
//
// Thread-safety: safe for concurrent use (atomic operations), though the
// single-writer loop is normally the only caller of Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
// Each call returns a unique, strictly increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
