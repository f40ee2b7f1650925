package engine

import "sync/atomic"

// Clock hands out ledger sequence numbers.
//
// Each call to Next returns a value strictly greater than every earlier one.
// An engine opened on an existing store starts its clock at the ledger's
// last seq, so numbering continues across restarts.
//
// Thread-safety: Clock is safe for concurrent use, though only the engine's
// writer calls Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock positioned at start.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last seq handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Observe moves the clock forward to seq if it is behind.
// Replay uses this to keep recorded seqs.
func (c *Clock) Observe(seq int64) {
	for {
		cur := c.seq.Load()
		if seq <= cur || c.seq.CompareAndSwap(cur, seq) {
			return
		}
	}
}
