package stampede

import "sync/atomic"

// Generation is a frame stamp issued by a Tracker. The zero value is the
// sentinel carried by records that have never been dispatched; Advance never
// returns it within any plausible run length (wraparound at 2^64 frames is
// the integrator's sizing concern, not checked here).
type Generation uint64

// Tracker is the per-kind frame counter.
//
// Advance is called exactly once per frame by the batch driver, before any
// bucket of that kind is swept. Dispatch calls never touch the tracker; they
// see the frame stamp only through the driver.
//
// Thread-safety: the counter is atomic so observers may read Current from
// any goroutine, and RunFrameSharded's shard goroutines may load it freely.
// The once-per-frame Advance discipline remains the driver's obligation.
type Tracker struct {
	gen atomic.Uint64
}

// NewTracker creates a tracker starting at 0. The first Advance returns 1,
// so a fresh record's zero stamp is stale from the very first frame.
func NewTracker() *Tracker {
	return &Tracker{}
}

// NewTrackerAt creates a tracker starting at the given stamp.
// The next Advance returns start+1. Used by replay and by tests that pin
// frame numbers.
func NewTrackerAt(start Generation) *Tracker {
	t := &Tracker{}
	t.gen.Store(uint64(start))
	return t
}

// Advance increments the counter and returns the new frame stamp.
func (t *Tracker) Advance() Generation {
	return Generation(t.gen.Add(1))
}

// Current returns the most recently issued frame stamp without advancing.
// Returns 0 if Advance has never been called.
func (t *Tracker) Current() Generation {
	return Generation(t.gen.Load())
}
