// Package stampede implements a resumable per-entity state-dispatch core for
// frame-driven simulations.
//
// A simulation advances a flat slice of homogeneous Records one frame at a
// time. Each Record carries a StateID naming the point where its kind's
// dispatch body resumes, a Generation stamp recording the last frame it was
// dispatched in, and a kind-specific payload. Nothing else persists between
// frames: any value a state needs next frame must live on the payload.
//
// ARCHITECTURE:
//
// Resumable Dispatch:
// A Machine holds the kind's Segments in a fixed declared order. Dispatch
// resumes at the segment keyed by the record's current state. A step that
// returns Goto(next) sets the state and ends the call (the record resumes at
// next on a later frame). A step that returns FallThrough continues into the
// textually next declared segment within the same call, so related
// micro-states execute together in one frame. Falling through past the last
// declared segment ends the call with the state unchanged.
//
// Generation Stamps:
// A Tracker holds one monotonic counter per kind, advanced exactly once at
// the start of each frame. A record whose stamp differs from the current
// frame stamp has not been dispatched this frame. This replaces a parallel
// "handled" boolean array with one integer compare and one integer store per
// record.
//
// Batch Sweep:
// A Driver sweeps the record slice once per declared Bucket, most specific
// filter first, then sweeps an unconditional catch-all the driver itself
// appends. The staleness check makes overlapping filters safe: the first
// matching bucket dispatches the record, later buckets skip it. Within a
// bucket, records are visited in collection order.
//
// CRITICAL PATTERNS:
//
// Single advance per frame:
// Driver.RunFrame calls Tracker.Advance exactly once, before any bucket is
// swept. Dispatch never reads or writes the tracker.
//
// Single writer per record:
// A record's state and payload are mutated only by its dispatch call, and at
// most one dispatch call occurs per record per frame. RunFrameSharded keeps
// this property by giving each shard a disjoint sub-slice.
//
// No hidden carry-over:
// Running a frame twice from the same (state, payload) pairs produces the
// same transitions. Steps receive only the payload; transitions are
// expressed in the returned Op, never by touching the record directly.
package stampede
