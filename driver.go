package stampede

import (
	"log/slog"
	"sync"
)

// Filter selects the states a bucket sweeps.
type Filter func(StateID) bool

// In returns a filter matching exactly the given states.
func In(states ...StateID) Filter {
	set := make(map[StateID]struct{}, len(states))
	for _, s := range states {
		set[s] = struct{}{}
	}
	return func(id StateID) bool {
		_, ok := set[id]
		return ok
	}
}

// Is returns a filter matching a single state. Cheaper than In for the
// common one-state bucket: a compare instead of a map probe per record.
func Is(state StateID) Filter {
	return func(id StateID) bool { return id == state }
}

// Any returns the unconditional filter. The driver's own catch-all bucket
// uses it; callers rarely need it directly.
func Any() Filter {
	return func(StateID) bool { return true }
}

// Bucket pairs a state filter with a name for logs and traces.
//
// Bucket order is a caller contract: declare hot, high-population states
// first so the sweep runs long contiguous stretches of records on the same
// code path. Overlapping filters are permitted; the staleness check gives
// the first matching bucket the dispatch and later buckets skip the record.
// Keeping filters disjoint remains the caller's obligation where overlap
// would surprise.
type Bucket struct {
	Name  string
	Match Filter
}

// CatchAllBucket is the name of the unconditional bucket the driver appends
// after all declared buckets. It is always swept last and never skipped, so
// every record reaches exactly one dispatch per frame even when its state
// has no dedicated bucket.
const CatchAllBucket = "catch-all"

// DispatchEvent describes one dispatch observed during a frame sweep.
type DispatchEvent struct {
	Frame  Generation
	Bucket string
	Index  int // position of the record in the swept collection
	From   StateID
	To     StateID
	Steps  int // chained segments executed inside the dispatch call
}

// Observer receives one event per dispatch. During RunFrame events arrive in
// sweep order; during RunFrameSharded they arrive concurrently from shard
// goroutines, so a sharded run's observer must be safe for concurrent use.
type Observer func(DispatchEvent)

// FrameReport summarizes one frame sweep.
type FrameReport struct {
	Frame      Generation
	Dispatched int           // records dispatched this frame
	Unrouted   int           // dispatches that found no segment and no default
	Buckets    []BucketCount // per-bucket tallies in sweep order
}

// BucketCount is the per-bucket dispatch tally of one frame.
type BucketCount struct {
	Name       string
	Dispatched int
}

// Driver owns one kind's frame sweep: the machine, the generation tracker,
// and the ordered bucket list with the catch-all appended at construction.
//
// CRITICAL: RunFrame and RunFrameSharded must not be called concurrently
// with each other or themselves for the same driver. One logical thread
// drives a kind's frames; parallelism lives inside RunFrameSharded only.
type Driver[P any] struct {
	machine  *Machine[P]
	tracker  *Tracker
	buckets  []Bucket
	observer Observer
}

// DriverOption allows configuration of driver parameters.
type DriverOption[P any] func(*Driver[P])

// WithBuckets declares the bucket list, most specific filter first. The
// slice is copied to prevent external mutation from breaking the sweep
// order invariant. The driver appends its own catch-all after these.
func WithBuckets[P any](buckets ...Bucket) DriverOption[P] {
	return func(d *Driver[P]) {
		d.buckets = make([]Bucket, len(buckets))
		copy(d.buckets, buckets)
	}
}

// WithObserver installs a dispatch observer. Used by the trace recorder and
// the scenario harness; nil (the default) keeps the sweep observer-free.
func WithObserver[P any](fn Observer) DriverOption[P] {
	return func(d *Driver[P]) {
		d.observer = fn
	}
}

// WithTracker substitutes a pre-positioned tracker. Used by replay to resume
// from a recorded frame stamp and by tests that pin frame numbers.
func WithTracker[P any](t *Tracker) DriverOption[P] {
	return func(d *Driver[P]) {
		d.tracker = t
	}
}

// NewDriver creates a Driver for machine. Without WithBuckets the frame
// sweep is the catch-all alone, which is complete, just unbucketed.
func NewDriver[P any](machine *Machine[P], opts ...DriverOption[P]) *Driver[P] {
	d := &Driver[P]{
		machine: machine,
		tracker: NewTracker(),
	}

	for _, opt := range opts {
		opt(d)
	}

	d.buckets = append(d.buckets, Bucket{Name: CatchAllBucket, Match: Any()})

	return d
}

// RunFrame advances the tracker once and sweeps records through every bucket
// in declared order, catch-all last. A record is dispatched by the first
// bucket whose filter matches its pre-dispatch state, then marked with the
// frame stamp; the mark makes it non-stale for every later bucket.
//
// Callable once per simulation step by the owning loop. Removing a record
// from the slice before the next call excludes it from the next frame.
func (d *Driver[P]) RunFrame(records []Record[P]) FrameReport {
	stamp := d.tracker.Advance()

	report := d.sweep(records, 0, stamp)

	slog.Debug("frame swept",
		"stamp", uint64(stamp),
		"records", len(records),
		"dispatched", report.Dispatched,
		"unrouted", report.Unrouted,
	)

	return report
}

// RunFrameSharded is RunFrame with the sweep split across disjoint
// contiguous shards of records, each owned by one goroutine. The single
// Advance happens-before any shard starts scanning; after that the shards
// share nothing but the read-only machine and bucket list, so no locking is
// needed on the records themselves.
//
// Bucket semantics within each shard match RunFrame. Shards at most
// len(records); shards < 2 degrades to the plain sweep.
func (d *Driver[P]) RunFrameSharded(records []Record[P], shards int) FrameReport {
	if shards > len(records) {
		shards = len(records)
	}
	if shards < 2 {
		return d.RunFrame(records)
	}

	stamp := d.tracker.Advance()

	reports := make([]FrameReport, shards)
	var wg sync.WaitGroup

	base := len(records) / shards
	rem := len(records) % shards
	lo := 0
	for s := 0; s < shards; s++ {
		hi := lo + base
		if s < rem {
			hi++
		}
		wg.Add(1)
		go func(s, lo, hi int) {
			defer wg.Done()
			reports[s] = d.sweep(records[lo:hi], lo, stamp)
		}(s, lo, hi)
		lo = hi
	}
	wg.Wait()

	merged := FrameReport{
		Frame:   stamp,
		Buckets: make([]BucketCount, len(d.buckets)),
	}
	for i, b := range d.buckets {
		merged.Buckets[i].Name = b.Name
	}
	for _, r := range reports {
		merged.Dispatched += r.Dispatched
		merged.Unrouted += r.Unrouted
		for i := range r.Buckets {
			merged.Buckets[i].Dispatched += r.Buckets[i].Dispatched
		}
	}

	slog.Debug("frame swept",
		"stamp", uint64(stamp),
		"records", len(records),
		"shards", shards,
		"dispatched", merged.Dispatched,
		"unrouted", merged.Unrouted,
	)

	return merged
}

// sweep runs the full bucket sequence over records for one frame. base is
// the offset of records within the whole collection, so observer events
// carry collection indices rather than shard-local ones.
func (d *Driver[P]) sweep(records []Record[P], base int, stamp Generation) FrameReport {
	report := FrameReport{
		Frame:   stamp,
		Buckets: make([]BucketCount, len(d.buckets)),
	}

	for bi, bucket := range d.buckets {
		count := 0
		for i := range records {
			r := &records[i]
			if !bucket.Match(r.State) || !r.Stale(stamp) {
				continue
			}

			from := r.State
			steps := d.machine.Dispatch(r)
			r.Mark(stamp)

			count++
			if steps == 0 {
				report.Unrouted++
			}
			if d.observer != nil {
				d.observer(DispatchEvent{
					Frame:  stamp,
					Bucket: bucket.Name,
					Index:  base + i,
					From:   from,
					To:     r.State,
					Steps:  steps,
				})
			}
		}
		report.Buckets[bi] = BucketCount{Name: bucket.Name, Dispatched: count}
		report.Dispatched += count
	}

	return report
}

// Tracker returns the driver's generation tracker.
// Used by recorders to stamp runs and by tests to inspect frame numbers.
func (d *Driver[P]) Tracker() *Tracker {
	return d.tracker
}

// Machine returns the driver's machine.
// Used for state-name lookups when rendering traces.
func (d *Driver[P]) Machine() *Machine[P] {
	return d.machine
}
