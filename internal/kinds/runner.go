package kinds

import (
	"fmt"

	"github.com/roach88/stampede"
	"github.com/roach88/stampede/internal/trace"
)

// Runner drives one kind's record collection frame by frame.
//
// Implementations are not safe for concurrent use: one goroutine owns a
// Runner, matching the single-writer rule of the underlying driver.
type Runner interface {
	// Kind returns the registered kind name.
	Kind() string

	// States returns the kind's state names in declared segment order.
	States() []string

	// Populate replaces the collection with the kind's default population
	// of n records. Populate is deterministic in n.
	Populate(n int)

	// SpawnAt appends n records in the named state with the kind's zero
	// payload. The name "uninitialized" is always accepted.
	SpawnAt(state string, n int) error

	// Len returns the current record count.
	Len() int

	// RunFrame advances one frame. Returns the sweep report and the
	// frame's dispatches in trace form: state names resolved and seq
	// assigned in sweep order, continuing across frames.
	RunFrame() (stampede.FrameReport, trace.Frame)

	// Snapshot returns every record's externally visible state in
	// collection order.
	Snapshot() []trace.RecordState
}

// runner is the generic Runner implementation each kind instantiates.
// The driver's observer is the runner itself; dispatch events buffer into
// pending during the sweep and drain into the returned trace frame.
type runner[P any] struct {
	kind     string
	machine  *stampede.Machine[P]
	driver   *stampede.Driver[P]
	records  []stampede.Record[P]
	stateIDs map[string]stampede.StateID
	seq      int64
	pending  []trace.Dispatch

	populate func(i int) stampede.Record[P]
	snapshot func(p *P) trace.Object
}

func newRunner[P any](
	kind string,
	machine *stampede.Machine[P],
	buckets []stampede.Bucket,
	populate func(i int) stampede.Record[P],
	snapshot func(p *P) trace.Object,
) *runner[P] {
	r := &runner[P]{
		kind:     kind,
		machine:  machine,
		populate: populate,
		snapshot: snapshot,
	}
	r.driver = stampede.NewDriver(machine,
		stampede.WithBuckets[P](buckets...),
		stampede.WithObserver[P](r.observe),
	)

	ids := machine.States()
	r.stateIDs = make(map[string]stampede.StateID, len(ids)+1)
	for _, id := range ids {
		r.stateIDs[machine.StateName(id)] = id
	}
	if _, declared := r.stateIDs["uninitialized"]; !declared {
		r.stateIDs["uninitialized"] = stampede.StateUninitialized
	}

	return r
}

func (r *runner[P]) observe(ev stampede.DispatchEvent) {
	r.seq++
	r.pending = append(r.pending, trace.Dispatch{
		Seq:    r.seq,
		Frame:  uint64(ev.Frame),
		Bucket: ev.Bucket,
		Index:  int64(ev.Index),
		From:   r.machine.StateName(ev.From),
		To:     r.machine.StateName(ev.To),
		Steps:  int64(ev.Steps),
	})
}

func (r *runner[P]) Kind() string { return r.kind }

func (r *runner[P]) States() []string {
	ids := r.machine.States()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = r.machine.StateName(id)
	}
	return names
}

func (r *runner[P]) Populate(n int) {
	r.records = make([]stampede.Record[P], n)
	for i := range r.records {
		r.records[i] = r.populate(i)
	}
}

func (r *runner[P]) SpawnAt(state string, n int) error {
	id, ok := r.stateIDs[state]
	if !ok {
		return fmt.Errorf("kind %s has no state %q (states: %v)", r.kind, state, r.States())
	}
	var zero P
	for i := 0; i < n; i++ {
		r.records = append(r.records, stampede.NewRecord(id, zero))
	}
	return nil
}

func (r *runner[P]) Len() int { return len(r.records) }

func (r *runner[P]) RunFrame() (stampede.FrameReport, trace.Frame) {
	r.pending = r.pending[:0]
	report := r.driver.RunFrame(r.records)

	frame := trace.Frame{
		Stamp:      uint64(report.Frame),
		Dispatched: int64(report.Dispatched),
		Dispatches: append([]trace.Dispatch(nil), r.pending...),
	}
	return report, frame
}

func (r *runner[P]) Snapshot() []trace.RecordState {
	states := make([]trace.RecordState, len(r.records))
	for i := range r.records {
		rec := &r.records[i]
		states[i] = trace.RecordState{
			Index:   int64(i),
			State:   r.machine.StateName(rec.State),
			Payload: r.snapshot(&rec.Data),
		}
	}
	return states
}
