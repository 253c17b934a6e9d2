package stampede

import "strconv"

// StateID tags a resumable point in an entity kind's dispatch body.
//
// Kinds enumerate their states as positive constants. Two identifiers are
// reserved: StateUninitialized (the zero value, so a zero Record is born
// uninitialized) and StateDefault (keys the optional fallback segment).
type StateID int32

const (
	// StateUninitialized is the state of a record that has never been given
	// an explicit start state. It never keys a segment; dispatch routes it
	// through the default segment when one is declared.
	StateUninitialized StateID = 0

	// StateDefault keys the fallback segment. Any state identifier with no
	// declared segment of its own routes here.
	StateDefault StateID = -1
)

// Op is the flow directive a segment step returns: either yield to a new
// state or fall through into the next declared segment.
type Op struct {
	kind opKind
	next StateID
}

type opKind uint8

const (
	opFallThrough opKind = iota
	opGoto
)

// Goto sets the record's state to next and ends the dispatch call.
// The record resumes at next on a later frame, never within this one.
func Goto(next StateID) Op {
	return Op{kind: opGoto, next: next}
}

// FallThrough continues execution in the textually next declared segment
// within the same dispatch call. Falling through past the last declared
// segment ends the call with the state unchanged.
func FallThrough() Op {
	return Op{}
}

// StepFunc is the body of one segment. It receives only the payload:
// transitions are expressed through the returned Op, and the generation
// stamp is owned by the driver. Any value that must survive to the next
// frame belongs on P, never in a local variable.
type StepFunc[P any] func(p *P) Op

// Segment associates a StateID with its step. Name appears in logs and
// traces in place of the numeric identifier.
type Segment[P any] struct {
	State StateID
	Name  string
	Step  StepFunc[P]
}

// Machine is one entity kind's resumable dispatch body: its segments in
// declared order plus an index from StateID to position.
//
// INVARIANTS:
//   - segments order NEVER changes after construction; fallthrough walks it
//   - each StateID keys at most one segment
//   - StateUninitialized never keys a segment
//
// Thread-safety: a Machine is immutable after construction and safe to share
// across goroutines. Dispatch mutates only the record it is given.
type Machine[P any] struct {
	segments   []Segment[P]
	index      map[StateID]int
	defaultIdx int // position of the StateDefault segment, -1 when absent
}

// NewMachine builds a Machine from segments in declared order. The order is
// load-bearing: it is the fallthrough order, fixed for the life of the
// machine. The slice is copied to prevent external mutation.
//
// Construction fails with a MachineError when segments is empty, a step is
// nil, a StateID appears twice, or a segment is keyed by StateUninitialized.
func NewMachine[P any](segments ...Segment[P]) (*Machine[P], error) {
	if len(segments) == 0 {
		return nil, &MachineError{
			Code:    ErrCodeNoSegments,
			Message: "a machine needs at least one segment",
		}
	}

	segs := make([]Segment[P], len(segments))
	copy(segs, segments)

	index := make(map[StateID]int, len(segs))
	defaultIdx := -1
	for i, seg := range segs {
		if seg.Step == nil {
			return nil, &MachineError{
				Code:    ErrCodeNilStep,
				State:   seg.State,
				Message: "segment step must not be nil",
			}
		}
		if seg.State == StateUninitialized {
			return nil, &MachineError{
				Code:    ErrCodeReservedState,
				State:   seg.State,
				Message: "StateUninitialized cannot key a segment",
			}
		}
		if _, dup := index[seg.State]; dup {
			return nil, &MachineError{
				Code:    ErrCodeDuplicateState,
				State:   seg.State,
				Message: "state already keys an earlier segment",
			}
		}
		index[seg.State] = i
		if seg.State == StateDefault {
			defaultIdx = i
		}
	}

	return &Machine[P]{segments: segs, index: index, defaultIdx: defaultIdx}, nil
}

// MustMachine is like NewMachine but panics on error.
// Use for package-level machine construction where segments are known valid.
func MustMachine[P any](segments ...Segment[P]) *Machine[P] {
	m, err := NewMachine(segments...)
	if err != nil {
		panic(err)
	}
	return m
}

// Dispatch resumes r at the segment keyed by its current state and runs the
// chain to completion: each step either yields via Goto (state updated, call
// ends) or falls through into the next declared segment. Returns the number
// of steps executed, which is 0 only when r's state has no segment and no
// default segment is declared.
//
// Precondition (enforced by the driver, not here): r has not already been
// dispatched this frame. Dispatch does not touch r.Gen.
//
// A state with no segment of its own routes to the default segment when one
// is declared, silently. That is policy, not a fault.
func (m *Machine[P]) Dispatch(r *Record[P]) int {
	i, ok := m.index[r.State]
	if !ok {
		if m.defaultIdx < 0 {
			return 0
		}
		i = m.defaultIdx
	}

	steps := 0
	for {
		op := m.segments[i].Step(&r.Data)
		steps++

		if op.kind == opGoto {
			r.State = op.next
			return steps
		}

		// Fallthrough: continue into the next declared segment, same call.
		i++
		if i == len(m.segments) {
			return steps
		}
	}
}

// HasSegment reports whether id keys a declared segment.
func (m *Machine[P]) HasSegment(id StateID) bool {
	_, ok := m.index[id]
	return ok
}

// Len returns the number of declared segments.
func (m *Machine[P]) Len() int {
	return len(m.segments)
}

// States returns the declared StateIDs in fallthrough order.
func (m *Machine[P]) States() []StateID {
	ids := make([]StateID, len(m.segments))
	for i, seg := range m.segments {
		ids[i] = seg.State
	}
	return ids
}

// StateName returns the declared name for id, falling back to the reserved
// names and finally the numeric form. Used by logs and traces.
func (m *Machine[P]) StateName(id StateID) string {
	if i, ok := m.index[id]; ok && m.segments[i].Name != "" {
		return m.segments[i].Name
	}
	switch id {
	case StateUninitialized:
		return "uninitialized"
	case StateDefault:
		return "default"
	}
	return strconv.FormatInt(int64(id), 10)
}
