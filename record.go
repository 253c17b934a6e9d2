package stampede

// Record is the persisted per-instance data of one entity: its resume point,
// the stamp of the last frame that dispatched it, and the kind's payload.
//
// The zero Record is valid: state StateUninitialized, stamp 0 (strictly
// stale relative to a fresh tracker's first Advance), zero payload.
//
// Mutation discipline: State and Data are written only by the record's
// dispatch call; Gen is written only by the driver via Mark. No two
// goroutines ever dispatch the same record in the same frame.
type Record[P any] struct {
	State StateID
	Gen   Generation
	Data  P
}

// NewRecord returns a record entering its machine at start. The generation
// stamp starts at the zero sentinel, which no live frame ever equals.
func NewRecord[P any](start StateID, data P) Record[P] {
	return Record[P]{State: start, Data: data}
}

// Stale reports whether r has not yet been dispatched in the frame with the
// given stamp.
func (r *Record[P]) Stale(stamp Generation) bool {
	return r.Gen != stamp
}

// Mark records that r was dispatched in the frame with the given stamp.
// Applied once per record per frame by the driver, regardless of how many
// chained segments executed inside the dispatch call.
func (r *Record[P]) Mark(stamp Generation) {
	r.Gen = stamp
}
