package trace

// Dispatch is one dispatch call as observed during a frame sweep.
//
// Seq is a per-run logical sequence number assigned by the recorder in sweep
// order; Frame is the generation stamp of the sweep. From and To carry state
// names rather than raw identifiers so traces read without the kind's
// constant table at hand.
type Dispatch struct {
	Seq    int64  `json:"seq"`
	Frame  uint64 `json:"frame"`
	Bucket string `json:"bucket"`
	Index  int64  `json:"index"`
	From   string `json:"from"`
	To     string `json:"to"`
	Steps  int64  `json:"steps"`
}

// Object returns the canonical object form of d, the shape that is digested
// and written to golden files.
func (d Dispatch) Object() Object {
	return Object{
		"seq":    Int(d.Seq),
		"frame":  Int(int64(d.Frame)),
		"bucket": String(d.Bucket),
		"index":  Int(d.Index),
		"from":   String(d.From),
		"to":     String(d.To),
		"steps":  Int(d.Steps),
	}
}

// Frame is the recorded outcome of one frame sweep.
type Frame struct {
	Stamp      uint64     `json:"stamp"`
	Dispatched int64      `json:"dispatched"`
	Dispatches []Dispatch `json:"dispatches"`
}

// Object returns the canonical object form of f, dispatches inline.
func (f Frame) Object() Object {
	dispatches := make(Array, len(f.Dispatches))
	for i, d := range f.Dispatches {
		dispatches[i] = d.Object()
	}
	return Object{
		"stamp":      Int(int64(f.Stamp)),
		"dispatched": Int(f.Dispatched),
		"dispatches": dispatches,
	}
}

// RecordState is one record's externally visible state: its position in the
// collection, its state name, and a payload snapshot. Used for final-state
// assertions and golden files.
type RecordState struct {
	Index   int64  `json:"index"`
	State   string `json:"state"`
	Payload Object `json:"payload"`
}

// Object returns the canonical object form of r.
func (r RecordState) Object() Object {
	return Object{
		"index":   Int(r.Index),
		"state":   String(r.State),
		"payload": r.Payload,
	}
}
