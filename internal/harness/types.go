package harness

import (
	"github.com/roach88/stampede/internal/trace"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every assertion held.
	Pass bool `json:"pass"`

	// Kind is the kind that ran.
	Kind string `json:"kind"`

	// Frames contains every frame's dispatches in run order.
	// Used for trace assertions and golden comparison.
	Frames []trace.Frame `json:"frames"`

	// FrameDigests holds one canonical digest per frame, aligned with
	// Frames.
	FrameDigests []string `json:"frame_digests"`

	// RunDigest chains the frame digests into one run identity.
	RunDigest string `json:"run_digest"`

	// Final contains every record's state after the last frame, in
	// collection order.
	Final []trace.RecordState `json:"final"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult(kind string) *Result {
	return &Result{
		Pass:         true,
		Kind:         kind,
		Frames:       []trace.Frame{},
		FrameDigests: []string{},
		Errors:       []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddFrame appends a frame and its digest to the trace.
func (r *Result) AddFrame(frame trace.Frame, digest string) {
	r.Frames = append(r.Frames, frame)
	r.FrameDigests = append(r.FrameDigests, digest)
}

// Dispatches flattens the per-frame trace into one stream in run order.
func (r *Result) Dispatches() []trace.Dispatch {
	var all []trace.Dispatch
	for _, frame := range r.Frames {
		all = append(all, frame.Dispatches...)
	}
	return all
}
