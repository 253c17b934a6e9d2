package kinds

import (
	"github.com/roach88/stampede"
	"github.com/roach88/stampede/internal/trace"
)

// drifter is a mood simulation: each record picks a target, shifts its mood
// toward it one point per frame, then settles and rests. The shift segment
// self-transitions to spread work across frames; once mood reaches target
// the call falls through shift into settle and on to rest in one frame.
const (
	drifterStart stampede.StateID = iota + 1
	drifterShift
	drifterSettle
	drifterRest
)

type drifterPayload struct {
	Mood   int64
	Target int64
	Calm   bool
}

var drifterMachine = stampede.MustMachine(
	stampede.Segment[drifterPayload]{State: drifterStart, Name: "start", Step: func(p *drifterPayload) stampede.Op {
		p.Target = 50
		return stampede.Goto(drifterShift)
	}},
	stampede.Segment[drifterPayload]{State: drifterShift, Name: "shift", Step: func(p *drifterPayload) stampede.Op {
		if p.Mood < p.Target {
			p.Mood++
			return stampede.Goto(drifterShift)
		}
		return stampede.FallThrough()
	}},
	stampede.Segment[drifterPayload]{State: drifterSettle, Name: "settle", Step: func(p *drifterPayload) stampede.Op {
		p.Calm = true
		return stampede.Goto(drifterRest)
	}},
	stampede.Segment[drifterPayload]{State: drifterRest, Name: "rest", Step: func(p *drifterPayload) stampede.Op {
		return stampede.FallThrough()
	}},
)

func init() {
	Register("drifter", newDrifter)
}

func newDrifter() Runner {
	return newRunner(
		"drifter",
		drifterMachine,
		[]stampede.Bucket{
			// Most records spend most frames shifting.
			{Name: "shifting", Match: stampede.Is(drifterShift)},
		},
		func(i int) stampede.Record[drifterPayload] {
			// Stagger starting moods so records settle on different frames.
			return stampede.NewRecord(drifterStart, drifterPayload{Mood: int64(i % 10)})
		},
		func(p *drifterPayload) trace.Object {
			return trace.Object{
				"mood":   trace.Int(p.Mood),
				"target": trace.Int(p.Target),
				"calm":   trace.Bool(p.Calm),
			}
		},
	)
}
