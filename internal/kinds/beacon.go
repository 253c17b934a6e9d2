package kinds

import (
	"github.com/roach88/stampede"
	"github.com/roach88/stampede/internal/trace"
)

// beacon is a pulsing light: it charges in dark for three frames, emits a
// pulse, and returns to dark after one lit frame. Every fifth pulse the lit
// segment falls through into flare, so the chain lit->flare runs inside a
// single dispatch call.
const (
	beaconDark stampede.StateID = iota + 1
	beaconLit
	beaconFlare
)

type beaconPayload struct {
	Charge int64
	Pulses int64
	Flares int64
}

var beaconMachine = stampede.MustMachine(
	stampede.Segment[beaconPayload]{State: beaconDark, Name: "dark", Step: func(p *beaconPayload) stampede.Op {
		p.Charge++
		if p.Charge >= 3 {
			p.Charge = 0
			p.Pulses++
			return stampede.Goto(beaconLit)
		}
		return stampede.Goto(beaconDark)
	}},
	stampede.Segment[beaconPayload]{State: beaconLit, Name: "lit", Step: func(p *beaconPayload) stampede.Op {
		if p.Pulses%5 == 0 {
			return stampede.FallThrough()
		}
		return stampede.Goto(beaconDark)
	}},
	stampede.Segment[beaconPayload]{State: beaconFlare, Name: "flare", Step: func(p *beaconPayload) stampede.Op {
		p.Flares++
		return stampede.Goto(beaconDark)
	}},
)

func init() {
	Register("beacon", newBeacon)
}

func newBeacon() Runner {
	return newRunner(
		"beacon",
		beaconMachine,
		[]stampede.Bucket{
			// Two of every four frames are spent charging.
			{Name: "charging", Match: stampede.Is(beaconDark)},
		},
		func(i int) stampede.Record[beaconPayload] {
			// Stagger charge so the population desynchronizes.
			return stampede.NewRecord(beaconDark, beaconPayload{Charge: int64(i % 3)})
		},
		func(p *beaconPayload) trace.Object {
			return trace.Object{
				"charge": trace.Int(p.Charge),
				"pulses": trace.Int(p.Pulses),
				"flares": trace.Int(p.Flares),
			}
		},
	)
}
