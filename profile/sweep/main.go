// Profiling:
// go build ./profile/sweep
// go tool pprof -http=":8000" -nodefraction=0.001 ./sweep mem.pprof

package main

import (
	"github.com/pkg/profile"

	"github.com/roach88/stampede/internal/kinds"
	"github.com/roach88/stampede/internal/trace"
)

func main() {
	rounds := 20
	frames := 200
	population := 5000
	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(rounds, frames, population)
	p.Stop()
}

func run(rounds, frames, population int) {
	for range rounds {
		runner, err := kinds.New("drifter")
		if err != nil {
			panic(err)
		}
		runner.Populate(population)

		for range frames {
			_, frame := runner.RunFrame()
			if _, err := trace.FrameDigest(frame); err != nil {
				panic(err)
			}
		}
	}
}
