package harness

import (
	"fmt"

	"github.com/roach88/stampede/internal/kinds"
	"github.com/roach88/stampede/internal/trace"
)

// Run executes a test scenario and returns the result.
//
// Each scenario gets a fresh runner from the kind registry, so no state
// leaks between scenarios.
//
// Execution flow:
// 1. Build a fresh runner for the scenario's kind
// 2. Populate records and apply spawn groups
// 3. Run the frame budget, collecting one trace frame per sweep
// 4. Digest the frames and snapshot the final record states
// 5. Evaluate assertions and return the result
func Run(scenario *Scenario) (*Result, error) {
	runner, err := kinds.New(scenario.Kind)
	if err != nil {
		return nil, fmt.Errorf("failed to build runner: %w", err)
	}

	runner.Populate(scenario.Population)
	for i, group := range scenario.Spawn {
		if err := runner.SpawnAt(group.State, group.Count); err != nil {
			return nil, fmt.Errorf("spawn[%d]: %w", i, err)
		}
	}

	result := NewResult(scenario.Kind)
	for frame := 0; frame < scenario.Frames; frame++ {
		_, traceFrame := runner.RunFrame()

		digest, err := trace.FrameDigest(traceFrame)
		if err != nil {
			return nil, fmt.Errorf("frame %d: failed to digest trace: %w", frame+1, err)
		}
		result.AddFrame(traceFrame, digest)
	}

	result.RunDigest = trace.RunDigest(result.FrameDigests)
	result.Final = runner.Snapshot()

	// Assertion failures mark the result failed; they are not execution
	// errors.
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}
