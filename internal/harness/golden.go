package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/stampede/internal/trace"
)

// TraceSnapshot captures the complete trace of a scenario execution.
// All fields serialize through canonical JSON for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Kind         string
	Frames       []trace.Frame
	Final        []trace.RecordState
}

// toCanonicalValue converts the snapshot to a trace value tree so the
// canonical marshaler can serialize it.
func (s *TraceSnapshot) toCanonicalValue() trace.Object {
	frames := make(trace.Array, len(s.Frames))
	for i, frame := range s.Frames {
		frames[i] = frame.Object()
	}

	final := make(trace.Array, len(s.Final))
	for i, rec := range s.Final {
		final[i] = rec.Object()
	}

	return trace.Object{
		"scenario": trace.String(s.ScenarioName),
		"kind":     trace.String(s.Kind),
		"frames":   frames,
		"final":    final,
	}
}

// MarshalCanonical serializes the snapshot as canonical JSON.
func (s *TraceSnapshot) MarshalCanonical() ([]byte, error) {
	return trace.MarshalCanonical(s.toCanonicalValue())
}

// RunWithGolden executes a scenario and compares the trace against a golden
// file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already computed result's trace against the
// named golden file. This is useful when you've run a scenario and want to
// compare the result without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Kind:         result.Kind,
		Frames:       result.Frames,
		Final:        result.Final,
	}

	traceJSON, err := snapshot.MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
