// Package harness provides scenario-driven conformance testing for kinds.
//
// A scenario names a registered kind, a starting population, and a frame
// budget, then asserts on the dispatch trace and the final record states.
// The same YAML file drives package tests, golden trace comparison, and
// the CLI test command.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	kind: drifter
//	population: 3
//	spawn:
//	  - state: rest
//	    count: 2
//	frames: 60
//	assertions:
//	  - type: trace_contains
//	    bucket: shifting
//	    from: shift
//	  - type: final_state
//	    record: 0
//	    state: rest
//	    fields: { mood: 50, calm: true }
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - trace_contains: a dispatch matching the bucket/from/to filters occurs
//   - trace_order: states are first entered in the given order
//   - dispatch_count: matching dispatches occur exactly N times
//   - chain_length: some dispatch ran a fallthrough chain of min_steps segments
//   - final_state: a record's final state name and payload fields match
//
// # Deterministic Testing
//
// Scenario execution is deterministic end to end: runners sweep records in
// collection order, frames advance a logical generation counter, and traces
// marshal to canonical JSON. The same scenario therefore produces
// byte-identical golden files on every run, on every machine.
package harness
