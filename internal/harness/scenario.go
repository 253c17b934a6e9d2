package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios validate kind behavior by running a record collection for a
// fixed number of frames and asserting on the trace and final states.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Kind names the registered kind to run.
	Kind string `yaml:"kind"`

	// Population is the number of records created through the kind's
	// default populate function before the run.
	Population int `yaml:"population,omitempty"`

	// Spawn appends records in explicit states after population.
	// Groups are applied in order.
	Spawn []SpawnGroup `yaml:"spawn,omitempty"`

	// Frames is the number of frames to run.
	Frames int `yaml:"frames"`

	// Assertions validate the dispatch trace and final record states.
	// Supported types: trace_contains, trace_order, dispatch_count,
	// chain_length, final_state.
	Assertions []Assertion `yaml:"assertions"`
}

// SpawnGroup appends count records in the named state.
type SpawnGroup struct {
	// State is the state name the records start in.
	// The name "uninitialized" is always accepted.
	State string `yaml:"state"`

	// Count is the number of records to append.
	Count int `yaml:"count"`
}

// Assertion validates the trace or final record states.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": check a matching dispatch occurs
	// - "trace_order": check states are first entered in order
	// - "dispatch_count": check matching dispatches occur exactly N times
	// - "chain_length": check a fallthrough chain of at least min_steps ran
	// - "final_state": check a record's final state and payload fields
	Type string `yaml:"type"`

	// Bucket filters dispatches by bucket name (used by trace_contains,
	// dispatch_count, chain_length). Empty matches any bucket.
	Bucket string `yaml:"bucket,omitempty"`

	// From filters dispatches by entry state (used by trace_contains,
	// dispatch_count, chain_length). Empty matches any state.
	From string `yaml:"from,omitempty"`

	// To filters dispatches by resulting state (used by trace_contains,
	// dispatch_count, chain_length). Empty matches any state.
	To string `yaml:"to,omitempty"`

	// Count is the expected number of matching dispatches (used by
	// dispatch_count).
	Count int `yaml:"count,omitempty"`

	// States is the expected first-entry order (used by trace_order).
	States []string `yaml:"states,omitempty"`

	// MinSteps is the minimum chain length (used by chain_length).
	MinSteps int64 `yaml:"min_steps,omitempty"`

	// Record is the record index to inspect (used by final_state).
	Record int `yaml:"record,omitempty"`

	// State is the expected final state name (used by final_state).
	State string `yaml:"state,omitempty"`

	// Fields contains expected payload values (used by final_state).
	// Subset match - only specified fields are validated.
	Fields map[string]interface{} `yaml:"fields,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertDispatchCount = "dispatch_count"
	AssertChainLength   = "chain_length"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarioDir reads every scenario file in dir, in file name order.
// Files with a .yaml or .yml extension are loaded; anything else is
// skipped. A single malformed scenario fails the whole load, with the
// file name in the error.
func LoadScenarioDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var scenarios []*Scenario
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		scenario, err := LoadScenario(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		scenarios = append(scenarios, scenario)
	}

	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Kind == "" {
		return fmt.Errorf("kind is required")
	}

	if s.Population < 0 {
		return fmt.Errorf("population must be non-negative")
	}

	if s.Frames < 1 {
		return fmt.Errorf("frames must be at least 1")
	}

	// Validate spawn groups (if present)
	total := s.Population
	for i, group := range s.Spawn {
		if group.State == "" {
			return fmt.Errorf("spawn[%d]: state is required", i)
		}
		if group.Count < 1 {
			return fmt.Errorf("spawn[%d]: count must be at least 1", i)
		}
		total += group.Count
	}

	if total == 0 {
		return fmt.Errorf("population and spawn are both empty: nothing to run")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Bucket == "" && a.From == "" && a.To == "" {
			return fmt.Errorf("assertions[%d]: at least one of bucket, from, to is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.States) < 2 {
			return fmt.Errorf("assertions[%d]: states list with at least two entries is required for trace_order", index)
		}
	case AssertDispatchCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for dispatch_count", index)
		}
	case AssertChainLength:
		if a.MinSteps < 2 {
			return fmt.Errorf("assertions[%d]: min_steps must be at least 2 for chain_length", index)
		}
	case AssertFinalState:
		if a.Record < 0 {
			return fmt.Errorf("assertions[%d]: record must be non-negative for final_state", index)
		}
		if a.State == "" && len(a.Fields) == 0 {
			return fmt.Errorf("assertions[%d]: state or fields is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
