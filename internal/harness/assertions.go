package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/stampede/internal/trace"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type       string           // Assertion type for categorization
	Expected   string           // Human-readable expected outcome
	Actual     string           // Human-readable actual outcome
	Dispatches []trace.Dispatch // Full dispatch stream for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, d := range e.Dispatches {
		fmt.Fprintf(&buf, "  [%d] frame %d %s: record %d %s -> %s (%d steps)\n",
			d.Seq, d.Frame, d.Bucket, d.Index, d.From, d.To, d.Steps)
	}

	return buf.String()
}

// matchDispatch reports whether a dispatch satisfies the assertion's
// bucket/from/to filters. Empty filters match anything.
func matchDispatch(d trace.Dispatch, a Assertion) bool {
	if a.Bucket != "" && d.Bucket != a.Bucket {
		return false
	}
	if a.From != "" && d.From != a.From {
		return false
	}
	if a.To != "" && d.To != a.To {
		return false
	}
	return true
}

// describeFilters renders the assertion's dispatch filters for error
// messages.
func describeFilters(a Assertion) string {
	var parts []string
	if a.Bucket != "" {
		parts = append(parts, fmt.Sprintf("bucket=%s", a.Bucket))
	}
	if a.From != "" {
		parts = append(parts, fmt.Sprintf("from=%s", a.From))
	}
	if a.To != "" {
		parts = append(parts, fmt.Sprintf("to=%s", a.To))
	}
	if len(parts) == 0 {
		return "(any dispatch)"
	}
	return strings.Join(parts, " ")
}

// assertTraceContains checks that at least one dispatch matches the
// assertion's filters.
func assertTraceContains(dispatches []trace.Dispatch, assertion Assertion) error {
	for _, d := range dispatches {
		if matchDispatch(d, assertion) {
			return nil
		}
	}

	return &AssertionError{
		Type:       AssertTraceContains,
		Expected:   fmt.Sprintf("dispatch matching %s", describeFilters(assertion)),
		Actual:     "not found in trace",
		Dispatches: dispatches,
	}
}

// assertTraceOrder checks that states are first entered in the given order.
// Entries don't need to be consecutive (intervening dispatches are allowed).
func assertTraceOrder(dispatches []trace.Dispatch, assertion Assertion) error {
	// Step 1: Find the first dispatch entering each expected state
	positions := make(map[string]int)

	for i, d := range dispatches {
		for _, state := range assertion.States {
			if d.To == state && positions[state] == 0 {
				positions[state] = i + 1 // 1-indexed so zero means never entered
			}
		}
	}

	// Step 2: Verify every state was entered
	for _, state := range assertion.States {
		if positions[state] == 0 {
			return &AssertionError{
				Type:       AssertTraceOrder,
				Expected:   fmt.Sprintf("all states entered: %v", assertion.States),
				Actual:     fmt.Sprintf("state never entered: %s", state),
				Dispatches: dispatches,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(assertion.States); i++ {
		prev := assertion.States[i-1]
		curr := assertion.States[i]

		if positions[prev] > positions[curr] {
			return &AssertionError{
				Type:       AssertTraceOrder,
				Expected:   fmt.Sprintf("%s entered before %s", prev, curr),
				Actual:     fmt.Sprintf("%s first entered at dispatch %d, %s at dispatch %d", prev, positions[prev], curr, positions[curr]),
				Dispatches: dispatches,
			}
		}
	}

	return nil
}

// assertDispatchCount checks that exactly Count dispatches match the
// assertion's filters.
func assertDispatchCount(dispatches []trace.Dispatch, assertion Assertion) error {
	count := 0
	for _, d := range dispatches {
		if matchDispatch(d, assertion) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:       AssertDispatchCount,
			Expected:   fmt.Sprintf("%d dispatches matching %s", assertion.Count, describeFilters(assertion)),
			Actual:     fmt.Sprintf("%d dispatches", count),
			Dispatches: dispatches,
		}
	}

	return nil
}

// assertChainLength checks that at least one matching dispatch ran a
// fallthrough chain of MinSteps or more segments in a single call.
func assertChainLength(dispatches []trace.Dispatch, assertion Assertion) error {
	longest := int64(0)
	for _, d := range dispatches {
		if !matchDispatch(d, assertion) {
			continue
		}
		if d.Steps > longest {
			longest = d.Steps
		}
	}

	if longest < assertion.MinSteps {
		return &AssertionError{
			Type:       AssertChainLength,
			Expected:   fmt.Sprintf("a dispatch running at least %d segments", assertion.MinSteps),
			Actual:     fmt.Sprintf("longest chain ran %d", longest),
			Dispatches: dispatches,
		}
	}

	return nil
}

// assertFinalState checks a record's final state name and payload fields.
// Fields use subset semantics - only specified keys are validated.
func assertFinalState(final []trace.RecordState, assertion Assertion) error {
	if assertion.Record >= len(final) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("record %d to exist", assertion.Record),
			Actual:   fmt.Sprintf("collection holds %d records", len(final)),
		}
	}

	rec := final[assertion.Record]

	if assertion.State != "" && rec.State != assertion.State {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("record %d in state %s", assertion.Record, assertion.State),
			Actual:   fmt.Sprintf("state %s", rec.State),
		}
	}

	// Check each expected field (subset semantics), in sorted order so
	// the first failure reported is deterministic.
	for _, key := range sortedFieldKeys(assertion.Fields) {
		expected := assertion.Fields[key]

		actual, exists := rec.Payload[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("payload field %q to exist", key),
				Actual:   fmt.Sprintf("record %d payload has no field %q", assertion.Record, key),
			}
		}

		if !payloadValueEqual(expected, actual) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v", key, expected),
				Actual:   fmt.Sprintf("field %q = %s", key, renderValue(actual)),
			}
		}
	}

	return nil
}

// sortedFieldKeys returns the field names in sorted order.
func sortedFieldKeys(fields map[string]interface{}) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// payloadValueEqual compares a YAML-decoded expectation against a trace
// value. YAML integers arrive as int, so numeric comparison widens to
// int64.
func payloadValueEqual(expected interface{}, actual trace.Value) bool {
	switch exp := expected.(type) {
	case string:
		act, ok := actual.(trace.String)
		return ok && string(act) == exp
	case int:
		act, ok := actual.(trace.Int)
		return ok && int64(act) == int64(exp)
	case int64:
		act, ok := actual.(trace.Int)
		return ok && int64(act) == exp
	case bool:
		act, ok := actual.(trace.Bool)
		return ok && bool(act) == exp
	}
	return false
}

// renderValue renders a trace value for error messages.
func renderValue(v trace.Value) string {
	data, err := trace.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	dispatches := result.Dispatches()

	var errors []string
	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(dispatches, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(dispatches, assertion)
		case AssertDispatchCount:
			err = assertDispatchCount(dispatches, assertion)
		case AssertChainLength:
			err = assertChainLength(dispatches, assertion)
		case AssertFinalState:
			err = assertFinalState(result.Final, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
