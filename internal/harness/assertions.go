package harness

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s", event.Step, event.Op, event.Outcome)
		if event.Anchor != "" {
			fmt.Fprintf(&buf, " %s", event.Anchor)
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

// AssertionContext supplies what some assertions need beyond the result.
type AssertionContext struct {
	// Rerun executes the scenario again from scratch and returns its trace.
	Rerun func() ([]TraceEvent, error)
}

// EvaluateAssertions checks every assertion against result and returns one
// message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertFinalAnchor:
			err = assertFinalAnchor(result, a)
		case AssertAuditLength:
			err = assertAuditLength(result, a)
		case AssertDeterminism:
			err = assertDeterministic(result.Trace, actx)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

// assertTraceCount checks that exactly Count events match Op (and Outcome,
// when set).
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Op != assertion.Op {
			continue
		}
		if assertion.Outcome != "" && event.Outcome != assertion.Outcome {
			continue
		}
		count++
	}

	if count == assertion.Count {
		return nil
	}

	selector := assertion.Op
	if assertion.Outcome != "" {
		selector += "/" + assertion.Outcome
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%s occurs %d times", selector, assertion.Count),
		Actual:   fmt.Sprintf("occurs %d times", count),
		Trace:    trace,
	}
}

// assertTraceOrder checks that Ops appear in the trace in the given order.
// Other events may be interleaved.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(assertion.Ops) && event.Op == assertion.Ops[next] {
			next++
		}
	}

	if next == len(assertion.Ops) {
		return nil
	}

	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("ops in order %v", assertion.Ops),
		Actual:   fmt.Sprintf("matched %d of %d, missing %q", next, len(assertion.Ops), assertion.Ops[next]),
		Trace:    trace,
	}
}

func assertFinalAnchor(result *Result, assertion Assertion) error {
	if result.FinalAnchor == assertion.Anchor {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalAnchor,
		Expected: assertion.Anchor,
		Actual:   result.FinalAnchor,
		Trace:    result.Trace,
	}
}

func assertAuditLength(result *Result, assertion Assertion) error {
	if len(result.Audit) == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertAuditLength,
		Expected: fmt.Sprintf("%d audit entries", assertion.Count),
		Actual:   fmt.Sprintf("%d audit entries", len(result.Audit)),
		Trace:    result.Trace,
	}
}

// assertDeterministic runs the scenario again and requires an identical trace.
func assertDeterministic(trace []TraceEvent, actx *AssertionContext) error {
	if actx == nil || actx.Rerun == nil {
		return fmt.Errorf("deterministic: no rerun available")
	}
	again, err := actx.Rerun()
	if err != nil {
		return fmt.Errorf("deterministic: rerun failed: %w", err)
	}

	if diff := cmp.Diff(trace, again, cmpopts.EquateNaNs()); diff != "" {
		return &AssertionError{
			Type:     AssertDeterminism,
			Expected: "identical trace on rerun",
			Actual:   fmt.Sprintf("trace differs (-first +rerun):\n%s", diff),
			Trace:    trace,
		}
	}
	return nil
}
