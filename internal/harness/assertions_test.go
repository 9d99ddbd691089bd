package harness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleTrace = []TraceEvent{
	{Step: 0, Op: OpExecute, Outcome: OutcomeAccepted, Anchor: "a1"},
	{Step: 1, Op: OpExecute, Outcome: OutcomeRejected, Anchor: "a1"},
	{Step: 2, Op: OpDock, Outcome: OutcomeAccepted, Anchor: "a2"},
	{Step: 3, Op: OpShutdown, Outcome: OutcomeOK, Anchor: "a2"},
}

func TestAssertTraceCount(t *testing.T) {
	assert.NoError(t, assertTraceCount(sampleTrace, Assertion{Op: OpExecute, Count: 2}))
	assert.NoError(t, assertTraceCount(sampleTrace, Assertion{Op: OpExecute, Outcome: OutcomeRejected, Count: 1}))
	assert.NoError(t, assertTraceCount(sampleTrace, Assertion{Op: OpSynthesize, Count: 0}))

	err := assertTraceCount(sampleTrace, Assertion{Op: OpDock, Count: 3})
	var ae *AssertionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, AssertTraceCount, ae.Type)
	assert.Equal(t, "occurs 1 times", ae.Actual)
}

func TestAssertTraceOrder(t *testing.T) {
	assert.NoError(t, assertTraceOrder(sampleTrace, Assertion{Ops: []string{OpExecute, OpDock, OpShutdown}}))
	assert.NoError(t, assertTraceOrder(sampleTrace, Assertion{Ops: []string{OpExecute, OpExecute}}))

	err := assertTraceOrder(sampleTrace, Assertion{Ops: []string{OpDock, OpExecute}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing "execute"`)
}

func TestAssertFinalAnchorAndAudit(t *testing.T) {
	result := NewResult()
	result.FinalAnchor = "a2"

	assert.NoError(t, assertFinalAnchor(result, Assertion{Anchor: "a2"}))
	assert.Error(t, assertFinalAnchor(result, Assertion{Anchor: "a3"}))
	assert.NoError(t, assertAuditLength(result, Assertion{Count: 0}))
	assert.Error(t, assertAuditLength(result, Assertion{Count: 1}))
}

func TestAssertDeterministic(t *testing.T) {
	same := &AssertionContext{Rerun: func() ([]TraceEvent, error) { return sampleTrace, nil }}
	assert.NoError(t, assertDeterministic(sampleTrace, same))

	changed := append([]TraceEvent(nil), sampleTrace...)
	changed[2].Anchor = "other"
	differs := &AssertionContext{Rerun: func() ([]TraceEvent, error) { return changed, nil }}
	err := assertDeterministic(sampleTrace, differs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trace differs")

	assert.Error(t, assertDeterministic(sampleTrace, nil))
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{Type: "x", Expected: "e", Actual: "a", Trace: sampleTrace[:1]}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: x")
	assert.Contains(t, msg, "Expected: e")
	assert.Contains(t, msg, "[0] execute accepted a1")
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace
	result.FinalAnchor = "a2"

	failures := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Op: OpExecute, Count: 2},
		{Type: AssertFinalAnchor, Anchor: "nope"},
	}, nil)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "assertions[1]")
}
