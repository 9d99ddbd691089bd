package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qube/internal/ir"
)

const (
	anchorH1   = "5388c745e1c52fa4383ecf7fd7c0bf68407f1c21c43872f939691104d36e3943"
	anchorDock = "b8babeba590b2c8cd1b2f20c68ad951478497a2d491d45f19e4deb05a99db7ef"
)

func loadFixture(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_Fixtures(t *testing.T) {
	for _, name := range []string{"chain", "lifecycle", "envelope"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(loadFixture(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_ChainJournal(t *testing.T) {
	result, err := Run(loadFixture(t, "chain"))
	require.NoError(t, err)

	assert.Equal(t, "scenario-chain", result.SessionID)
	require.Len(t, result.Audit, 3)
	assert.Equal(t, ir.AuditEntry{Index: 0, Kind: ir.AuditExecute, Anchor: anchorH1}, result.Audit[0])
	assert.Equal(t, ir.AuditEntry{Index: 1, Kind: ir.AuditDock, Anchor: anchorDock}, result.Audit[1])
	assert.Equal(t, ir.AuditExecute, result.Audit[2].Kind)
}

func TestRun_NoSessionWithoutInitialize(t *testing.T) {
	result, err := Run(loadFixture(t, "envelope"))
	require.NoError(t, err)
	assert.Empty(t, result.SessionID)
	assert.Equal(t, ir.GenesisAnchor, result.FinalAnchor)
	assert.Empty(t, result.Audit)
}

func TestRun_ExpectationFailures(t *testing.T) {
	two := 2
	scenario := &Scenario{
		Name:        "failing",
		Description: "every expectation is wrong",
		Seed:        "G",
		Steps: []Step{
			{Execute: &ExecuteStep{SequenceID: 1, PreviousHash: "stale", CurrentHash: "A"}},
			{Execute: &ExecuteStep{SequenceID: 2, PreviousHash: AnchorPlaceholder, CurrentHash: "B", Anchor: "wrong"}},
			{Synthesize: &SynthesizeStep{Count: &two}},
		},
		Clips: []ClipCheck{{
			Name:   "c",
			Bounds: [][]float64{{-1, 1, -1, 1}},
			Action: []float64{5},
			Expect: ClipExpect{Clamped: []float64{5}},
		}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)

	joined := strings.Join(result.Errors, "\n")
	assert.Contains(t, joined, "step 0 (execute): expected accepted, got rejected")
	assert.Contains(t, joined, "step 1 (execute): expected anchor wrong")
	assert.Contains(t, joined, `clip "c": expected clamped [5], got [1]`)
}

func TestRun_PayloadOutOfRange(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_payload",
		Description: "payload bytes must fit in a byte",
		Seed:        "G",
		Steps: []Step{
			{Execute: &ExecuteStep{SequenceID: 1, PreviousHash: AnchorPlaceholder, CurrentHash: "A", Payload: []int{256}}},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestRun_AssertionFailure(t *testing.T) {
	scenario := loadFixture(t, "chain")
	scenario.Assertions = []Assertion{{Type: AssertAuditLength, Count: 99}}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "99 audit entries")
}
