package harness

import (
	"strconv"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/qube/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	FinalAnchor  string       `json:"final_anchor"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// Canonical JSON has no floats: structure coordinates are integers and clip
// values are written as shortest-form decimal strings.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"step":    event.Step,
			"op":      event.Op,
			"outcome": event.Outcome,
		}
		if event.Name != "" {
			eventMap["name"] = event.Name
		}
		if event.Anchor != "" {
			eventMap["anchor"] = event.Anchor
		}
		if event.SequenceID != nil {
			eventMap["sequence_id"] = strconv.FormatUint(*event.SequenceID, 10)
		}
		if event.Operations != nil {
			eventMap["operations"] = strconv.FormatUint(*event.Operations, 10)
		}
		if event.Structures != nil {
			structures := make([]any, len(event.Structures))
			for j, st := range event.Structures {
				structures[j] = map[string]any{
					"x":    int64(st.X),
					"y":    int64(st.Y),
					"w":    int64(st.W),
					"h":    int64(st.H),
					"type": st.Type,
				}
			}
			eventMap["structures"] = structures
		}
		if event.Clip != nil {
			clamped := make([]any, len(event.Clip.Clamped))
			for j, v := range event.Clip.Clamped {
				clamped[j] = formatFloat(v)
			}
			violations := make([]any, len(event.Clip.Stats))
			for j, st := range event.Clip.Stats {
				violations[j] = st.Violation.String()
			}
			eventMap["clip"] = map[string]any{
				"clamped":    clamped,
				"violations": violations,
				"safe":       event.Clip.Safe,
			}
		}
		traceList[i] = eventMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"final_anchor":  s.FinalAnchor,
		"trace":         traceList,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := SnapshotJSON(scenarioName, result)
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

// SnapshotJSON returns the canonical JSON snapshot of result.
func SnapshotJSON(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		FinalAnchor:  result.FinalAnchor,
		Trace:        result.Trace,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}
