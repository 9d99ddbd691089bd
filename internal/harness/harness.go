package harness

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/roach88/qube/internal/driver"
	"github.com/roach88/qube/internal/envelope"
	"github.com/roach88/qube/internal/ir"
	"github.com/roach88/qube/internal/kernel"
	"github.com/roach88/qube/internal/store"
)

// Harness runs one scenario against one kernel.
//
// Every kernel call that the kernel accepts or rejects on integrity grounds is
// journaled into an in-memory store, so the run can be replayed by
// driver.VerifySession once the steps are done.
type Harness struct {
	store  *store.Store
	kernel *kernel.Kernel
	clock  *driver.Clock
	ids    driver.SessionIDGenerator

	scenario *Scenario
	session  string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database and a fresh kernel.
//
// Execution flow:
//  1. Initialize the kernel with scenario.Seed, if set
//  2. Execute steps, checking each step's expectations
//  3. Run clip checks
//  4. Verify the journal by replay
//  5. Evaluate assertions
//
// An error means the scenario could not be executed; failed expectations are
// reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	result, err := runOnce(scenario)
	if err != nil {
		return nil, err
	}

	actx := &AssertionContext{
		Rerun: func() ([]TraceEvent, error) {
			again, err := runOnce(scenario)
			if err != nil {
				return nil, err
			}
			return again.Trace, nil
		},
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func runOnce(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:    st,
		kernel:   kernel.New(),
		clock:    driver.NewClock(),
		ids:      driver.NewFixedGenerator("scenario-" + scenario.Name),
		scenario: scenario,
	}

	ctx := context.Background()
	result := NewResult()

	if scenario.Seed != "" {
		if err := h.initialize(ctx, scenario.Seed); err != nil {
			return nil, err
		}
	}

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	for i, c := range scenario.Clips {
		h.executeClip(len(scenario.Steps)+i, c, result)
	}

	result.FinalAnchor = h.kernel.GetStateHash()
	result.Audit = h.kernel.Audit()
	result.SessionID = h.session

	if h.session != "" {
		report, err := driver.VerifySession(ctx, h.store, h.session)
		if err != nil {
			return nil, fmt.Errorf("verify journal: %w", err)
		}
		for _, m := range report.Mismatches {
			result.AddError(fmt.Sprintf("journal replay: record %d %s: want %s, got %s", m.Seq, m.Field, m.Want, m.Got))
		}
	}

	slog.Debug("scenario executed",
		"scenario", scenario.Name,
		"steps", len(scenario.Steps),
		"clips", len(scenario.Clips),
		"pass", result.Pass)

	return result, nil
}

// initialize initializes the kernel and opens the journal session on the
// first successful call.
func (h *Harness) initialize(ctx context.Context, seed string) error {
	if err := h.kernel.Initialize(seed); err != nil {
		return err
	}
	if h.session != "" {
		return nil
	}

	h.session = h.ids.Generate()
	return h.store.WriteSession(ctx, ir.Session{
		ID:            h.session,
		Seed:          h.kernel.GetStateHash(),
		KernelVersion: ir.KernelVersion,
		HashVersion:   ir.HashVersion,
	})
}

func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	switch {
	case step.Initialize != nil:
		return h.stepInitialize(ctx, index, step.Initialize, result)
	case step.Execute != nil:
		return h.stepExecute(ctx, index, step.Execute, result)
	case step.Dock != nil:
		return h.stepDock(ctx, index, step.Dock, result)
	case step.Synthesize != nil:
		h.stepSynthesize(index, step.Synthesize, result)
		return nil
	case step.Shutdown != nil:
		h.stepShutdown(index, step.Shutdown, result)
		return nil
	default:
		return fmt.Errorf("empty step")
	}
}

func (h *Harness) stepInitialize(ctx context.Context, index int, s *InitializeStep, result *Result) error {
	outcome := OutcomeOK
	err := h.initialize(ctx, s.Seed)
	switch {
	case err == nil:
	case kernel.IsUsageError(err):
		outcome = OutcomeUsageError
	default:
		return err
	}

	result.AddTrace(TraceEvent{Step: index, Op: OpInitialize, Outcome: outcome, Anchor: h.kernel.GetStateHash()})
	checkOutcome(result, index, OpInitialize, withDefault(s.Expect, OutcomeOK), outcome)
	return nil
}

func (h *Harness) stepExecute(ctx context.Context, index int, s *ExecuteStep, result *Result) error {
	payload, err := toBytes(s.Payload)
	if err != nil {
		return err
	}

	prev := s.PreviousHash
	if prev == AnchorPlaceholder {
		prev = h.kernel.GetStateHash()
	}
	unit := ir.TransitionUnit{
		Timestamp:    s.Timestamp,
		SequenceID:   s.SequenceID,
		PreviousHash: prev,
		CurrentHash:  s.CurrentHash,
		Payload:      payload,
	}

	outcome := OutcomeAccepted
	err = h.kernel.Execute(unit)
	switch {
	case err == nil:
	case kernel.IsIntegrityError(err):
		outcome = OutcomeRejected
	case kernel.IsUsageError(err):
		outcome = OutcomeUsageError
	default:
		return err
	}

	if outcome != OutcomeUsageError {
		if err := h.journal(ctx, ir.JournalRecord{
			Kind:     ir.AuditExecute,
			Unit:     unit,
			Accepted: outcome == OutcomeAccepted,
		}); err != nil {
			return err
		}
	}

	seqID := s.SequenceID
	anchor := h.kernel.GetStateHash()
	result.AddTrace(TraceEvent{Step: index, Op: OpExecute, Outcome: outcome, Anchor: anchor, SequenceID: &seqID})
	checkOutcome(result, index, OpExecute, withDefault(s.Expect, OutcomeAccepted), outcome)
	checkAnchor(result, index, OpExecute, s.Anchor, anchor)
	return nil
}

func (h *Harness) stepDock(ctx context.Context, index int, s *DockStep, result *Result) error {
	data, err := toBytes(s.Data)
	if err != nil {
		return err
	}

	outcome := OutcomeAccepted
	err = h.kernel.DockPattern(s.PatternID, data)
	switch {
	case err == nil:
		if err := h.journal(ctx, ir.JournalRecord{
			Kind:      ir.AuditDock,
			PatternID: s.PatternID,
			Data:      data,
			Accepted:  true,
		}); err != nil {
			return err
		}
	case kernel.IsUsageError(err):
		outcome = OutcomeUsageError
	default:
		return err
	}

	anchor := h.kernel.GetStateHash()
	result.AddTrace(TraceEvent{Step: index, Op: OpDock, Name: s.PatternID, Outcome: outcome, Anchor: anchor})
	checkOutcome(result, index, OpDock, withDefault(s.Expect, OutcomeAccepted), outcome)
	checkAnchor(result, index, OpDock, s.Anchor, anchor)
	return nil
}

func (h *Harness) stepSynthesize(index int, s *SynthesizeStep, result *Result) {
	structures := h.kernel.ReorganizeAndSynthesize()
	result.AddTrace(TraceEvent{
		Step:       index,
		Op:         OpSynthesize,
		Outcome:    OutcomeOK,
		Anchor:     h.kernel.GetStateHash(),
		Structures: structures,
	})
	if s.Count != nil && *s.Count != len(structures) {
		result.AddError(fmt.Sprintf("step %d (synthesize): expected %d structures, got %d", index, *s.Count, len(structures)))
	}
}

func (h *Harness) stepShutdown(index int, s *ShutdownStep, result *Result) {
	ops := h.kernel.Shutdown()
	result.AddTrace(TraceEvent{
		Step:       index,
		Op:         OpShutdown,
		Outcome:    OutcomeOK,
		Anchor:     h.kernel.GetStateHash(),
		Operations: &ops,
	})
	if s.Operations != nil && *s.Operations != ops {
		result.AddError(fmt.Sprintf("step %d (shutdown): expected %d operations, got %d", index, *s.Operations, ops))
	}
}

func (h *Harness) executeClip(index int, c ClipCheck, result *Result) {
	bounds := make([]envelope.Bounds, len(c.Bounds))
	for i, b := range c.Bounds {
		bounds[i] = envelope.NewBounds(b[0], b[1], b[2], b[3])
	}

	res := envelope.Clip(envelope.Action(c.Action), bounds)
	result.AddTrace(TraceEvent{Step: index, Op: OpClip, Name: c.Name, Outcome: res.Worst().String(), Clip: &res})

	if c.Expect.Clamped != nil && !floatsEqual(c.Expect.Clamped, res.Clamped) {
		result.AddError(fmt.Sprintf("clip %q: expected clamped %v, got %v", c.Name, c.Expect.Clamped, []float64(res.Clamped)))
	}
	if c.Expect.Violations != nil {
		got := violationNames(res)
		if !slices.Equal(c.Expect.Violations, got) {
			result.AddError(fmt.Sprintf("clip %q: expected violations %v, got %v", c.Name, c.Expect.Violations, got))
		}
	}
	if c.Expect.Safe != nil && *c.Expect.Safe != res.Safe {
		result.AddError(fmt.Sprintf("clip %q: expected safe=%t, got %t", c.Name, *c.Expect.Safe, res.Safe))
	}
}

// journal appends rec with the next seq and the live anchor.
func (h *Harness) journal(ctx context.Context, rec ir.JournalRecord) error {
	if h.session == "" {
		return fmt.Errorf("journal: no session")
	}
	rec.SessionID = h.session
	rec.Seq = h.clock.Next()
	rec.Anchor = h.kernel.GetStateHash()
	return h.store.AppendRecord(ctx, rec)
}

func checkOutcome(result *Result, index int, op, want, got string) {
	if want != got {
		result.AddError(fmt.Sprintf("step %d (%s): expected %s, got %s", index, op, want, got))
	}
}

func checkAnchor(result *Result, index int, op, want, got string) {
	if want != "" && want != got {
		result.AddError(fmt.Sprintf("step %d (%s): expected anchor %s, got %s", index, op, want, got))
	}
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func toBytes(vals []int) ([]byte, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	out := make([]byte, len(vals))
	for i, v := range vals {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("byte %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	return out, nil
}

func violationNames(res envelope.Result) []string {
	names := make([]string, len(res.Stats))
	for i, s := range res.Stats {
		names[i] = s.Violation.String()
	}
	return names
}

// floatsEqual compares element-wise; NaN equals NaN.
func floatsEqual(a, b []float64) bool {
	return slices.EqualFunc(a, b, func(x, y float64) bool {
		return x == y || (math.IsNaN(x) && math.IsNaN(y))
	})
}
