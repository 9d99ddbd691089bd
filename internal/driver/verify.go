package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/qube/internal/ir"
	"github.com/roach88/qube/internal/kernel"
)

// SessionReader loads a journaled session. *store.Store implements it.
type SessionReader interface {
	ReadSession(ctx context.Context, id string) (ir.Session, error)
	ReadRecords(ctx context.Context, sessionID string) ([]ir.JournalRecord, error)
}

// Mismatch is one disagreement found by Verify.
type Mismatch struct {
	Seq   int64  `json:"seq"`
	Field string `json:"field"` // "accepted", "anchor" or "replica"
	Want  string `json:"want"`
	Got   string `json:"got"`
}

// Report is the outcome of Verify.
type Report struct {
	SessionID   string     `json:"session_id,omitempty"`
	Records     int        `json:"records"`
	FinalAnchor string     `json:"final_anchor"`
	Mismatches  []Mismatch `json:"mismatches"`
}

// OK reports whether the replay matched the journal exactly.
func (r Report) OK() bool {
	return len(r.Mismatches) == 0
}

// ErrHashVersion is returned when a session was journaled under a different
// hash version; its anchors cannot be reproduced.
var ErrHashVersion = errors.New("session hash version does not match")

// Verify replays records into two fresh kernels seeded with seed.
//
// For every record it checks that both kernels agree with each other and
// with the journaled outcome and anchor. Disagreements are collected in the
// Report rather than returned as errors; an error means the replay itself
// could not run.
func Verify(ctx context.Context, seed string, records []ir.JournalRecord) (Report, error) {
	primary, replica := kernel.New(), kernel.New()
	for _, k := range []*kernel.Kernel{primary, replica} {
		if err := k.Initialize(seed); err != nil {
			return Report{}, fmt.Errorf("initialize replay kernel: %w", err)
		}
	}

	report := Report{Records: len(records), Mismatches: []Mismatch{}}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		accepted, err := replay(primary, rec)
		if err != nil {
			return report, fmt.Errorf("replay record %d: %w", rec.Seq, err)
		}
		replicaAccepted, err := replay(replica, rec)
		if err != nil {
			return report, fmt.Errorf("replay record %d on replica: %w", rec.Seq, err)
		}

		anchor := primary.GetStateHash()
		if accepted != rec.Accepted {
			report.Mismatches = append(report.Mismatches, Mismatch{
				Seq: rec.Seq, Field: "accepted",
				Want: fmt.Sprint(rec.Accepted), Got: fmt.Sprint(accepted),
			})
		}
		if anchor != rec.Anchor {
			report.Mismatches = append(report.Mismatches, Mismatch{
				Seq: rec.Seq, Field: "anchor", Want: rec.Anchor, Got: anchor,
			})
		}
		if accepted != replicaAccepted || anchor != replica.GetStateHash() {
			report.Mismatches = append(report.Mismatches, Mismatch{
				Seq: rec.Seq, Field: "replica", Want: anchor, Got: replica.GetStateHash(),
			})
		}
	}

	primary.Shutdown()
	replica.Shutdown()
	report.FinalAnchor = primary.GetStateHash()
	return report, nil
}

// VerifySession loads a session from r and verifies it.
func VerifySession(ctx context.Context, r SessionReader, sessionID string) (Report, error) {
	sess, err := r.ReadSession(ctx, sessionID)
	if err != nil {
		return Report{}, err
	}
	if sess.HashVersion != ir.HashVersion {
		return Report{}, fmt.Errorf("%w: session %s uses %q, kernel uses %q",
			ErrHashVersion, sessionID, sess.HashVersion, ir.HashVersion)
	}

	records, err := r.ReadRecords(ctx, sessionID)
	if err != nil {
		return Report{}, err
	}

	report, err := Verify(ctx, sess.Seed, records)
	report.SessionID = sessionID
	if err != nil {
		return report, err
	}

	slog.Info("session verified",
		"session", sessionID,
		"records", report.Records,
		"mismatches", len(report.Mismatches))
	return report, nil
}

// replay applies one journal record. Chain-integrity rejections are an
// outcome, not an error.
func replay(k *kernel.Kernel, rec ir.JournalRecord) (bool, error) {
	switch rec.Kind {
	case ir.AuditExecute:
		err := k.Execute(rec.Unit)
		if kernel.IsIntegrityError(err) {
			return false, nil
		}
		return err == nil, err
	case ir.AuditDock:
		return true, k.DockPattern(rec.PatternID, rec.Data)
	default:
		return false, fmt.Errorf("unknown record kind %q", rec.Kind)
	}
}
