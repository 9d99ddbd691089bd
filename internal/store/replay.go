package store

import (
	"context"
	"fmt"

	"github.com/roach88/qube/internal/ir"
)

// SessionState summarizes a journaled session.
type SessionState struct {
	Session     ir.Session
	Records     []ir.JournalRecord
	LastSeq     int64
	Accepted    int    // execute records the kernel accepted
	Rejected    int    // execute records the kernel rejected
	Docks       int    // dock records
	FinalAnchor string // anchor after the last record, or the seed if there are none
}

// GetSessionState loads a session and all of its records and tallies them.
func (s *Store) GetSessionState(ctx context.Context, sessionID string) (SessionState, error) {
	sess, err := s.ReadSession(ctx, sessionID)
	if err != nil {
		return SessionState{}, fmt.Errorf("get session state: %w", err)
	}

	records, err := s.ReadRecords(ctx, sessionID)
	if err != nil {
		return SessionState{}, fmt.Errorf("get session state: %w", err)
	}

	state := SessionState{
		Session:     sess,
		Records:     records,
		FinalAnchor: sess.Seed,
	}
	for _, rec := range records {
		switch {
		case rec.Kind == ir.AuditDock:
			state.Docks++
		case rec.Accepted:
			state.Accepted++
		default:
			state.Rejected++
		}
		state.LastSeq = rec.Seq
		state.FinalAnchor = rec.Anchor
	}

	return state, nil
}

// CountRecords returns the number of records of each kind in a session.
func (s *Store) CountRecords(ctx context.Context, sessionID string) (map[ir.AuditKind]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*)
		FROM records
		WHERE session_id = ?
		GROUP BY kind
		ORDER BY kind ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	defer rows.Close()

	counts := make(map[ir.AuditKind]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[ir.AuditKind(kind)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}
