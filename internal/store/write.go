package store

import (
	"context"
	"fmt"

	"github.com/roach88/qube/internal/ir"
)

// WriteSession inserts a session record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteSession(ctx context.Context, sess ir.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, seed, kernel_version, hash_version)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.Seed,
		sess.KernelVersion,
		sess.HashVersion,
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// AppendRecord inserts one journal record.
// Uses ON CONFLICT(session_id, seq) DO NOTHING so a retried write is harmless.
//
// Note: The session referenced by SessionID must exist (foreign key constraint).
func (s *Store) AppendRecord(ctx context.Context, rec ir.JournalRecord) error {
	payload, err := recordPayload(rec)
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records
		(session_id, seq, kind, timestamp, sequence_id, previous_hash, current_hash, pattern_id, payload, accepted, anchor)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`,
		rec.SessionID,
		rec.Seq,
		string(rec.Kind),
		formatUint64(rec.Unit.Timestamp),
		formatUint64(rec.Unit.SequenceID),
		rec.Unit.PreviousHash,
		rec.Unit.CurrentHash,
		rec.PatternID,
		payload,
		boolToInt(rec.Accepted),
		rec.Anchor,
	)
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}
