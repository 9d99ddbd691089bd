package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/qube/internal/ir"
)

// ErrSessionNotFound is returned when a session ID is not in the journal.
var ErrSessionNotFound = errors.New("session not found")

// ReadSession returns the session with the given ID.
func (s *Store) ReadSession(ctx context.Context, id string) (ir.Session, error) {
	var sess ir.Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, seed, kernel_version, hash_version
		FROM sessions
		WHERE id = ?
	`, id).Scan(&sess.ID, &sess.Seed, &sess.KernelVersion, &sess.HashVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Session{}, fmt.Errorf("read session %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return ir.Session{}, fmt.Errorf("read session %s: %w", id, err)
	}
	return sess, nil
}

// ListSessions returns all sessions ordered by ID. UUIDv7 IDs make this
// creation order.
//
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) ListSessions(ctx context.Context) ([]ir.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seed, kernel_version, hash_version
		FROM sessions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []ir.Session{}
	for rows.Next() {
		var sess ir.Session
		if err := rows.Scan(&sess.ID, &sess.Seed, &sess.KernelVersion, &sess.HashVersion); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadRecords returns every record of a session in seq order.
//
// Returns an empty slice (not nil) if the session has no records.
func (s *Store) ReadRecords(ctx context.Context, sessionID string) ([]ir.JournalRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, kind, timestamp, sequence_id, previous_hash, current_hash, pattern_id, payload, accepted, anchor
		FROM records
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []ir.JournalRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (ir.JournalRecord, error) {
	var (
		rec                   ir.JournalRecord
		kind                  string
		timestamp, sequenceID string
		previousHash          string
		currentHash           string
		payload               []byte
		accepted              int
	)
	err := rows.Scan(
		&rec.SessionID,
		&rec.Seq,
		&kind,
		&timestamp,
		&sequenceID,
		&previousHash,
		&currentHash,
		&rec.PatternID,
		&payload,
		&accepted,
		&rec.Anchor,
	)
	if err != nil {
		return ir.JournalRecord{}, fmt.Errorf("scan record: %w", err)
	}

	rec.Kind = ir.AuditKind(kind)
	rec.Accepted = accepted != 0
	if len(payload) == 0 {
		payload = nil // empty and NULL blobs both read back as nil
	}

	switch rec.Kind {
	case ir.AuditExecute:
		ts, err := parseUint64("timestamp", timestamp)
		if err != nil {
			return ir.JournalRecord{}, err
		}
		seq, err := parseUint64("sequence_id", sequenceID)
		if err != nil {
			return ir.JournalRecord{}, err
		}
		rec.Unit = ir.TransitionUnit{
			Timestamp:    ts,
			SequenceID:   seq,
			PreviousHash: previousHash,
			CurrentHash:  currentHash,
			Payload:      payload,
		}
	case ir.AuditDock:
		rec.Data = payload
	default:
		return ir.JournalRecord{}, fmt.Errorf("scan record: unknown kind %q", kind)
	}

	return rec, nil
}
