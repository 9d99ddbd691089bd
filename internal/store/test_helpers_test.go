package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/qube/internal/ir"
)

// createTestStore opens a fresh journal in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestSession(id, seed string) ir.Session {
	return ir.Session{
		ID:            id,
		Seed:          seed,
		KernelVersion: ir.KernelVersion,
		HashVersion:   ir.HashVersion,
	}
}

func executeRecord(sessionID string, seq int64, unit ir.TransitionUnit, accepted bool, anchor string) ir.JournalRecord {
	return ir.JournalRecord{
		SessionID: sessionID,
		Seq:       seq,
		Kind:      ir.AuditExecute,
		Unit:      unit,
		Accepted:  accepted,
		Anchor:    anchor,
	}
}

func dockRecord(sessionID string, seq int64, patternID string, data []byte, anchor string) ir.JournalRecord {
	return ir.JournalRecord{
		SessionID: sessionID,
		Seq:       seq,
		Kind:      ir.AuditDock,
		PatternID: patternID,
		Data:      data,
		Accepted:  true,
		Anchor:    anchor,
	}
}
