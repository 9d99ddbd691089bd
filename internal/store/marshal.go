package store

import (
	"fmt"
	"strconv"

	"github.com/roach88/qube/internal/ir"
)

// formatUint64 encodes v as decimal TEXT. SQLite integers are signed, so
// values above MaxInt64 would not survive an INTEGER column.
func formatUint64(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// parseUint64 decodes a column written by formatUint64.
func parseUint64(column, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", column, err)
	}
	return v, nil
}

// recordPayload returns the BLOB stored for rec: the unit payload for an
// execute, the pattern data for a dock.
func recordPayload(rec ir.JournalRecord) ([]byte, error) {
	switch rec.Kind {
	case ir.AuditExecute:
		return rec.Unit.Payload, nil
	case ir.AuditDock:
		return rec.Data, nil
	default:
		return nil, fmt.Errorf("unknown record kind %q", rec.Kind)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
