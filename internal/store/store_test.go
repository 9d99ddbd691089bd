package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pragma(t *testing.T, s *Store, name string) string {
	t.Helper()
	var value string
	require.NoError(t, s.db.QueryRow("PRAGMA "+name).Scan(&value))
	return value
}

func TestOpen_CreatesJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)

	v, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.WriteSession(ctx, createTestSession("s1", "G")))
	require.NoError(t, s.Close())

	for i := 0; i < 2; i++ {
		s, err = Open(path)
		require.NoError(t, err)
		sessions, err := s.ListSessions(ctx)
		require.NoError(t, err)
		assert.Len(t, sessions, 1)
		require.NoError(t, s.Close())
	}
}

func TestOpen_MustExist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")

	_, err := Open(path, MustExist())
	require.ErrorIs(t, err, ErrJournalNotFound)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "MustExist must not create the file")

	s, err := Open(":memory:", MustExist())
	require.NoError(t, err)
	s.Close()
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/journal.db")
	assert.Error(t, err)
}

func TestOpen_NewerSchemaRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	assert.ErrorContains(t, err, "newer than supported")
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	assert.Equal(t, "wal", pragma(t, s, "journal_mode"))
	assert.Equal(t, "1", pragma(t, s, "synchronous")) // NORMAL
	assert.Equal(t, "5000", pragma(t, s, "busy_timeout"))
	assert.Equal(t, "1", pragma(t, s, "foreign_keys"))
}

func TestWithBusyTimeout(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"), WithBusyTimeout(250*time.Millisecond))
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "250", pragma(t, s, "busy_timeout"))
}

func TestMigration_IndexExists(t *testing.T) {
	s := createTestStore(t)

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_records_session_kind'",
	).Scan(&name)
	require.NoError(t, err)
}
