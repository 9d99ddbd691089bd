package driver

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qube/internal/ir"
	"github.com/roach88/qube/internal/kernel"
)

func journalFor(t *testing.T, seed, in string) []ir.JournalRecord {
	t.Helper()
	j := &memJournal{}
	_, err := New(seed, io.Discard, WithJournal(j, NewFixedGenerator("s"))).Run(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	return j.records
}

func TestVerify_Clean(t *testing.T) {
	records := journalFor(t, "G", input)

	report, err := Verify(context.Background(), "G", records)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 3, report.Records)
	assert.Equal(t, anchorDock, report.FinalAnchor)
}

func TestVerify_Empty(t *testing.T) {
	report, err := Verify(context.Background(), "G", nil)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, "G", report.FinalAnchor)
	assert.NotNil(t, report.Mismatches)
}

func TestVerify_TamperedAnchor(t *testing.T) {
	records := journalFor(t, "G", input)
	records[0].Anchor = "forged"

	report, err := Verify(context.Background(), "G", records)
	require.NoError(t, err)
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, Mismatch{Seq: 1, Field: "anchor", Want: "forged", Got: anchorH1}, report.Mismatches[0])
	assert.False(t, report.OK())
}

func TestVerify_TamperedOutcome(t *testing.T) {
	records := journalFor(t, "G", input)
	records[1].Accepted = true

	report, err := Verify(context.Background(), "G", records)
	require.NoError(t, err)
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, "accepted", report.Mismatches[0].Field)
	assert.Equal(t, int64(2), report.Mismatches[0].Seq)
}

func TestVerify_WrongSeed(t *testing.T) {
	records := journalFor(t, "G", input)

	report, err := Verify(context.Background(), "not-G", records)
	require.NoError(t, err)
	assert.False(t, report.OK())
	// The first unit is rejected and every later anchor differs.
	assert.Equal(t, "accepted", report.Mismatches[0].Field)
}

func TestVerify_InvalidSeed(t *testing.T) {
	records := journalFor(t, "G", input)

	for _, seed := range []string{"\xff", "\xfe"} {
		_, err := Verify(context.Background(), seed, records)
		require.Error(t, err)
		assert.ErrorContains(t, err, "initialize replay kernel")
		assert.True(t, kernel.IsUsageError(err))
	}
}

func TestVerify_UnknownKind(t *testing.T) {
	_, err := Verify(context.Background(), "G", []ir.JournalRecord{{Seq: 1, Kind: "warp"}})
	assert.ErrorContains(t, err, "unknown record kind")
}

func TestVerify_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Verify(ctx, "G", journalFor(t, "G", input))
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeReader struct {
	sess    ir.Session
	records []ir.JournalRecord
}

func (f fakeReader) ReadSession(context.Context, string) (ir.Session, error) {
	return f.sess, nil
}

func (f fakeReader) ReadRecords(context.Context, string) ([]ir.JournalRecord, error) {
	return f.records, nil
}

func TestVerifySession_HashVersion(t *testing.T) {
	r := fakeReader{sess: ir.Session{ID: "s", Seed: "G", HashVersion: "v0"}}

	_, err := VerifySession(context.Background(), r, "s")
	assert.ErrorIs(t, err, ErrHashVersion)
}

func TestVerifySession_Fake(t *testing.T) {
	r := fakeReader{
		sess:    ir.Session{ID: "s", Seed: "G", HashVersion: ir.HashVersion},
		records: journalFor(t, "G", input),
	}

	report, err := VerifySession(context.Background(), r, "s")
	require.NoError(t, err)
	assert.Equal(t, "s", report.SessionID)
	assert.True(t, report.OK())
}
