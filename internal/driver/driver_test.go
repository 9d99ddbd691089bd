package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qube/internal/ir"
	"github.com/roach88/qube/internal/kernel"
	"github.com/roach88/qube/internal/store"
	"github.com/roach88/qube/internal/testutil"
)

const (
	anchorH1   = "5388c745e1c52fa4383ecf7fd7c0bf68407f1c21c43872f939691104d36e3943"
	anchorDock = "b8babeba590b2c8cd1b2f20c68ad951478497a2d491d45f19e4deb05a99db7ef"
)

const input = `{"timestamp":1,"sequence_id":1,"previous_hash":"G","current_hash":"A"}
{"timestamp":2,"sequence_id":2,"previous_hash":"G","current_hash":"B"}
this is not a record

{"pattern_id":"PATTERN_CLUST_SOAK_01","data":[1,2,3,4,5,6]}
`

// memJournal is an in-memory Journal.
type memJournal struct {
	sessions []ir.Session
	records  []ir.JournalRecord
	failAt   int // fail the n-th AppendRecord (1-based); 0 never fails
}

func (m *memJournal) WriteSession(_ context.Context, sess ir.Session) error {
	m.sessions = append(m.sessions, sess)
	return nil
}

func (m *memJournal) AppendRecord(_ context.Context, rec ir.JournalRecord) error {
	if m.failAt > 0 && len(m.records)+1 == m.failAt {
		return errors.New("disk full")
	}
	m.records = append(m.records, rec)
	return nil
}

func decodeEvents(t *testing.T, out *bytes.Buffer) []Event {
	t.Helper()
	var events []Event
	dec := json.NewDecoder(out)
	for {
		var ev Event
		err := dec.Decode(&ev)
		if errors.Is(err, io.EOF) {
			return events
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
}

func TestRun_Events(t *testing.T) {
	var out bytes.Buffer
	d := New("G", &out)

	stats, err := d.Run(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, Stats{
		Accepted:    1,
		Rejected:    1,
		Docked:      1,
		Skipped:     1,
		Operations:  1,
		FinalAnchor: anchorDock,
	}, stats)

	events := decodeEvents(t, &out)
	require.Len(t, events, 4)

	assert.Equal(t, EventAck, events[0].Type)
	assert.Equal(t, 1, events[0].Line)
	require.NotNil(t, events[0].SequenceID)
	assert.Equal(t, uint64(1), *events[0].SequenceID)
	assert.Equal(t, anchorH1, events[0].Anchor)

	assert.Equal(t, EventNack, events[1].Type)
	assert.Equal(t, anchorH1, events[1].Expected)
	assert.Equal(t, "G", events[1].Got)
	assert.Empty(t, events[1].Anchor)

	assert.Equal(t, EventSkip, events[2].Type)
	assert.Equal(t, 3, events[2].Line)
	assert.NotEmpty(t, events[2].Reason)

	assert.Equal(t, EventDock, events[3].Type)
	assert.Equal(t, 5, events[3].Line)
	assert.Equal(t, "PATTERN_CLUST_SOAK_01", events[3].PatternID)
	assert.Equal(t, anchorDock, events[3].Anchor)
}

func TestRun_DefaultSeed(t *testing.T) {
	var out bytes.Buffer
	stats, err := New("", &out).Run(context.Background(), strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, DefaultSeed, stats.FinalAnchor)
	assert.Zero(t, stats.Operations)
	assert.Empty(t, out.String())
}

func TestRun_SynthesizeEvery(t *testing.T) {
	var out bytes.Buffer
	d := New("G", &out, WithSynthesizeEvery(1))

	stats, err := d.Run(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Synthesized, "only accepted units trigger synthesis")

	events := decodeEvents(t, &out)
	require.Len(t, events, 5)
	assert.Equal(t, EventAck, events[0].Type)
	assert.Equal(t, EventSynth, events[1].Type)
	assert.Equal(t, anchorH1, events[1].Anchor)
	assert.Equal(t, kernel.Synthesize(anchorH1), events[1].Structures)
}

func TestRun_Journal(t *testing.T) {
	var out bytes.Buffer
	j := &memJournal{}
	d := New("G", &out, WithJournal(j, NewFixedGenerator("session-1")))

	stats, err := d.Run(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "session-1", stats.SessionID)

	require.Len(t, j.sessions, 1)
	assert.Equal(t, ir.Session{
		ID:            "session-1",
		Seed:          "G",
		KernelVersion: ir.KernelVersion,
		HashVersion:   ir.HashVersion,
	}, j.sessions[0])

	require.Len(t, j.records, 3, "skipped lines are not kernel calls")
	assert.Equal(t, int64(1), j.records[0].Seq)
	assert.True(t, j.records[0].Accepted)
	assert.Equal(t, anchorH1, j.records[0].Anchor)

	assert.Equal(t, int64(2), j.records[1].Seq)
	assert.False(t, j.records[1].Accepted)
	assert.Equal(t, anchorH1, j.records[1].Anchor, "rejection leaves the anchor")

	assert.Equal(t, ir.AuditDock, j.records[2].Kind)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, j.records[2].Data)
	assert.Equal(t, anchorDock, j.records[2].Anchor)

	for _, rec := range j.records {
		assert.Equal(t, "session-1", rec.SessionID)
	}
}

func TestRun_JournalFailureStopsRun(t *testing.T) {
	var out bytes.Buffer
	j := &memJournal{failAt: 2}
	d := New("G", &out, WithJournal(j, NewFixedGenerator("s")))

	stats, err := d.Run(context.Background(), strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, stats.Rejected)
	assert.Zero(t, stats.Docked, "no records after the failure")
	assert.Equal(t, uint64(1), stats.Operations, "kernel is still shut down")
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	stats, err := New("G", &out).Run(ctx, strings.NewReader(input))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Accepted)
	assert.Equal(t, "G", stats.FinalAnchor)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestRun_WriteErrorStopsRun(t *testing.T) {
	_, err := New("G", failingWriter{}).Run(context.Background(), strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
}

func TestRun_Twice(t *testing.T) {
	d := New("G", io.Discard)
	_, err := d.Run(context.Background(), strings.NewReader(""))
	require.NoError(t, err)

	_, err = d.Run(context.Background(), strings.NewReader(""))
	assert.Error(t, err)
}

func TestRun_WithStore(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	d := New("G", io.Discard, WithJournal(s, NewFixedGenerator("0192a000-0000-7000-8000-000000000001")))
	stats, err := d.Run(ctx, strings.NewReader(input))
	require.NoError(t, err)

	state, err := s.GetSessionState(ctx, stats.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Accepted)
	assert.Equal(t, 1, state.Rejected)
	assert.Equal(t, 1, state.Docks)
	assert.Equal(t, stats.FinalAnchor, state.FinalAnchor)

	report, err := VerifySession(ctx, s, stats.SessionID)
	require.NoError(t, err)
	assert.True(t, report.OK(), "mismatches: %v", report.Mismatches)
	assert.Equal(t, 3, report.Records)
	assert.Equal(t, stats.FinalAnchor, report.FinalAnchor)
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()

	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Equal(t, byte('7'), a[14], "version nibble")
}

func TestFixedGenerator_Exhausted(t *testing.T) {
	gen := NewFixedGenerator("only")
	assert.Equal(t, "only", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestClock(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}

func TestRun_LongChain(t *testing.T) {
	chain := testutil.NewChain("G")
	var lines []string
	for i := 0; i < 50; i++ {
		lines = append(lines, testutil.UnitLine(chain.Next("X", byte(i))))
		if i%10 == 9 {
			lines = append(lines, testutil.UnitLine(chain.Stale("G", "late")))
			data := []byte{byte(i)}
			chain.Dock("P", data)
			lines = append(lines, testutil.DockLine("P", data))
		}
	}

	j := &memJournal{}
	stats, err := New("G", io.Discard, WithJournal(j, nil)).Run(context.Background(), strings.NewReader(testutil.Lines(lines...)))
	require.NoError(t, err)

	assert.Equal(t, 50, stats.Accepted)
	assert.Equal(t, 5, stats.Rejected)
	assert.Equal(t, 5, stats.Docked)
	assert.Equal(t, uint64(50), stats.Operations)
	assert.Equal(t, chain.Anchor(), stats.FinalAnchor)
	assert.Len(t, stats.SessionID, 36, "nil generator means UUIDv7")

	report, err := Verify(context.Background(), "G", j.records)
	require.NoError(t, err)
	assert.True(t, report.OK(), "mismatches: %v", report.Mismatches)
}
