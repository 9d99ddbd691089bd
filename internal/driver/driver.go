// Package driver runs a kernel over an ingestion stream.
//
// A Driver owns one kernel for the duration of Run. It reads records with
// internal/ingest, applies them in order, writes one JSON event per outcome
// and, when a Journal is attached, records every kernel call so the session
// can be replayed by Verify.
package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/qube/internal/ingest"
	"github.com/roach88/qube/internal/ir"
	"github.com/roach88/qube/internal/kernel"
)

// DefaultSeed is the seed used when none is configured.
const DefaultSeed = "SHA256:INITIAL_CONFIG_HASH"

// EventType names the outcome reported by an Event.
type EventType string

const (
	EventAck   EventType = "ack"   // transition unit accepted
	EventNack  EventType = "nack"  // transition unit rejected by the integrity check
	EventDock  EventType = "dock"  // pattern docked
	EventSynth EventType = "synth" // structures synthesized
	EventSkip  EventType = "skip"  // malformed line skipped
)

// Event is one line of driver output.
type Event struct {
	Type       EventType               `json:"type"`
	Line       int                     `json:"line,omitempty"`
	SequenceID *uint64                 `json:"sequence_id,omitempty"`
	PatternID  string                  `json:"pattern_id,omitempty"`
	Anchor     string                  `json:"anchor,omitempty"`
	Expected   string                  `json:"expected,omitempty"`
	Got        string                  `json:"got,omitempty"`
	Reason     string                  `json:"reason,omitempty"`
	Structures []ir.SyntheticStructure `json:"structures,omitempty"`
}

// Journal persists a session. *store.Store implements it.
type Journal interface {
	WriteSession(ctx context.Context, sess ir.Session) error
	AppendRecord(ctx context.Context, rec ir.JournalRecord) error
}

// Stats summarizes one Run.
type Stats struct {
	SessionID   string `json:"session_id,omitempty"`
	Accepted    int    `json:"accepted"`
	Rejected    int    `json:"rejected"`
	Docked      int    `json:"docked"`
	Skipped     int    `json:"skipped"`
	Synthesized int    `json:"synthesized"`
	Operations  uint64 `json:"operations"`
	FinalAnchor string `json:"final_anchor"`
}

// Option configures a Driver.
type Option func(*Driver)

// WithJournal records the session in j under an ID from gen. A nil gen
// means UUIDv7Generator.
func WithJournal(j Journal, gen SessionIDGenerator) Option {
	return func(d *Driver) {
		d.journal = j
		d.ids = gen
	}
}

// WithSynthesizeEvery emits a synth event after every n accepted units.
// n <= 0 disables it.
func WithSynthesizeEvery(n int) Option {
	return func(d *Driver) {
		d.synthEvery = n
	}
}

// WithMaxLineBytes bounds input lines. See ingest.WithMaxLineBytes.
func WithMaxLineBytes(n int) Option {
	return func(d *Driver) {
		d.maxLine = n
	}
}

// Driver feeds one kernel from a record stream.
//
// A Driver is single-use: Run may be called once.
type Driver struct {
	seed       string
	out        io.Writer
	journal    Journal
	ids        SessionIDGenerator
	synthEvery int
	maxLine    int

	enc      *json.Encoder
	k        *kernel.Kernel
	clock    *Clock
	session  string
	stats    Stats
	writeErr error
	ran      bool
}

// New creates a driver that seeds its kernel with seed and writes events to
// out. An empty seed means DefaultSeed.
func New(seed string, out io.Writer, opts ...Option) *Driver {
	if seed == "" {
		seed = DefaultSeed
	}
	d := &Driver{
		seed:    seed,
		out:     out,
		maxLine: ingest.DefaultMaxLineBytes,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.journal != nil && d.ids == nil {
		d.ids = UUIDv7Generator{}
	}
	return d
}

// Run initializes the kernel, applies every record from in and shuts the
// kernel down. It stops at EOF, on ctx cancellation, on an input read error,
// or when an event or journal write fails. The returned Stats are valid in
// every case.
func (d *Driver) Run(ctx context.Context, in io.Reader) (Stats, error) {
	if d.ran {
		return Stats{}, errors.New("driver: Run called twice")
	}
	d.ran = true

	d.enc = json.NewEncoder(d.out)
	d.enc.SetEscapeHTML(false)
	d.k = kernel.New()
	d.clock = NewClock()

	if err := d.k.Initialize(d.seed); err != nil {
		return d.stats, fmt.Errorf("initialize kernel: %w", err)
	}

	if d.journal != nil {
		d.session = d.ids.Generate()
		d.stats.SessionID = d.session
		err := d.journal.WriteSession(ctx, ir.Session{
			ID:            d.session,
			Seed:          d.seed,
			KernelVersion: ir.KernelVersion,
			HashVersion:   ir.HashVersion,
		})
		if err != nil {
			return d.stats, fmt.Errorf("journal session: %w", err)
		}
	}

	slog.Info("driver started", "session", d.session, "seed", d.seed)

	reader := ingest.NewReader(in,
		ingest.WithMaxLineBytes(d.maxLine),
		ingest.WithErrorHandler(d.onSkip))

	runErr := reader.Scan(ctx, func(rec ingest.Record) error {
		if err := d.apply(ctx, rec); err != nil {
			return err
		}
		return d.writeErr
	})
	if runErr == nil {
		runErr = d.writeErr
	}

	d.stats.Operations = d.k.Shutdown()
	d.stats.FinalAnchor = d.k.GetStateHash()

	slog.Info("driver finished",
		"session", d.session,
		"accepted", d.stats.Accepted,
		"rejected", d.stats.Rejected,
		"docked", d.stats.Docked,
		"skipped", d.stats.Skipped)

	return d.stats, runErr
}

func (d *Driver) apply(ctx context.Context, rec ingest.Record) error {
	switch rec.Kind {
	case ingest.KindUnit:
		return d.execute(ctx, rec)
	case ingest.KindDock:
		return d.dock(ctx, rec)
	default:
		return fmt.Errorf("line %d: unknown record kind %v", rec.Line, rec.Kind)
	}
}

func (d *Driver) execute(ctx context.Context, rec ingest.Record) error {
	unit := rec.Unit
	seqID := unit.SequenceID

	err := d.k.Execute(unit)
	var ke *kernel.KernelError
	switch {
	case err == nil:
		d.stats.Accepted++
		d.emit(Event{Type: EventAck, Line: rec.Line, SequenceID: &seqID, Anchor: d.k.GetStateHash()})
	case errors.As(err, &ke) && ke.Code == kernel.ErrCodeChainIntegrity:
		d.stats.Rejected++
		d.emit(Event{Type: EventNack, Line: rec.Line, SequenceID: &seqID, Expected: ke.Expected, Got: ke.Got})
	default:
		return fmt.Errorf("line %d: %w", rec.Line, err)
	}

	accepted := err == nil
	if err := d.record(ctx, ir.JournalRecord{
		Kind:     ir.AuditExecute,
		Unit:     unit,
		Accepted: accepted,
	}); err != nil {
		return err
	}

	if accepted && d.synthEvery > 0 && d.stats.Accepted%d.synthEvery == 0 {
		d.synthesize(rec.Line)
	}
	return nil
}

func (d *Driver) dock(ctx context.Context, rec ingest.Record) error {
	if err := d.k.DockPattern(rec.PatternID, rec.Data); err != nil {
		return fmt.Errorf("line %d: %w", rec.Line, err)
	}
	d.stats.Docked++
	d.emit(Event{Type: EventDock, Line: rec.Line, PatternID: rec.PatternID, Anchor: d.k.GetStateHash()})

	return d.record(ctx, ir.JournalRecord{
		Kind:      ir.AuditDock,
		PatternID: rec.PatternID,
		Data:      rec.Data,
		Accepted:  true,
	})
}

func (d *Driver) synthesize(line int) {
	structures := d.k.ReorganizeAndSynthesize()
	d.stats.Synthesized++
	d.emit(Event{Type: EventSynth, Line: line, Anchor: d.k.GetStateHash(), Structures: structures})
}

// record journals one kernel call. The anchor and seq are filled in here.
func (d *Driver) record(ctx context.Context, rec ir.JournalRecord) error {
	if d.journal == nil {
		return nil
	}
	rec.SessionID = d.session
	rec.Seq = d.clock.Next()
	rec.Anchor = d.k.GetStateHash()
	if err := d.journal.AppendRecord(ctx, rec); err != nil {
		return fmt.Errorf("journal record %d: %w", rec.Seq, err)
	}
	return nil
}

func (d *Driver) onSkip(pe *ingest.ParseError) {
	d.stats.Skipped++
	d.emit(Event{Type: EventSkip, Line: pe.Line, Reason: pe.Reason})
}

// emit writes ev. The first write error is kept and ends the run.
func (d *Driver) emit(ev Event) {
	if d.writeErr != nil {
		return
	}
	if err := d.enc.Encode(ev); err != nil {
		d.writeErr = fmt.Errorf("write event: %w", err)
	}
}
