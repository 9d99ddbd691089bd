package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/roach88/qube/internal/ir"
)

// Kind distinguishes the two record shapes.
type Kind int

const (
	KindUnit Kind = iota
	KindDock
)

// String returns "unit" or "dock".
func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindDock:
		return "dock"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Record is one decoded line.
type Record struct {
	Kind Kind

	// Line is the 1-based line number in the stream, 0 when parsed standalone.
	Line int

	// Unit is set when Kind is KindUnit.
	Unit ir.TransitionUnit

	// PatternID and Data are set when Kind is KindDock.
	PatternID string
	Data      []byte
}

// ParseError reports a line that could not be decoded.
type ParseError struct {
	Line   int
	Reason string
	Err    error // underlying decoder error, may be nil
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return e.Reason
}

// Unwrap returns the underlying decoder error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// wireRecord is the union of both record shapes. Pointers separate "absent"
// from "zero" for required fields.
type wireRecord struct {
	Timestamp    *uint64 `json:"timestamp"`
	SequenceID   *uint64 `json:"sequence_id"`
	PreviousHash *string `json:"previous_hash"`
	CurrentHash  *string `json:"current_hash"`
	Payload      []int   `json:"payload"`

	PatternID *string `json:"pattern_id"`
	Data      []int   `json:"data"`
}

func (w *wireRecord) hasUnitFields() bool {
	return w.Timestamp != nil || w.SequenceID != nil || w.PreviousHash != nil ||
		w.CurrentHash != nil || w.Payload != nil
}

// ParseLine decodes one record. Leading and trailing whitespace is ignored.
// The returned record does not alias line.
func ParseLine(line []byte) (Record, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Record{}, &ParseError{Reason: "empty line"}
	}
	if !utf8.Valid(line) {
		return Record{}, &ParseError{Reason: "line is not valid UTF-8", Err: ir.ErrInvalidUTF8}
	}

	dec := json.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()

	var w wireRecord
	if err := dec.Decode(&w); err != nil {
		return Record{}, &ParseError{Reason: fmt.Sprintf("invalid record: %v", err), Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Record{}, &ParseError{Reason: "trailing data after record"}
	}

	if w.PatternID != nil {
		return parseDock(&w)
	}
	return parseUnit(&w)
}

func parseUnit(w *wireRecord) (Record, error) {
	if w.Data != nil {
		return Record{}, &ParseError{Reason: `"data" requires "pattern_id"`}
	}

	switch {
	case w.SequenceID == nil:
		return Record{}, &ParseError{Reason: `missing required field "sequence_id"`}
	case w.PreviousHash == nil:
		return Record{}, &ParseError{Reason: `missing required field "previous_hash"`}
	case w.CurrentHash == nil:
		return Record{}, &ParseError{Reason: `missing required field "current_hash"`}
	}

	if err := checkString("previous_hash", *w.PreviousHash); err != nil {
		return Record{}, err
	}
	if err := checkString("current_hash", *w.CurrentHash); err != nil {
		return Record{}, err
	}

	payload, err := toBytes("payload", w.Payload)
	if err != nil {
		return Record{}, err
	}

	unit := ir.TransitionUnit{
		SequenceID:   *w.SequenceID,
		PreviousHash: *w.PreviousHash,
		CurrentHash:  *w.CurrentHash,
		Payload:      payload,
	}
	if w.Timestamp != nil {
		unit.Timestamp = *w.Timestamp
	}

	return Record{Kind: KindUnit, Unit: unit}, nil
}

func parseDock(w *wireRecord) (Record, error) {
	if w.hasUnitFields() {
		return Record{}, &ParseError{Reason: "record mixes dock and unit fields"}
	}

	if err := checkString("pattern_id", *w.PatternID); err != nil {
		return Record{}, err
	}

	data, err := toBytes("data", w.Data)
	if err != nil {
		return Record{}, err
	}

	return Record{Kind: KindDock, PatternID: *w.PatternID, Data: data}, nil
}

// checkString rejects values the anchor hash would refuse, so they surface as
// skipped lines rather than kernel errors.
func checkString(field, s string) error {
	if err := ir.CheckString(s); err != nil {
		return &ParseError{Reason: fmt.Sprintf("%s: %v", field, err), Err: err}
	}
	return nil
}

func toBytes(field string, vals []int) ([]byte, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	out := make([]byte, len(vals))
	for i, v := range vals {
		if v < 0 || v > 255 {
			return nil, &ParseError{Reason: fmt.Sprintf("%s[%d]: %d is not a byte", field, i, v)}
		}
		out[i] = byte(v)
	}
	return out, nil
}
