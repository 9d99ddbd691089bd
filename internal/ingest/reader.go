package ingest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// DefaultMaxLineBytes bounds a single record line.
const DefaultMaxLineBytes = 1 << 20

// Stats counts what a Reader has consumed so far.
type Stats struct {
	Lines   int `json:"lines"`   // lines read, blank ones included
	Records int `json:"records"` // records returned
	Skipped int `json:"skipped"` // malformed or oversized lines
}

// Option configures a Reader.
type Option func(*Reader)

// WithMaxLineBytes sets the longest accepted line. Longer lines are skipped
// and reported as parse errors. Values below 64 are raised to 64.
func WithMaxLineBytes(n int) Option {
	return func(r *Reader) {
		r.maxLine = max(n, 64)
	}
}

// WithErrorHandler registers fn to observe every skipped line.
func WithErrorHandler(fn func(*ParseError)) Option {
	return func(r *Reader) {
		r.onError = fn
	}
}

// Reader streams records from newline-delimited JSON.
//
// Malformed lines are logged, passed to the error handler and skipped.
// Only I/O errors from the underlying reader end the stream early.
type Reader struct {
	br      *bufio.Reader
	maxLine int
	onError func(*ParseError)

	line  int
	stats Stats
	done  bool
}

// NewReader creates a Reader over src.
func NewReader(src io.Reader, opts ...Option) *Reader {
	r := &Reader{maxLine: DefaultMaxLineBytes}
	for _, opt := range opts {
		opt(r)
	}
	r.br = bufio.NewReaderSize(src, r.maxLine)
	return r
}

// Next returns the next well-formed record, or io.EOF once the stream is
// exhausted.
func (r *Reader) Next() (Record, error) {
	for {
		if r.done {
			return Record{}, io.EOF
		}

		line, err := r.readLine()
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				r.skip(pe)
				continue
			}
			r.done = true
			if errors.Is(err, io.EOF) {
				return Record{}, io.EOF
			}
			return Record{}, fmt.Errorf("read line %d: %w", r.line, err)
		}

		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		rec, err := ParseLine(line)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Line = r.line
				r.skip(pe)
				continue
			}
			return Record{}, err
		}

		rec.Line = r.line
		r.stats.Records++
		return rec, nil
	}
}

// Scan calls emit for every record until EOF, a read error, an emit error or
// ctx cancellation. Reaching EOF returns nil.
func (r *Reader) Scan(ctx context.Context, emit func(Record) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
}

// Stats returns the counters accumulated so far.
func (r *Reader) Stats() Stats {
	return r.stats
}

// readLine returns the next line without its terminator. A line longer than
// maxLine is drained and returned as a *ParseError. A final line without a
// newline is returned before io.EOF.
func (r *Reader) readLine() ([]byte, error) {
	data, err := r.br.ReadSlice('\n')
	if len(data) > 0 || err == nil {
		r.line++
		r.stats.Lines++
	}

	switch {
	case err == nil:
		return bytes.TrimRight(data, "\r\n"), nil
	case errors.Is(err, bufio.ErrBufferFull):
		if derr := r.drainLine(); derr != nil && !errors.Is(derr, io.EOF) {
			return nil, derr
		}
		return nil, &ParseError{Line: r.line, Reason: fmt.Sprintf("line exceeds %d bytes", r.maxLine)}
	case errors.Is(err, io.EOF) && len(data) > 0:
		return bytes.TrimRight(data, "\r"), nil
	default:
		return nil, err
	}
}

// drainLine discards the remainder of an oversized line.
func (r *Reader) drainLine() error {
	for {
		_, err := r.br.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

func (r *Reader) skip(pe *ParseError) {
	r.stats.Skipped++
	slog.Warn("skipping malformed record", "line", pe.Line, "reason", pe.Reason)
	if r.onError != nil {
		r.onError(pe)
	}
}
