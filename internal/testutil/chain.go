// Package testutil builds hash-linked transition units for tests.
package testutil

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/roach88/qube/internal/ir"
)

// Chain tracks the anchor a kernel seeded with the same seed would hold and
// produces units that link to it.
//
// Sequence ids and timestamps start at 1 and increase with every unit,
// accepted or stale, so a Chain replays identically across runs.
//
// Thread-safety: all methods are safe for concurrent use.
type Chain struct {
	mu     sync.Mutex
	anchor string
	seq    uint64
}

// NewChain creates a chain whose anchor is seed.
func NewChain(seed string) *Chain {
	return &Chain{anchor: seed}
}

// Anchor returns the anchor the kernel should hold after every unit produced
// by Next and every Dock so far.
func (c *Chain) Anchor() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.anchor
}

// Next returns a unit linked to the current anchor and advances the anchor
// as the kernel would on acceptance.
func (c *Chain) Next(currentHash string, payload ...byte) ir.TransitionUnit {
	c.mu.Lock()
	defer c.mu.Unlock()

	u := c.unit(c.anchor, currentHash, payload)
	c.anchor = ir.ExecuteAnchor(c.anchor, u.SequenceID, currentHash)
	return u
}

// Stale returns a unit whose previous hash is prev. The anchor is not
// advanced; a kernel rejects the unit unless prev happens to be live.
func (c *Chain) Stale(prev, currentHash string) ir.TransitionUnit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unit(prev, currentHash, nil)
}

// Dock advances the anchor as DockPattern(patternID, data) would.
func (c *Chain) Dock(patternID string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchor = ir.DockAnchor(c.anchor, patternID, len(data))
}

func (c *Chain) unit(prev, currentHash string, payload []byte) ir.TransitionUnit {
	c.seq++
	return ir.TransitionUnit{
		Timestamp:    c.seq,
		SequenceID:   c.seq,
		PreviousHash: prev,
		CurrentHash:  currentHash,
		Payload:      payload,
	}
}

// wireUnit is the NDJSON ingestion form of a unit. Byte arrays are written
// as JSON integer arrays, not base64.
type wireUnit struct {
	Timestamp    uint64 `json:"timestamp"`
	SequenceID   uint64 `json:"sequence_id"`
	PreviousHash string `json:"previous_hash"`
	CurrentHash  string `json:"current_hash"`
	Payload      []int  `json:"payload,omitempty"`
}

type wireDock struct {
	PatternID string `json:"pattern_id"`
	Data      []int  `json:"data"`
}

// UnitLine encodes u as one ingestion line, without the trailing newline.
func UnitLine(u ir.TransitionUnit) string {
	return mustMarshal(wireUnit{
		Timestamp:    u.Timestamp,
		SequenceID:   u.SequenceID,
		PreviousHash: u.PreviousHash,
		CurrentHash:  u.CurrentHash,
		Payload:      ints(u.Payload),
	})
}

// DockLine encodes a dock record as one ingestion line.
func DockLine(patternID string, data []byte) string {
	d := ints(data)
	if d == nil {
		d = []int{}
	}
	return mustMarshal(wireDock{PatternID: patternID, Data: d})
}

// Lines joins lines into an NDJSON stream with a trailing newline.
func Lines(lines ...string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func ints(b []byte) []int {
	if b == nil {
		return nil
	}
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}

func mustMarshal(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
