// Package handle exposes kernels behind opaque integer handles.
//
// It is the Go side of the embeddable C surface in cmd/libqube: callers hold
// a Handle instead of a pointer, and every call on one handle is serialized by
// that kernel's own mutex. Calls on different handles run in parallel.
package handle

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/qube/internal/ir"
	"github.com/roach88/qube/internal/kernel"
)

// Handle identifies a kernel in a Registry. The zero Handle is never issued.
type Handle uint64

// ErrUnknownHandle is returned for handles that were never created or have
// been destroyed.
var ErrUnknownHandle = errors.New("unknown kernel handle")

// entry owns one kernel. mu is held for the full duration of every call.
type entry struct {
	mu sync.Mutex
	k  *kernel.Kernel
}

// Registry maps handles to kernels.
// Thread-safe: may be called from any goroutine.
type Registry struct {
	mu      sync.RWMutex
	next    Handle
	entries map[Handle]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Handle]*entry)}
}

// Create allocates a fresh uninitialized kernel.
func (r *Registry) Create() Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	h := r.next
	r.entries[h] = &entry{k: kernel.New()}
	slog.Debug("kernel handle created", "handle", uint64(h))
	return h
}

// Destroy releases h. Calls already in flight on h finish normally; later
// calls return ErrUnknownHandle.
func (r *Registry) Destroy(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[h]; !ok {
		return fmt.Errorf("destroy %d: %w", h, ErrUnknownHandle)
	}
	delete(r.entries, h)
	slog.Debug("kernel handle destroyed", "handle", uint64(h))
	return nil
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// with runs fn while holding h's kernel lock.
func (r *Registry) with(h Handle, fn func(k *kernel.Kernel) error) error {
	r.mu.RLock()
	e, ok := r.entries[h]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("handle %d: %w", h, ErrUnknownHandle)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.k)
}

// Initialize seeds h's kernel. See kernel.Kernel.Initialize.
func (r *Registry) Initialize(h Handle, seed string) error {
	return r.with(h, func(k *kernel.Kernel) error {
		return k.Initialize(seed)
	})
}

// Execute feeds unit to h's kernel. A chain-integrity rejection is reported
// as (false, nil); usage errors and unknown handles are returned as errors.
func (r *Registry) Execute(h Handle, unit ir.TransitionUnit) (bool, error) {
	var accepted bool
	err := r.with(h, func(k *kernel.Kernel) error {
		err := k.Execute(unit)
		if kernel.IsIntegrityError(err) {
			return nil
		}
		accepted = err == nil
		return err
	})
	return accepted, err
}

// DockPattern docks a pattern blob into h's kernel.
func (r *Registry) DockPattern(h Handle, patternID string, data []byte) error {
	return r.with(h, func(k *kernel.Kernel) error {
		return k.DockPattern(patternID, data)
	})
}

// StateHash returns h's live anchor.
func (r *Registry) StateHash(h Handle) (string, error) {
	var anchor string
	err := r.with(h, func(k *kernel.Kernel) error {
		anchor = k.GetStateHash()
		return nil
	})
	return anchor, err
}

// GetStateHash copies as much of h's anchor as fits into buf and returns the
// anchor's full length. A caller whose buffer was too small can retry with
// the returned size.
func (r *Registry) GetStateHash(h Handle, buf []byte) (int, error) {
	anchor, err := r.StateHash(h)
	if err != nil {
		return 0, err
	}
	copy(buf, anchor)
	return len(anchor), nil
}

// ReorganizeAndSynthesize fills out with the structures derived from h's
// anchor and returns how many exist, which may exceed len(out).
func (r *Registry) ReorganizeAndSynthesize(h Handle, out []ir.SyntheticStructure) (int, error) {
	var n int
	err := r.with(h, func(k *kernel.Kernel) error {
		structures := k.ReorganizeAndSynthesize()
		copy(out, structures)
		n = len(structures)
		return nil
	})
	return n, err
}

// Shutdown shuts down h's kernel and returns its operation count. The handle
// stays valid until Destroy.
func (r *Registry) Shutdown(h Handle) (uint64, error) {
	var ops uint64
	err := r.with(h, func(k *kernel.Kernel) error {
		ops = k.Shutdown()
		return nil
	})
	return ops, err
}
