package main

import (
	"log/slog"

	"github.com/roach88/qube/internal/handle"
	"github.com/roach88/qube/internal/ir"
)

// Status codes returned by calls that have no other result.
const (
	statusOK    = 0
	statusError = -1
)

// fillCString copies s into dst as a C string: at most len(dst)-1 bytes
// followed by a NUL. It returns len(s) so a caller can detect truncation. An
// empty dst is left untouched.
func fillCString(dst []byte, s string) int {
	if len(dst) > 0 {
		n := copy(dst[:len(dst)-1], s)
		dst[n] = 0
	}
	return len(s)
}

// stateHash writes h's anchor into dst and returns the anchor's full length,
// or statusError for an unknown handle.
func stateHash(r *handle.Registry, h handle.Handle, dst []byte) int {
	anchor, err := r.StateHash(h)
	if err != nil {
		slog.Warn("get state hash failed", "handle", uint64(h), "error", err)
		return statusError
	}
	return fillCString(dst, anchor)
}

// synthesize returns at most maxCount structures for h together with the
// total that exist. The total is statusError for an unknown handle.
func synthesize(r *handle.Registry, h handle.Handle, maxCount int) ([]ir.SyntheticStructure, int) {
	out := make([]ir.SyntheticStructure, max(maxCount, 0))
	total, err := r.ReorganizeAndSynthesize(h, out)
	if err != nil {
		slog.Warn("synthesize failed", "handle", uint64(h), "error", err)
		return nil, statusError
	}
	return out[:min(total, len(out))], total
}

// executeStatus maps an Execute outcome to 1 (accepted), 0 (chain rejected)
// or statusError.
func executeStatus(h handle.Handle, ok bool, err error) int {
	switch {
	case err != nil:
		slog.Warn("execute failed", "handle", uint64(h), "error", err)
		return statusError
	case ok:
		return 1
	default:
		return 0
	}
}

// shutdownStatus maps a Shutdown outcome to the operation count or
// statusError.
func shutdownStatus(h handle.Handle, ops uint64, err error) int64 {
	if err != nil {
		slog.Warn("shutdown failed", "handle", uint64(h), "error", err)
		return statusError
	}
	return int64(ops)
}

func main() {}
