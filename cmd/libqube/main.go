// Command libqube builds the kernel as a C shared library:
//
//	go build -buildmode=c-shared -o libqube.so ./cmd/libqube
//
// Handles are opaque integers issued by a handle.Registry, so no Go pointer
// ever crosses the boundary. Every call on one handle is serialized; calls on
// different handles may run on different threads.
package main

/*
#include <stdint.h>

typedef uintptr_t QubeRuntimeHandle;

typedef struct {
  uint64_t timestamp;
  uint64_t sequence_id;
  const char *previous_hash;
  const char *current_hash;
  const uint8_t *payload;
  int payload_len;
} CTokenPixel;

typedef struct {
  float x, y, w, h;
  char type[64];
} CSyntheticStructure;
*/
import "C"

import (
	"log/slog"
	"unsafe"

	"github.com/roach88/qube/internal/handle"
	"github.com/roach88/qube/internal/ir"
)

var registry = handle.NewRegistry()

//export QubeRuntime_Create
func QubeRuntime_Create() C.QubeRuntimeHandle {
	return C.QubeRuntimeHandle(registry.Create())
}

//export QubeRuntime_Destroy
func QubeRuntime_Destroy(h C.QubeRuntimeHandle) {
	if err := registry.Destroy(handle.Handle(h)); err != nil {
		slog.Warn("destroy failed", "handle", uint64(h), "error", err)
	}
}

//export QubeRuntime_Initialize
func QubeRuntime_Initialize(h C.QubeRuntimeHandle, configHash *C.char) C.int {
	seed := ""
	if configHash != nil {
		seed = C.GoString(configHash)
	}
	if err := registry.Initialize(handle.Handle(h), seed); err != nil {
		slog.Warn("initialize failed", "handle", uint64(h), "error", err)
		return statusError
	}
	return statusOK
}

// QubeRuntime_Execute returns 1 when the unit is accepted, 0 when the chain
// check rejects it and -1 on a usage error or unknown handle.
//
//export QubeRuntime_Execute
func QubeRuntime_Execute(h C.QubeRuntimeHandle, pixel C.CTokenPixel) C.int {
	unit := ir.TransitionUnit{
		Timestamp:  uint64(pixel.timestamp),
		SequenceID: uint64(pixel.sequence_id),
		Payload:    goBytes(pixel.payload, pixel.payload_len),
	}
	if pixel.previous_hash != nil {
		unit.PreviousHash = C.GoString(pixel.previous_hash)
	}
	if pixel.current_hash != nil {
		unit.CurrentHash = C.GoString(pixel.current_hash)
	}

	ok, err := registry.Execute(handle.Handle(h), unit)
	return C.int(executeStatus(handle.Handle(h), ok, err))
}

// QubeRuntime_GetStateHash copies the anchor into buffer, truncated to
// maxLen-1 bytes and NUL-terminated, and returns the anchor's full length.
//
//export QubeRuntime_GetStateHash
func QubeRuntime_GetStateHash(h C.QubeRuntimeHandle, buffer *C.char, maxLen C.int) C.int {
	var dst []byte
	if buffer != nil && maxLen > 0 {
		dst = unsafe.Slice((*byte)(unsafe.Pointer(buffer)), int(maxLen))
	}
	return C.int(stateHash(registry, handle.Handle(h), dst))
}

//export QubeRuntime_DockPattern
func QubeRuntime_DockPattern(h C.QubeRuntimeHandle, patternID *C.char, data *C.uint8_t, dataLen C.int) C.int {
	id := ""
	if patternID != nil {
		id = C.GoString(patternID)
	}
	if err := registry.DockPattern(handle.Handle(h), id, goBytes(data, dataLen)); err != nil {
		slog.Warn("dock failed", "handle", uint64(h), "error", err)
		return statusError
	}
	return statusOK
}

// QubeRuntime_ReorganizeAndSynthesize fills up to maxCount structures and
// returns how many exist, which may be more than maxCount.
//
//export QubeRuntime_ReorganizeAndSynthesize
func QubeRuntime_ReorganizeAndSynthesize(h C.QubeRuntimeHandle, structures *C.CSyntheticStructure, maxCount C.int) C.int {
	n := 0
	if structures != nil {
		n = int(maxCount)
	}
	out, total := synthesize(registry, handle.Handle(h), n)
	if len(out) == 0 {
		return C.int(total)
	}

	dst := unsafe.Slice(structures, len(out))
	for i, s := range out {
		dst[i].x = C.float(s.X)
		dst[i].y = C.float(s.Y)
		dst[i].w = C.float(s.W)
		dst[i].h = C.float(s.H)
		fillCString(unsafe.Slice((*byte)(unsafe.Pointer(&dst[i]._type[0])), len(dst[i]._type)), s.Type)
	}
	return C.int(total)
}

// QubeRuntime_Shutdown shuts the kernel down and returns its operation
// count, or -1 for an unknown handle.
//
//export QubeRuntime_Shutdown
func QubeRuntime_Shutdown(h C.QubeRuntimeHandle) C.longlong {
	ops, err := registry.Shutdown(handle.Handle(h))
	return C.longlong(shutdownStatus(handle.Handle(h), ops, err))
}

// goBytes copies n bytes from p. A nil p or non-positive n is an empty slice.
func goBytes(p *C.uint8_t, n C.int) []byte {
	if p == nil || n <= 0 {
		return nil
	}
	return C.GoBytes(unsafe.Pointer(p), n)
}
