package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qube/internal/handle"
	"github.com/roach88/qube/internal/ir"
	"github.com/roach88/qube/internal/kernel"
)

const anchorAfterG1A = "5388c745e1c52fa4383ecf7fd7c0bf68407f1c21c43872f939691104d36e3943"

// filled returns dst up to its first NUL.
func filled(t *testing.T, dst []byte) string {
	t.Helper()
	i := strings.IndexByte(string(dst), 0)
	require.GreaterOrEqual(t, i, 0, "buffer is not NUL-terminated")
	return string(dst[:i])
}

func sentinel(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 0xAA
	}
	return b
}

func newRuntime(t *testing.T, seed string) (*handle.Registry, handle.Handle) {
	t.Helper()
	r := handle.NewRegistry()
	h := r.Create()
	require.NoError(t, r.Initialize(h, seed))
	return r, h
}

func TestFillCString(t *testing.T) {
	long := strings.Repeat("x", 70)

	tests := []struct {
		name   string
		maxLen int
		s      string
		want   string
	}{
		{"one byte holds only the terminator", 1, anchorAfterG1A, ""},
		{"one short of the anchor", 64, anchorAfterG1A, anchorAfterG1A[:63]},
		{"exact fit", 65, anchorAfterG1A, anchorAfterG1A},
		{"roomy", 128, anchorAfterG1A, anchorAfterG1A},
		{"type name truncated", 64, long, long[:63]},
		{"empty string", 8, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := sentinel(tt.maxLen)
			n := fillCString(dst, tt.s)

			assert.Equal(t, len(tt.s), n)
			assert.Equal(t, tt.want, filled(t, dst))
			for i := len(tt.want) + 1; i < len(dst); i++ {
				assert.Equal(t, byte(0xAA), dst[i], "byte %d past the terminator was written", i)
			}
		})
	}
}

func TestFillCString_EmptyBufferUntouched(t *testing.T) {
	assert.Equal(t, 64, fillCString(nil, anchorAfterG1A))
	assert.Equal(t, 64, fillCString([]byte{}, anchorAfterG1A))
}

func TestStateHash(t *testing.T) {
	r, h := newRuntime(t, "G")
	ok, err := r.Execute(h, ir.TransitionUnit{SequenceID: 1, PreviousHash: "G", CurrentHash: "A"})
	require.NoError(t, err)
	require.True(t, ok)

	for _, maxLen := range []int{0, 1, 64, 65} {
		dst := sentinel(maxLen)
		assert.Equal(t, 64, stateHash(r, h, dst), "maxLen %d", maxLen)
		if maxLen == 0 {
			continue
		}
		want := anchorAfterG1A[:min(maxLen-1, 64)]
		assert.Equal(t, want, filled(t, dst), "maxLen %d", maxLen)
	}

	// A caller that saw truncation retries with the returned size plus one.
	n := stateHash(r, h, make([]byte, 1))
	dst := make([]byte, n+1)
	stateHash(r, h, dst)
	assert.Equal(t, anchorAfterG1A, filled(t, dst))
}

func TestStateHash_UnknownHandle(t *testing.T) {
	r, h := newRuntime(t, "G")
	require.NoError(t, r.Destroy(h))

	dst := sentinel(65)
	assert.Equal(t, statusError, stateHash(r, h, dst))
	assert.Equal(t, sentinel(65), dst, "buffer must not be written on error")
	assert.Equal(t, statusError, stateHash(r, handle.Handle(0), nil))
}

func TestSynthesize(t *testing.T) {
	r, h := newRuntime(t, "D")
	all := kernel.Synthesize("D")
	require.Len(t, all, 3)

	tests := []struct {
		name     string
		maxCount int
		want     int
	}{
		{"count only", 0, 0},
		{"negative count", -4, 0},
		{"one", 1, 1},
		{"fewer than total", 2, 2},
		{"exact", 3, 3},
		{"more than total", 8, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, total := synthesize(r, h, tt.maxCount)
			assert.Equal(t, len(all), total)
			require.Len(t, out, tt.want)
			assert.Equal(t, all[:tt.want], out)
		})
	}
}

func TestSynthesize_UnknownHandle(t *testing.T) {
	r := handle.NewRegistry()
	out, total := synthesize(r, handle.Handle(42), 3)
	assert.Equal(t, statusError, total)
	assert.Nil(t, out)
}

func TestExecuteStatus(t *testing.T) {
	assert.Equal(t, 1, executeStatus(1, true, nil))
	assert.Equal(t, 0, executeStatus(1, false, nil))
	assert.Equal(t, statusError, executeStatus(1, false, handle.ErrUnknownHandle))
}

func TestExecute_NonCanonicalHashIsError(t *testing.T) {
	r, h := newRuntime(t, "G")
	for _, cur := range []string{"\xff", "\xfe"} {
		ok, err := r.Execute(h, ir.TransitionUnit{SequenceID: 1, PreviousHash: "G", CurrentHash: cur})
		assert.Equal(t, statusError, executeStatus(h, ok, err))
	}
	anchor, err := r.StateHash(h)
	require.NoError(t, err)
	assert.Equal(t, "G", anchor)
}

func TestShutdownStatus(t *testing.T) {
	assert.Equal(t, int64(7), shutdownStatus(1, 7, nil))
	assert.Equal(t, int64(statusError), shutdownStatus(1, 0, errors.New("gone")))

	r, h := newRuntime(t, "G")
	ops, err := r.Shutdown(h)
	assert.Equal(t, int64(0), shutdownStatus(h, ops, err))
	require.NoError(t, r.Destroy(h))
	ops, err = r.Shutdown(h)
	assert.Equal(t, int64(statusError), shutdownStatus(h, ops, err))
}
