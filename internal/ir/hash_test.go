package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Vectors below were produced by an independent implementation of the same
// encoding (SHA-256 over domain, 0x00, RFC 8785 JSON). They pin the format.
const (
	vectorH1         = "5388c745e1c52fa4383ecf7fd7c0bf68407f1c21c43872f939691104d36e3943"
	vectorH2         = "b936a95ac30e37e5de3a63f11b4432928d209f5550d51287703f112f349cc9a4"
	vectorDockAfter1 = "b8babeba590b2c8cd1b2f20c68ad951478497a2d491d45f19e4deb05a99db7ef"
	vectorJurassic   = "90c408eaaf803513c643b2e43b72b920b7d3d734cdb4be47e19a92f8cf8f6371"
	vectorMaxSeq     = "6f7d62558f68d5b49dbccd1d2c3df6ab6985ff7ee14d8844e5036fbf4919aa11"
	vectorCafe       = "c40e69a22c82b500980afc4f438443cc1bf72c2c935f6b1ff839e60949c0f495"
)

func TestExecuteAnchorVectors(t *testing.T) {
	h1 := ExecuteAnchor("G", 1, "A")
	assert.Equal(t, vectorH1, h1)
	assert.Equal(t, vectorH2, ExecuteAnchor(h1, 2, "B"))
}

func TestExecuteAnchorFullUint64Range(t *testing.T) {
	assert.Equal(t, vectorMaxSeq, ExecuteAnchor("G", ^uint64(0), "A"))
}

func TestDockAnchorVectors(t *testing.T) {
	assert.Equal(t, vectorDockAfter1, DockAnchor(vectorH1, "PATTERN_CLUST_SOAK_01", 6))
	assert.Equal(t, vectorJurassic, DockAnchor("JURASSIC_GENESIS_HUB", "PATTERN_CLUST_SOAK_01", 6))
}

func TestAnchorsAreHex256(t *testing.T) {
	for _, a := range []string{
		ExecuteAnchor("", 0, ""),
		DockAnchor("", "", 0),
	} {
		assert.Len(t, a, 64, "SHA-256 hex is 64 characters")
		assert.Regexp(t, "^[0-9a-f]{64}$", a)
	}
}

func TestExecuteAnchorChangesWithInput(t *testing.T) {
	base := ExecuteAnchor("G", 1, "A")

	assert.NotEqual(t, base, ExecuteAnchor("H", 1, "A"), "different anchor")
	assert.NotEqual(t, base, ExecuteAnchor("G", 2, "A"), "different sequence id")
	assert.NotEqual(t, base, ExecuteAnchor("G", 1, "B"), "different current hash")
}

func TestDomainsAreSeparated(t *testing.T) {
	// Same textual inputs must not collide across operations.
	assert.NotEqual(t, ExecuteAnchor("G", 1, "A"), DockAnchor("G", "A", 1))
}

func TestDockAnchorBindsLengthNotBytes(t *testing.T) {
	assert.Equal(t, DockAnchor("G", "p", 4), DockAnchor("G", "p", 4))
	assert.NotEqual(t, DockAnchor("G", "p", 4), DockAnchor("G", "p", 5))
	assert.NotEqual(t, DockAnchor("G", "p", 4), DockAnchor("G", "q", 4))
}

func TestSynthesisSeedVectors(t *testing.T) {
	assert.Equal(t, uint64(6674833804533186543), SynthesisSeed("G"))
	assert.Equal(t, uint64(13638397666425386733), SynthesisSeed(vectorH1))
	assert.Equal(t, uint64(4255145599052094363), SynthesisSeed(GenesisAnchor))
}

func TestExecuteAnchorNonASCIIVector(t *testing.T) {
	// Raw UTF-8 bytes of U+00E9 go into the hash input unescaped.
	assert.Equal(t, vectorCafe, ExecuteAnchor("G", 1, "caf\u00e9"))
}

func TestAnchorsRefuseNonCanonicalStrings(t *testing.T) {
	// Invalid bytes would otherwise all encode as U+FFFD and collide, and
	// "e" + combining acute would fold into U+00E9.
	assert.Panics(t, func() { ExecuteAnchor("G", 1, "\xff") })
	assert.Panics(t, func() { ExecuteAnchor("\xfe", 1, "A") })
	assert.Panics(t, func() { ExecuteAnchor("G", 1, "cafe\u0301") })
	assert.Panics(t, func() { DockAnchor("G", "\xff", 0) })
	assert.Panics(t, func() { SynthesisSeed("\xfe") })
}

func TestCheckString(t *testing.T) {
	tests := []struct {
		name string
		s    string
		want error
	}{
		{"empty", "", nil},
		{"ascii", "SHA256:INITIAL_CONFIG_HASH", nil},
		{"precomposed", "caf\u00e9", nil},
		{"replacement character itself", "\ufffd", nil},
		{"invalid byte", "\xff", ErrInvalidUTF8},
		{"truncated sequence", "caf\xc3", ErrInvalidUTF8},
		{"encoded surrogate", "\xed\xa0\x80", ErrInvalidUTF8},
		{"decomposed", "cafe\u0301", ErrNotNFC},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckString(tt.s)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
