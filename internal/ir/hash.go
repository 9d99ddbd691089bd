package ir

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
)

// Domain prefixes for anchor derivation.
// The version suffix allows a future algorithm migration without ambiguity.
const (
	DomainExecute   = "qube/anchor/execute/" + HashVersion
	DomainDock      = "qube/anchor/dock/" + HashVersion
	DomainSynthesis = "qube/synthesis/" + HashVersion
)

// digestWithDomain computes SHA256(domain || 0x00 || canonical(obj)).
// The null byte keeps the domain/data boundary unambiguous.
func digestWithDomain(domain string, obj IRObject) ([sha256.Size]byte, error) {
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return [sha256.Size]byte{}, fmt.Errorf("%s: failed to marshal: %w", domain, err)
	}
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(canonical)

	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

// mustHex is used by the anchor helpers. Their integer fields always marshal;
// their string fields must pass CheckString, which callers check first.
func mustHex(domain string, obj IRObject) string {
	sum, err := digestWithDomain(domain, obj)
	if err != nil {
		panic(err)
	}
	return hex.EncodeToString(sum[:])
}

// ExecuteAnchor derives the anchor that follows anchor once a transition unit
// with the given sequence id and current hash is accepted.
//
// The sequence id is encoded as a decimal string: canonical JSON integers are
// signed 64-bit and would not carry the full uint64 range.
//
// Panics if anchor or currentHash fails CheckString.
func ExecuteAnchor(anchor string, sequenceID uint64, currentHash string) string {
	return mustHex(DomainExecute, Object(
		O("anchor", IRString(anchor)),
		O("current_hash", IRString(currentHash)),
		O("sequence_id", IRString(strconv.FormatUint(sequenceID, 10))),
	))
}

// DockAnchor derives the anchor that follows anchor once a pattern blob of
// dataLen bytes is docked. Only the length of the blob is bound, not its bytes.
//
// Panics if anchor or patternID fails CheckString.
func DockAnchor(anchor, patternID string, dataLen int) string {
	return mustHex(DomainDock, Object(
		O("anchor", IRString(anchor)),
		O("data_len", IRInt(dataLen)),
		O("pattern_id", IRString(patternID)),
	))
}

// SynthesisSeed returns the 64-bit seed structures are generated from: the
// first eight bytes, big-endian, of the synthesis digest of anchor.
//
// Panics if anchor fails CheckString.
func SynthesisSeed(anchor string) uint64 {
	sum, err := digestWithDomain(DomainSynthesis, Object(O("anchor", IRString(anchor))))
	if err != nil {
		panic(err)
	}
	return binary.BigEndian.Uint64(sum[:8])
}
