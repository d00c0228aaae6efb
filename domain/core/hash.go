package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// PriorFingerprint identifies a fitted prior by its exact numeric content.
// Two fits from the same draws and seed must produce equal fingerprints.
type PriorFingerprint Hash

// NewPriorFingerprint hashes the canonical serialized form of a prior
func NewPriorFingerprint(serialized []byte) PriorFingerprint {
	return PriorFingerprint(NewHash(serialized))
}

func (h PriorFingerprint) String() string { return Hash(h).String() }

// FingerprintFloats builds a fingerprint over an ordered float sequence,
// formatting at full precision so reordering or rounding changes the hash.
func FingerprintFloats(values []float64) PriorFingerprint {
	buf := make([]byte, 0, len(values)*24)
	for _, v := range values {
		buf = append(buf, []byte(fmt.Sprintf("%.17g;", v))...)
	}
	return NewPriorFingerprint(buf)
}
