// Package rng provides the deterministic random-stream adapter. Streams are
// derived by hashing the operation key with the seed, so distinct operations
// never share a stream and any run reproduces bit-exactly from its seed.
package rng

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// Seeded implements ports.RNGPort
type Seeded struct{}

// NewSeeded creates the deterministic RNG adapter
func NewSeeded() *Seeded {
	return &Seeded{}
}

func derive(key string, seed int64) *rand.Rand {
	h := sha256.New()
	h.Write([]byte(key))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(seed))
	h.Write(buf[:])
	sum := h.Sum(nil)
	return rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(sum[:8]))))
}

// SeededStream returns the stream for a named operation
func (r *Seeded) SeededStream(_ context.Context, name string, seed int64) (*rand.Rand, error) {
	return derive(name, seed), nil
}

// FitStream returns the stream for one candidate mixture fit, keyed by the
// caller's fit key and the component count
func (r *Seeded) FitStream(_ context.Context, fitKey string, components int, baseSeed int64) (*rand.Rand, error) {
	return derive(fmt.Sprintf("fit/%s/%d", fitKey, components), baseSeed), nil
}
