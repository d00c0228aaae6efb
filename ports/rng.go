package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named
	// operation. The same (name, seed) pair must always yield an identical
	// stream so fits and simulations reproduce exactly.
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// FitStream creates the deterministic RNG stream for one mixture fit,
	// keyed by a run-stable fit key and the candidate component count so the
	// EM seeding of every K in a selection sweep is independently
	// reproducible. The key must derive from the fit inputs, never from
	// per-run state, so repeating an analysis reproduces the same streams.
	FitStream(ctx context.Context, fitKey string, components int, baseSeed int64) (*rand.Rand, error)
}
