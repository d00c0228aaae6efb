package fitting

import (
	"fmt"
	"math/rand"

	"goprior/domain/core"
	"goprior/domain/mixture"
)

// Selection is the outcome of an AIC component-count sweep
type Selection struct {
	Best       Result
	Candidates []Result // converged candidates in ascending K order
	Skipped    []error  // per-K convergence failures, reported not fatal
}

// StreamFunc yields the deterministic RNG used to initialize the EM fit for
// candidate component count k.
type StreamFunc func(k int) (*rand.Rand, error)

// AutoFit sweeps candidate component counts K=1..KMax, fits each by EM and
// selects the minimum-AIC candidate, breaking ties toward the smaller K.
// Each K gets its own derived seed so its EM initialization does not depend
// on how much randomness earlier candidates consumed.
func AutoFit(draws []float64, family mixture.Family, baseSeed int64, opts Options) (Selection, error) {
	return AutoFitStreams(draws, family, func(k int) (*rand.Rand, error) {
		return rand.New(rand.NewSource(baseSeed + int64(k))), nil
	}, opts)
}

// AutoFitStreams is AutoFit with caller-provided per-K RNG streams.
// A candidate that fails to converge is recorded in Skipped and the sweep
// continues; only a sweep with no usable candidate at all fails.
func AutoFitStreams(draws []float64, family mixture.Family, streamFor StreamFunc, opts Options) (Selection, error) {
	opts = opts.withDefaults()

	sel := Selection{}
	for k := 1; k <= opts.KMax; k++ {
		rng, err := streamFor(k)
		if err != nil {
			return Selection{}, fmt.Errorf("rng stream for %d components: %w", k, err)
		}
		res, err := Fit(draws, family, k, rng, opts)
		if err != nil {
			if core.IsRecoverableFitError(err) {
				sel.Skipped = append(sel.Skipped, err)
				continue
			}
			return Selection{}, err
		}
		sel.Candidates = append(sel.Candidates, res)
		// Strict inequality keeps ties on the smaller, earlier K.
		if len(sel.Candidates) == 1 || res.AIC < sel.Best.AIC {
			sel.Best = res
		}
	}
	if len(sel.Candidates) == 0 {
		return Selection{}, fmt.Errorf("no candidate converged: %w", sel.Skipped[len(sel.Skipped)-1])
	}
	return sel, nil
}
