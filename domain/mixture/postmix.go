package mixture

import (
	"math"
)

// PostMix returns the posterior mixture after observing the data summarized
// by obs. Each component is updated by its family's conjugate rule and the
// weights are re-scaled by the component's marginal predictive likelihood of
// the data, then renormalized. For a single-component prior this reproduces
// the textbook conjugate posterior exactly.
func (m Mixture) PostMix(obs Summary) (Mixture, error) {
	ops, err := m.family.ops()
	if err != nil {
		return Mixture{}, err
	}

	updated := make([]Component, len(m.comps))
	logw := make([]float64, len(m.comps))
	maxLogw := math.Inf(-1)
	for i, c := range m.comps {
		p, err := ops.update(c.Params, obs, m.refScale)
		if err != nil {
			return Mixture{}, err
		}
		lm, err := ops.logMarginal(c.Params, obs, m.refScale)
		if err != nil {
			return Mixture{}, err
		}
		updated[i] = Component{Weight: c.Weight, Params: p}
		logw[i] = math.Log(c.Weight) + lm
		if logw[i] > maxLogw {
			maxLogw = logw[i]
		}
	}

	// Renormalize in log space to avoid underflow with many components or
	// sharp marginals.
	sum := 0.0
	for i := range logw {
		logw[i] = math.Exp(logw[i] - maxLogw)
		sum += logw[i]
	}
	for i := range updated {
		updated[i].Weight = logw[i] / sum
	}

	out, err := New(m.family, updated...)
	if err != nil {
		return Mixture{}, err
	}
	out.refScale = m.refScale
	return out, nil
}
