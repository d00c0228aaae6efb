package mixture

import (
	"math"

	"goprior/domain/core"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/stat/distuv"
)

// diffQuadPoints is the Gauss-Legendre node count used for non-normal
// difference CDFs. With the integration range truncated at the 1e-9 tails of
// the subtrahend this keeps the absolute error below ~1e-8 for the smooth
// integrands that arise from beta and gamma mixtures.
const diffQuadPoints = 197

// PMixDiff computes Pr(A - B < t) for two independent mixtures of the same
// family. Normal pairs are exact (the difference of two gaussians is
// gaussian); beta and gamma pairs are evaluated by Gauss-Legendre quadrature
// of F_A(t+y) f_B(y) over B's effective support.
func PMixDiff(a, b Mixture, t float64) (float64, error) {
	if a.family != b.family {
		return 0, core.NewIncompatibleFamilyError("PMixDiff", b.family.String(), a.family.String())
	}

	if a.family == FamilyNormal {
		// Pr(A-B < t) = sum_ij wa_i wb_j Phi((t - (mu_i - nu_j)) / sqrt(s_i^2 + s_j^2))
		p := 0.0
		for _, ca := range a.comps {
			for _, cb := range b.comps {
				sd := math.Sqrt(ca.Params[1]*ca.Params[1] + cb.Params[1]*cb.Params[1])
				z := (t - (ca.Params[0] - cb.Params[0])) / sd
				p += ca.Weight * cb.Weight * distuv.UnitNormal.CDF(z)
			}
		}
		return clampProb(p), nil
	}

	lo, hi := b.Quantile(1e-9), b.Quantile(1-1e-9)
	if hi <= lo {
		return clampProb(a.CDF(t + b.Mean())), nil
	}
	p := quad.Fixed(func(y float64) float64 {
		return a.CDF(t+y) * b.PDF(y)
	}, lo, hi, diffQuadPoints, quad.Legendre{}, 0)
	return clampProb(p), nil
}

func clampProb(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
