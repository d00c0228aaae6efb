package design

import (
	"math"

	"goprior/domain/core"
	"goprior/domain/mixture"

	"gonum.org/v1/gonum/integrate/quad"
)

// PoS2S is the predictive probability-of-success function of a two-arm
// design: instead of assuming fixed true parameter values it integrates the
// decision predicate over the predictive distribution of the future data
// implied by interim (or prior) knowledge of each arm. The decision
// boundary is shared with OC2S and computed once at construction.
type PoS2S struct {
	ts *twoSample
}

// NewPoS2S builds the probability-of-success function for a design described
// by its analysis priors, per-arm sample sizes, sampling model and rule.
func NewPoS2S(prior1, prior2 mixture.Mixture, n1, n2 int, model Model, rule *Decision2S) (*PoS2S, error) {
	ts, err := newTwoSample(prior1, prior2, n1, n2, model, rule)
	if err != nil {
		return nil, err
	}
	return &PoS2S{ts: ts}, nil
}

// Evaluate returns the probability of success under the predictive
// distributions implied by the interim posteriors of the two arms. The
// interim mixtures must share the design's family.
func (ps *PoS2S) Evaluate(interim1, interim2 mixture.Mixture) (float64, error) {
	ts := ps.ts
	if interim1.Family() != ts.prior1.Family() || interim2.Family() != ts.prior2.Family() {
		return 0, core.NewIncompatibleFamilyError("pos2S", interim1.Family().String(), ts.prior1.Family().String())
	}
	switch ts.model.Kind {
	case ModelBinomial:
		return ps.evaluateBinomial(interim1, interim2)
	case ModelNormal:
		return ps.evaluateNormal(interim1, interim2)
	}
	return 0, core.NewDomainError(string(ts.model.Kind), "unknown sampling model")
}

// evaluateBinomial sums the boundary success intervals under the
// beta-binomial predictive pmfs of both arms.
func (ps *PoS2S) evaluateBinomial(interim1, interim2 mixture.Mixture) (float64, error) {
	ts := ps.ts
	pred1 := betaBinomialPMF(interim1, ts.n1)
	pred2 := betaBinomialPMF(interim2, ts.n2)

	// Cumulative sums of arm 1's predictive pmf let interval probabilities
	// be read off directly.
	cum1 := make([]float64, ts.n1+2)
	for y := 0; y <= ts.n1; y++ {
		cum1[y+1] = cum1[y] + pred1[y]
	}

	p := 0.0
	for y2 := 0; y2 <= ts.n2; y2++ {
		iv := ts.bounds[y2]
		if iv.empty() {
			continue
		}
		p += pred2[y2] * (cum1[iv.hi+1] - cum1[iv.lo])
	}
	return clampProb(p), nil
}

// evaluateNormal integrates the boundary success probability under the
// predictive mixture densities of the future sample means.
func (ps *PoS2S) evaluateNormal(interim1, interim2 mixture.Mixture) (float64, error) {
	ts := ps.ts
	pred1, err := predictiveMeanMixture(interim1, ts.se1)
	if err != nil {
		return 0, err
	}
	pred2, err := predictiveMeanMixture(interim2, ts.se2)
	if err != nil {
		return 0, err
	}

	lo, hi := pred2.Quantile(1e-7), pred2.Quantile(1-1e-7)
	var quadErr error
	p := quad.Fixed(func(ybar2 float64) float64 {
		if quadErr != nil {
			return 0
		}
		boundary, dir, always, err := ts.normalBoundary(ybar2)
		if err != nil {
			quadErr = err
			return 0
		}
		var success float64
		switch dir {
		case 0:
			if always {
				success = 1
			}
		case -1:
			success = pred1.CDF(boundary)
		case 1:
			success = 1 - pred1.CDF(boundary)
		}
		return pred2.PDF(ybar2) * success
	}, lo, hi, ocQuadPoints, quad.Legendre{}, 0)
	if quadErr != nil {
		return 0, quadErr
	}
	return clampProb(p), nil
}

// predictiveMeanMixture is the predictive distribution of a future sample
// mean under a normal posterior mixture: each component's variance grows by
// the sampling variance of the mean.
func predictiveMeanMixture(post mixture.Mixture, se float64) (mixture.Mixture, error) {
	comps := post.Components()
	out := make([]mixture.Component, len(comps))
	for i, c := range comps {
		sd := math.Sqrt(c.Params[1]*c.Params[1] + se*se)
		out[i] = mixture.NormalComponent(c.Weight, c.Params[0], sd)
	}
	return mixture.New(mixture.FamilyNormal, out...)
}

// betaBinomialPMF is the predictive pmf of y successes in n trials under a
// beta posterior mixture.
func betaBinomialPMF(post mixture.Mixture, n int) []float64 {
	comps := post.Components()
	pmf := make([]float64, n+1)
	for y := 0; y <= n; y++ {
		lc := lchoose(n, y)
		for _, c := range comps {
			a, b := c.Params[0], c.Params[1]
			logp := lc + lbeta(a+float64(y), b+float64(n-y)) - lbeta(a, b)
			pmf[y] += c.Weight * math.Exp(logp)
		}
	}
	return pmf
}

func lbeta(a, b float64) float64 {
	la, _ := math.Lgamma(a)
	lb, _ := math.Lgamma(b)
	lab, _ := math.Lgamma(a + b)
	return la + lb - lab
}

func lchoose(n, k int) float64 {
	ln1, _ := math.Lgamma(float64(n + 1))
	lk1, _ := math.Lgamma(float64(k + 1))
	lnk, _ := math.Lgamma(float64(n - k + 1))
	return ln1 - lk1 - lnk
}
