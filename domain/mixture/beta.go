package mixture

import (
	"fmt"
	"math"
	"math/rand"

	"goprior/domain/core"

	"gonum.org/v1/gonum/stat/distuv"
)

// betaOps implements the Beta(a, b) conjugate family for binomial data.
type betaOps struct{}

func (betaOps) name() string { return FamilyBeta.String() }

func (betaOps) validate(p [2]float64) error {
	if !(p[0] > 0) || math.IsInf(p[0], 0) {
		return core.NewDomainError("beta", fmt.Sprintf("alpha %g must be positive and finite", p[0]))
	}
	if !(p[1] > 0) || math.IsInf(p[1], 0) {
		return core.NewDomainError("beta", fmt.Sprintf("beta %g must be positive and finite", p[1]))
	}
	return nil
}

func (betaOps) support() (float64, float64) { return 0, 1 }

func (betaOps) dist(p [2]float64) distuv.Beta {
	return distuv.Beta{Alpha: p[0], Beta: p[1]}
}

func (o betaOps) pdf(p [2]float64, x float64) float64 {
	if x < 0 || x > 1 {
		return 0
	}
	return o.dist(p).Prob(x)
}

func (o betaOps) logPDF(p [2]float64, x float64) float64 {
	if x <= 0 || x >= 1 {
		return math.Inf(-1)
	}
	return o.dist(p).LogProb(x)
}

func (o betaOps) cdf(p [2]float64, x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	return o.dist(p).CDF(x)
}

func (o betaOps) quantile(p [2]float64, q float64) float64 {
	return o.dist(p).Quantile(q)
}

func (o betaOps) rand(p [2]float64, rng *rand.Rand) float64 {
	// Inverse-CDF sampling keeps the generator injection uniform across
	// families regardless of the distribution backend's source type.
	return o.dist(p).Quantile(rng.Float64())
}

func (betaOps) mean(p [2]float64) float64 {
	return p[0] / (p[0] + p[1])
}

func (betaOps) variance(p [2]float64) float64 {
	s := p[0] + p[1]
	return p[0] * p[1] / (s * s * (s + 1))
}

func (betaOps) fromMoments(mean, variance float64) ([2]float64, error) {
	if mean <= 0 || mean >= 1 {
		return [2]float64{}, core.NewDomainError("beta", fmt.Sprintf("mean %g outside (0,1)", mean))
	}
	if variance <= 0 || variance >= mean*(1-mean) {
		return [2]float64{}, core.NewDomainError("beta", fmt.Sprintf("variance %g outside (0, m(1-m))", variance))
	}
	nu := mean*(1-mean)/variance - 1
	return [2]float64{mean * nu, (1 - mean) * nu}, nil
}

// update applies the conjugate rule Beta(a,b) + r/n -> Beta(a+r, b+n-r)
func (o betaOps) update(p [2]float64, obs Summary, _ float64) ([2]float64, error) {
	s, err := o.binomial(obs)
	if err != nil {
		return [2]float64{}, err
	}
	return [2]float64{p[0] + float64(s.Responders), p[1] + float64(s.N-s.Responders)}, nil
}

// logMarginal is the beta-binomial log likelihood of the observed data under
// one component, used to re-weight components in PostMix.
func (o betaOps) logMarginal(p [2]float64, obs Summary, _ float64) (float64, error) {
	s, err := o.binomial(obs)
	if err != nil {
		return 0, err
	}
	r, n := s.Responders, s.N
	return logChoose(n, r) + logBeta(p[0]+float64(r), p[1]+float64(n-r)) - logBeta(p[0], p[1]), nil
}

// vague builds Beta(location*pseudoN, (1-location)*pseudoN); location 0.5
// with pseudoN 2 recovers the uniform prior.
func (betaOps) vague(location, pseudoN, _ float64) ([2]float64, error) {
	if location <= 0 || location >= 1 {
		return [2]float64{}, core.NewDomainError("beta", fmt.Sprintf("vague location %g outside (0,1)", location))
	}
	return [2]float64{location * pseudoN, (1 - location) * pseudoN}, nil
}

func (betaOps) pseudoSampleSize(p [2]float64, _ float64) (float64, error) {
	return p[0] + p[1], nil
}

func (betaOps) binomial(obs Summary) (BinomialSummary, error) {
	s, ok := obs.(BinomialSummary)
	if !ok {
		return BinomialSummary{}, core.NewIncompatibleFamilyError("update", obs.Kind(), "binomial")
	}
	if err := s.Validate(); err != nil {
		return BinomialSummary{}, err
	}
	return s, nil
}
