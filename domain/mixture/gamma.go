package mixture

import (
	"fmt"
	"math"
	"math/rand"

	"goprior/domain/core"

	"gonum.org/v1/gonum/stat/distuv"
)

// gammaOps implements the Gamma(shape, rate) conjugate family for Poisson
// count data; the rate parameter plays the role of accumulated exposure.
type gammaOps struct{}

func (gammaOps) name() string { return FamilyGamma.String() }

func (gammaOps) validate(p [2]float64) error {
	if !(p[0] > 0) || math.IsInf(p[0], 0) {
		return core.NewDomainError("gamma", fmt.Sprintf("shape %g must be positive and finite", p[0]))
	}
	if !(p[1] > 0) || math.IsInf(p[1], 0) {
		return core.NewDomainError("gamma", fmt.Sprintf("rate %g must be positive and finite", p[1]))
	}
	return nil
}

func (gammaOps) support() (float64, float64) { return 0, math.Inf(1) }

func (gammaOps) dist(p [2]float64) distuv.Gamma {
	return distuv.Gamma{Alpha: p[0], Beta: p[1]}
}

func (o gammaOps) pdf(p [2]float64, x float64) float64 {
	if x < 0 {
		return 0
	}
	return o.dist(p).Prob(x)
}

func (o gammaOps) logPDF(p [2]float64, x float64) float64 {
	if x <= 0 {
		return math.Inf(-1)
	}
	return o.dist(p).LogProb(x)
}

func (o gammaOps) cdf(p [2]float64, x float64) float64 {
	if x <= 0 {
		return 0
	}
	return o.dist(p).CDF(x)
}

func (o gammaOps) quantile(p [2]float64, q float64) float64 {
	return o.dist(p).Quantile(q)
}

func (o gammaOps) rand(p [2]float64, rng *rand.Rand) float64 {
	return o.dist(p).Quantile(rng.Float64())
}

func (gammaOps) mean(p [2]float64) float64 {
	return p[0] / p[1]
}

func (gammaOps) variance(p [2]float64) float64 {
	return p[0] / (p[1] * p[1])
}

func (gammaOps) fromMoments(mean, variance float64) ([2]float64, error) {
	if mean <= 0 {
		return [2]float64{}, core.NewDomainError("gamma", fmt.Sprintf("mean %g must be positive", mean))
	}
	if variance <= 0 {
		return [2]float64{}, core.NewDomainError("gamma", fmt.Sprintf("variance %g must be positive", variance))
	}
	return [2]float64{mean * mean / variance, mean / variance}, nil
}

// update applies the conjugate rule Gamma(a,b) + (events, exposure) ->
// Gamma(a+events, b+exposure)
func (o gammaOps) update(p [2]float64, obs Summary, _ float64) ([2]float64, error) {
	s, err := o.poisson(obs)
	if err != nil {
		return [2]float64{}, err
	}
	return [2]float64{p[0] + float64(s.Events), p[1] + s.Exposure}, nil
}

// logMarginal is the gamma-Poisson (negative binomial) log likelihood of the
// observed counts under one component.
func (o gammaOps) logMarginal(p [2]float64, obs Summary, _ float64) (float64, error) {
	s, err := o.poisson(obs)
	if err != nil {
		return 0, err
	}
	a, b := p[0], p[1]
	e := s.Exposure
	k := float64(s.Events)
	lgak, _ := math.Lgamma(a + k)
	lga, _ := math.Lgamma(a)
	lgk1, _ := math.Lgamma(k + 1)
	return lgak - lga - lgk1 + a*math.Log(b/(b+e)) + k*math.Log(e/(b+e)), nil
}

// vague builds Gamma(location*pseudoN, pseudoN): mean location with pseudoN
// exposure units of information.
func (gammaOps) vague(location, pseudoN, _ float64) ([2]float64, error) {
	if location <= 0 {
		return [2]float64{}, core.NewDomainError("gamma", fmt.Sprintf("vague location %g must be positive", location))
	}
	return [2]float64{location * pseudoN, pseudoN}, nil
}

func (gammaOps) pseudoSampleSize(p [2]float64, _ float64) (float64, error) {
	return p[1], nil
}

func (gammaOps) poisson(obs Summary) (PoissonSummary, error) {
	s, ok := obs.(PoissonSummary)
	if !ok {
		return PoissonSummary{}, core.NewIncompatibleFamilyError("update", obs.Kind(), "poisson")
	}
	if err := s.Validate(); err != nil {
		return PoissonSummary{}, err
	}
	return s, nil
}
