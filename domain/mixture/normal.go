package mixture

import (
	"fmt"
	"math"
	"math/rand"

	"goprior/domain/core"

	"gonum.org/v1/gonum/stat/distuv"
)

// normalOps implements the Normal(mean, sd) conjugate family for gaussian
// summary data with known sampling standard deviation.
type normalOps struct{}

func (normalOps) name() string { return FamilyNormal.String() }

func (normalOps) validate(p [2]float64) error {
	if math.IsNaN(p[0]) || math.IsInf(p[0], 0) {
		return core.NewDomainError("normal", fmt.Sprintf("mean %g must be finite", p[0]))
	}
	if !(p[1] > 0) || math.IsInf(p[1], 0) {
		return core.NewDomainError("normal", fmt.Sprintf("sd %g must be positive and finite", p[1]))
	}
	return nil
}

func (normalOps) support() (float64, float64) { return math.Inf(-1), math.Inf(1) }

func (normalOps) dist(p [2]float64) distuv.Normal {
	return distuv.Normal{Mu: p[0], Sigma: p[1]}
}

func (o normalOps) pdf(p [2]float64, x float64) float64 {
	return o.dist(p).Prob(x)
}

func (o normalOps) logPDF(p [2]float64, x float64) float64 {
	return o.dist(p).LogProb(x)
}

func (o normalOps) cdf(p [2]float64, x float64) float64 {
	return o.dist(p).CDF(x)
}

func (o normalOps) quantile(p [2]float64, q float64) float64 {
	return o.dist(p).Quantile(q)
}

func (o normalOps) rand(p [2]float64, rng *rand.Rand) float64 {
	return p[0] + p[1]*rng.NormFloat64()
}

func (normalOps) mean(p [2]float64) float64 { return p[0] }

func (normalOps) variance(p [2]float64) float64 { return p[1] * p[1] }

func (normalOps) fromMoments(mean, variance float64) ([2]float64, error) {
	if variance <= 0 {
		return [2]float64{}, core.NewDomainError("normal", fmt.Sprintf("variance %g must be positive", variance))
	}
	return [2]float64{mean, math.Sqrt(variance)}, nil
}

// update applies the precision-weighted conjugate rule for a known-variance
// gaussian observation with mean m and standard error s:
//
//	1/sd1^2 = 1/sd0^2 + 1/s^2
//	mu1     = sd1^2 * (mu0/sd0^2 + m/s^2)
func (o normalOps) update(p [2]float64, obs Summary, _ float64) ([2]float64, error) {
	s, err := o.gaussian(obs)
	if err != nil {
		return [2]float64{}, err
	}
	prec := 1/(p[1]*p[1]) + 1/(s.SE*s.SE)
	v1 := 1 / prec
	mu1 := v1 * (p[0]/(p[1]*p[1]) + s.Mean/(s.SE*s.SE))
	return [2]float64{mu1, math.Sqrt(v1)}, nil
}

// logMarginal is the prior-predictive log density of the observed mean:
// N(m | mu0, sd0^2 + se^2).
func (o normalOps) logMarginal(p [2]float64, obs Summary, _ float64) (float64, error) {
	s, err := o.gaussian(obs)
	if err != nil {
		return 0, err
	}
	sd := math.Sqrt(p[1]*p[1] + s.SE*s.SE)
	return distuv.Normal{Mu: p[0], Sigma: sd}.LogProb(s.Mean), nil
}

// vague builds N(location, refScale^2/pseudoN); a normal mixture must carry a
// reference scale before it can be robustified.
func (normalOps) vague(location, pseudoN, refScale float64) ([2]float64, error) {
	if refScale <= 0 {
		return [2]float64{}, core.NewDomainError("normal", "vague component requires a reference scale; call WithRefScale first")
	}
	if math.IsNaN(location) || math.IsInf(location, 0) {
		return [2]float64{}, core.NewDomainError("normal", fmt.Sprintf("vague location %g must be finite", location))
	}
	return [2]float64{location, refScale / math.Sqrt(pseudoN)}, nil
}

// pseudoSampleSize is refScale^2/sd^2: the number of unit-variance-scaled
// observations carrying the same information as the component.
func (normalOps) pseudoSampleSize(p [2]float64, refScale float64) (float64, error) {
	if refScale <= 0 {
		return 0, core.NewDomainError("normal", "sample size interpretation requires a reference scale; call WithRefScale first")
	}
	return refScale * refScale / (p[1] * p[1]), nil
}

func (normalOps) gaussian(obs Summary) (NormalSummary, error) {
	s, ok := obs.(NormalSummary)
	if !ok {
		return NormalSummary{}, core.NewIncompatibleFamilyError("update", obs.Kind(), "normal")
	}
	if err := s.Validate(); err != nil {
		return NormalSummary{}, err
	}
	return s, nil
}
