package mixture

import (
	"fmt"
	"math"
	"math/rand"

	"goprior/domain/core"
)

// familyOps is the per-family behavior behind the Family tag: density and
// quantile functions, the conjugate update rule, marginal likelihoods and the
// vague parameterization used for robustification.
type familyOps interface {
	name() string
	validate(p [2]float64) error
	support() (lo, hi float64)
	pdf(p [2]float64, x float64) float64
	logPDF(p [2]float64, x float64) float64
	cdf(p [2]float64, x float64) float64
	quantile(p [2]float64, q float64) float64
	rand(p [2]float64, rng *rand.Rand) float64
	mean(p [2]float64) float64
	variance(p [2]float64) float64
	fromMoments(mean, variance float64) ([2]float64, error)
	update(p [2]float64, obs Summary, refScale float64) ([2]float64, error)
	logMarginal(p [2]float64, obs Summary, refScale float64) (float64, error)
	vague(location, pseudoN, refScale float64) ([2]float64, error)
	pseudoSampleSize(p [2]float64, refScale float64) (float64, error)
}

func (f Family) ops() (familyOps, error) {
	switch f {
	case FamilyBeta:
		return betaOps{}, nil
	case FamilyGamma:
		return gammaOps{}, nil
	case FamilyNormal:
		return normalOps{}, nil
	}
	return nil, core.NewDomainError(f.String(), "unknown family")
}

// Support returns the family's natural domain
func (f Family) Support() (lo, hi float64) {
	ops, err := f.ops()
	if err != nil {
		return math.Inf(-1), math.Inf(1)
	}
	return ops.support()
}

// ValidateComponent checks the component's parameters against the family domain
func (f Family) ValidateComponent(c Component) error {
	ops, err := f.ops()
	if err != nil {
		return err
	}
	if c.Weight < 0 || c.Weight > 1 || math.IsNaN(c.Weight) {
		return fmt.Errorf("%w: weight %g outside [0,1]", core.ErrInvalidWeights, c.Weight)
	}
	return ops.validate(c.Params)
}

// ComponentPDF evaluates one component's density, ignoring its weight
func (f Family) ComponentPDF(c Component, x float64) float64 {
	ops, err := f.ops()
	if err != nil {
		return math.NaN()
	}
	return ops.pdf(c.Params, x)
}

// ComponentLogPDF evaluates one component's log density, ignoring its weight
func (f Family) ComponentLogPDF(c Component, x float64) float64 {
	ops, err := f.ops()
	if err != nil {
		return math.NaN()
	}
	return ops.logPDF(c.Params, x)
}

// ComponentMean returns one component's mean
func (f Family) ComponentMean(c Component) float64 {
	ops, err := f.ops()
	if err != nil {
		return math.NaN()
	}
	return ops.mean(c.Params)
}

// ComponentVariance returns one component's variance
func (f Family) ComponentVariance(c Component) float64 {
	ops, err := f.ops()
	if err != nil {
		return math.NaN()
	}
	return ops.variance(c.Params)
}

// ComponentFromMoments builds a component whose mean and variance match the
// given values, with the given weight. Used by the EM M-step and by moment ESS.
func (f Family) ComponentFromMoments(weight, mean, variance float64) (Component, error) {
	ops, err := f.ops()
	if err != nil {
		return Component{}, err
	}
	p, err := ops.fromMoments(mean, variance)
	if err != nil {
		return Component{}, err
	}
	return Component{Weight: weight, Params: p}, nil
}

// DegreesOfFreedom counts the free parameters of a k-component mixture:
// k-1 free weights plus two parameters per component for every family.
func (f Family) DegreesOfFreedom(k int) int {
	return 3*k - 1
}

// VagueComponent builds the family's canonical non-informative component for
// robustification: Beta and Gamma use the mean/pseudo-observation
// parameterization (a Beta with location 0.5 and pseudoN 2 is uniform);
// Normal uses sd = refScale/sqrt(pseudoN) and requires a reference scale.
func VagueComponent(f Family, weight, location, pseudoN, refScale float64) (Component, error) {
	ops, err := f.ops()
	if err != nil {
		return Component{}, err
	}
	if pseudoN <= 0 {
		return Component{}, core.NewDomainError(f.String(), fmt.Sprintf("pseudo sample size %g must be positive", pseudoN))
	}
	p, err := ops.vague(location, pseudoN, refScale)
	if err != nil {
		return Component{}, err
	}
	return Component{Weight: weight, Params: p}, nil
}

// Numeric helpers shared by the family implementations.

func logBeta(a, b float64) float64 {
	la, _ := math.Lgamma(a)
	lb, _ := math.Lgamma(b)
	lab, _ := math.Lgamma(a + b)
	return la + lb - lab
}

func logChoose(n, k int) float64 {
	ln1, _ := math.Lgamma(float64(n + 1))
	lk1, _ := math.Lgamma(float64(k + 1))
	lnk, _ := math.Lgamma(float64(n - k + 1))
	return ln1 - lk1 - lnk
}
