package mixture

import (
	"fmt"
	"math"

	"goprior/domain/core"
)

// Summary is the sufficient statistic of one observed data batch, consumed by
// the conjugate update. Each family accepts exactly one summary kind: Beta
// takes BinomialSummary, Gamma takes PoissonSummary, Normal takes
// NormalSummary.
type Summary interface {
	Kind() string
	Validate() error
}

// BinomialSummary is r responders out of n subjects
type BinomialSummary struct {
	N          int `json:"n"`
	Responders int `json:"responders"`
}

func (s BinomialSummary) Kind() string { return "binomial" }

func (s BinomialSummary) Validate() error {
	if s.N <= 0 {
		return core.NewDomainError("binomial", fmt.Sprintf("sample size %d must be positive", s.N))
	}
	if s.Responders < 0 || s.Responders > s.N {
		return core.NewDomainError("binomial", fmt.Sprintf("responders %d outside [0,%d]", s.Responders, s.N))
	}
	return nil
}

// NormalSummary is an observed sample mean with its standard error. When the
// standard error is not known directly, NewNormalSummary derives it from the
// sampling standard deviation and the sample size.
type NormalSummary struct {
	Mean float64 `json:"mean"`
	SE   float64 `json:"se"`
}

func (s NormalSummary) Kind() string { return "normal" }

func (s NormalSummary) Validate() error {
	if math.IsNaN(s.Mean) || math.IsInf(s.Mean, 0) {
		return core.NewDomainError("normal", "mean must be finite")
	}
	if s.SE <= 0 || math.IsNaN(s.SE) || math.IsInf(s.SE, 0) {
		return core.NewDomainError("normal", fmt.Sprintf("standard error %g must be positive and finite", s.SE))
	}
	return nil
}

// NewNormalSummary builds a NormalSummary from mean, sampling sd and n
func NewNormalSummary(mean, sigma float64, n int) (NormalSummary, error) {
	if n <= 0 {
		return NormalSummary{}, core.NewDomainError("normal", fmt.Sprintf("sample size %d must be positive", n))
	}
	if sigma <= 0 {
		return NormalSummary{}, core.NewDomainError("normal", fmt.Sprintf("sampling sd %g must be positive", sigma))
	}
	return NormalSummary{Mean: mean, SE: sigma / math.Sqrt(float64(n))}, nil
}

// PoissonSummary is a total event count over an exposure (patient-time or
// subject count, depending on the rate's units)
type PoissonSummary struct {
	Events   int     `json:"events"`
	Exposure float64 `json:"exposure"`
}

func (s PoissonSummary) Kind() string { return "poisson" }

func (s PoissonSummary) Validate() error {
	if s.Events < 0 {
		return core.NewDomainError("poisson", fmt.Sprintf("event count %d must be non-negative", s.Events))
	}
	if s.Exposure <= 0 || math.IsNaN(s.Exposure) || math.IsInf(s.Exposure, 0) {
		return core.NewDomainError("poisson", fmt.Sprintf("exposure %g must be positive and finite", s.Exposure))
	}
	return nil
}
