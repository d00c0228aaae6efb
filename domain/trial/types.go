// Package trial holds the grouped summary data of historical trials used to
// derive Meta-Analytic-Predictive priors.
package trial

import (
	"fmt"
	"math"

	"goprior/domain/core"
)

// Endpoint selects the sampling model of the meta-analysis
type Endpoint string

const (
	EndpointBinomial Endpoint = "binomial"
	EndpointGaussian Endpoint = "gaussian"
	EndpointPoisson  Endpoint = "poisson"
)

// Valid reports whether the endpoint is one of the supported sampling models
func (e Endpoint) Valid() bool {
	switch e {
	case EndpointBinomial, EndpointGaussian, EndpointPoisson:
		return true
	}
	return false
}

// StudyRow is one historical study's summary: the sample size plus either an
// event count (binomial/poisson endpoints) or a mean with standard error
// (gaussian endpoint).
type StudyRow struct {
	Study  core.StudyID `json:"study"`
	N      int          `json:"n"`
	Events int          `json:"events,omitempty"`
	Mean   float64      `json:"mean,omitempty"`
	SE     float64      `json:"se,omitempty"`
}

// HistoricalData is an ordered collection of study rows for one endpoint
type HistoricalData struct {
	Endpoint Endpoint   `json:"endpoint"`
	Rows     []StudyRow `json:"rows"`
}

// Validate checks endpoint support and per-row consistency
func (d HistoricalData) Validate() error {
	if !d.Endpoint.Valid() {
		return core.NewDomainError(string(d.Endpoint), "unsupported endpoint")
	}
	if len(d.Rows) == 0 {
		return fmt.Errorf("%w: no historical studies", core.ErrInsufficientData)
	}
	seen := make(map[core.StudyID]bool, len(d.Rows))
	for i, r := range d.Rows {
		if r.Study.String() == "" {
			return core.NewDomainError("study", fmt.Sprintf("row %d has no study id", i))
		}
		if seen[r.Study] {
			return core.NewDomainError("study", fmt.Sprintf("duplicate study id %s", r.Study))
		}
		seen[r.Study] = true
		if r.N <= 0 {
			return core.NewDomainError("study", fmt.Sprintf("study %s sample size %d must be positive", r.Study, r.N))
		}
		switch d.Endpoint {
		case EndpointBinomial:
			if r.Events < 0 || r.Events > r.N {
				return core.NewDomainError("study", fmt.Sprintf("study %s events %d outside [0,%d]", r.Study, r.Events, r.N))
			}
		case EndpointPoisson:
			if r.Events < 0 {
				return core.NewDomainError("study", fmt.Sprintf("study %s events %d must be non-negative", r.Study, r.Events))
			}
		case EndpointGaussian:
			if math.IsNaN(r.Mean) || math.IsInf(r.Mean, 0) {
				return core.NewDomainError("study", fmt.Sprintf("study %s mean must be finite", r.Study))
			}
			if r.SE <= 0 || math.IsNaN(r.SE) || math.IsInf(r.SE, 0) {
				return core.NewDomainError("study", fmt.Sprintf("study %s standard error %g must be positive", r.Study, r.SE))
			}
		}
	}
	return nil
}

// TotalN sums sample sizes over studies
func (d HistoricalData) TotalN() int {
	total := 0
	for _, r := range d.Rows {
		total += r.N
	}
	return total
}

// PooledEstimate is the naive pooled summary, useful for seeding and sanity
// checks, never as a substitute for the hierarchical analysis.
func (d HistoricalData) PooledEstimate() float64 {
	switch d.Endpoint {
	case EndpointBinomial, EndpointPoisson:
		events, n := 0, 0
		for _, r := range d.Rows {
			events += r.Events
			n += r.N
		}
		if n == 0 {
			return math.NaN()
		}
		return float64(events) / float64(n)
	case EndpointGaussian:
		// Inverse-variance weighting.
		num, den := 0.0, 0.0
		for _, r := range d.Rows {
			w := 1 / (r.SE * r.SE)
			num += w * r.Mean
			den += w
		}
		if den == 0 {
			return math.NaN()
		}
		return num / den
	}
	return math.NaN()
}
