package ports

import (
	"context"

	"goprior/domain/trial"
)

// PriorSpec parameterizes one hyperparameter prior of the hierarchical model
type PriorSpec struct {
	Mean float64 `json:"mean"`
	SD   float64 `json:"sd"`
}

// SampleRequest describes a hierarchical random-effects meta-analysis for the
// external MCMC engine: the endpoint's sampling model, the grouped historical
// data, priors for the population intercept and the between-trial
// heterogeneity (half-normal scale), and the sampling controls.
type SampleRequest struct {
	Data            trial.HistoricalData `json:"data"`
	InterceptPrior  PriorSpec            `json:"intercept_prior"`
	HeterogeneitySD float64              `json:"heterogeneity_sd"`
	Chains          int                  `json:"chains"`
	Iterations      int                  `json:"iterations"`
	Warmup          int                  `json:"warmup"`
	Seed            int64                `json:"seed"`
}

// SamplerDiagnostics carries the convergence evidence of an MCMC run.
// Non-convergence is surfaced through these fields, never silently dropped.
type SamplerDiagnostics struct {
	Divergences   int     `json:"divergences"`
	MaxRhat       float64 `json:"max_rhat"`
	MinESSBulk    float64 `json:"min_ess_bulk"`
	TotalDraws    int     `json:"total_draws"`
	WarmupDropped int     `json:"warmup_dropped"`
}

// Converged applies the usual acceptance thresholds: no divergent
// transitions and split-Rhat at or below 1.1 for every parameter.
func (d SamplerDiagnostics) Converged() bool {
	return d.Divergences == 0 && d.MaxRhat <= 1.1
}

// SampleResult is the raw posterior sample of the new-trial parameter
// (the predictive draws of the MAP analysis) plus diagnostics.
type SampleResult struct {
	// Draws holds the posterior draws of the population-level parameter on
	// the response scale (rate, mean, or event rate depending on endpoint).
	Draws []float64 `json:"draws"`
	// ThetaNew holds the predictive draws for a new trial, the basis of the
	// MAP prior. Falls back to Draws when the engine does not report it.
	ThetaNew    []float64          `json:"theta_new"`
	Diagnostics SamplerDiagnostics `json:"diagnostics"`
}

// PosteriorSampler wraps the external Bayesian sampling engine. All
// downstream computation is deterministic given the returned draws.
type PosteriorSampler interface {
	Sample(ctx context.Context, req SampleRequest) (*SampleResult, error)
}
