package app

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"goprior/domain/core"
	"goprior/domain/mixture"
	"goprior/domain/trial"
	"goprior/internal"
	"goprior/internal/fitting"
	"goprior/ports"
)

// MAPService orchestrates meta-analytic-predictive prior derivation: it runs
// the hierarchical model on the external sampler, fits a parametric mixture
// to the predictive draws and hands back a validated prior with its full
// audit trail.
type MAPService struct {
	samplerPort ports.PosteriorSampler
	rngPort     ports.RNGPort
	storePort   ports.PriorStore
	sampling    SamplingDefaults
	fitOpts     fitting.Options
}

// SamplingDefaults are the MCMC controls applied when a request leaves them
// unset
type SamplingDefaults struct {
	Chains     int
	Iterations int
	Warmup     int
}

// MAPRequest defines inputs for a MAP prior derivation
type MAPRequest struct {
	Data            trial.HistoricalData
	InterceptPrior  ports.PriorSpec
	HeterogeneitySD float64
	// RefScale is the reference sampling standard deviation, required for
	// the gaussian endpoint where it anchors vague components and the
	// effective sample size.
	RefScale float64
	Seed     int64
	// SaveAs persists the derived prior under this name when non-empty.
	SaveAs string
}

// MAPResult contains the derived prior with its audit trail
type MAPResult struct {
	AnalysisID  core.AnalysisID
	Prior       mixture.Mixture
	Selection   fitting.Selection
	Diagnostics ports.SamplerDiagnostics
	Warnings    []string
	Fingerprint core.PriorFingerprint
	DrawsUsed   int
	RuntimeMs   int64
	StoredID    core.PriorID
}

// NewMAPService creates a MAP prior service. The store may be nil when
// persistence is not configured.
func NewMAPService(samplerPort ports.PosteriorSampler, rngPort ports.RNGPort, storePort ports.PriorStore, sampling SamplingDefaults, fitOpts fitting.Options) *MAPService {
	if sampling.Chains <= 0 {
		sampling.Chains = 4
	}
	if sampling.Iterations <= 0 {
		sampling.Iterations = 2000
	}
	if sampling.Warmup <= 0 {
		sampling.Warmup = sampling.Iterations / 2
	}
	return &MAPService{
		samplerPort: samplerPort,
		rngPort:     rngPort,
		storePort:   storePort,
		sampling:    sampling,
		fitOpts:     fitOpts,
	}
}

// FamilyForEndpoint maps a trial endpoint to its conjugate mixture family
func FamilyForEndpoint(e trial.Endpoint) (mixture.Family, error) {
	switch e {
	case trial.EndpointBinomial:
		return mixture.FamilyBeta, nil
	case trial.EndpointGaussian:
		return mixture.FamilyNormal, nil
	case trial.EndpointPoisson:
		return mixture.FamilyGamma, nil
	}
	return 0, core.NewDomainError(string(e), "unsupported endpoint")
}

// Derive runs the full MAP analysis. Sampler non-convergence is surfaced in
// Warnings rather than failing the analysis; only a sampler error or an
// unusable fit aborts.
func (s *MAPService) Derive(ctx context.Context, req MAPRequest) (*MAPResult, error) {
	startTime := time.Now()

	if err := req.Data.Validate(); err != nil {
		return nil, fmt.Errorf("historical data rejected: %w", err)
	}
	family, err := FamilyForEndpoint(req.Data.Endpoint)
	if err != nil {
		return nil, err
	}
	if family == mixture.FamilyNormal && req.RefScale <= 0 {
		return nil, core.NewDomainError("normal", "reference scale required for gaussian endpoint")
	}
	if req.HeterogeneitySD <= 0 {
		return nil, core.NewDomainError("map", "heterogeneity prior sd must be positive")
	}

	analysisID := core.AnalysisID(core.NewID())
	internal.DefaultLogger.Info("MAP analysis %s: %d studies, endpoint=%s, seed=%d",
		analysisID, len(req.Data.Rows), req.Data.Endpoint, req.Seed)

	sampleRes, err := s.samplerPort.Sample(ctx, ports.SampleRequest{
		Data:            req.Data,
		InterceptPrior:  req.InterceptPrior,
		HeterogeneitySD: req.HeterogeneitySD,
		Chains:          s.sampling.Chains,
		Iterations:      s.sampling.Iterations,
		Warmup:          s.sampling.Warmup,
		Seed:            req.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("posterior sampling failed: %w", err)
	}

	var warnings []string
	if !sampleRes.Diagnostics.Converged() {
		if sampleRes.Diagnostics.Divergences > 0 {
			warnings = append(warnings, fmt.Sprintf("sampler reported %d divergent transitions", sampleRes.Diagnostics.Divergences))
		}
		if sampleRes.Diagnostics.MaxRhat > 1.1 {
			warnings = append(warnings, fmt.Sprintf("split-Rhat %.3f exceeds 1.1, chains may not have mixed", sampleRes.Diagnostics.MaxRhat))
		}
	}

	// The fit stream is keyed by the draws themselves, not the per-run
	// analysis id: the same data and seed must reproduce the identical EM
	// initialization and therefore the identical fitted mixture.
	fitKey := core.FingerprintFloats(sampleRes.ThetaNew).String()
	sel, err := fitting.AutoFitStreams(sampleRes.ThetaNew, family, func(k int) (*rand.Rand, error) {
		return s.rngPort.FitStream(ctx, fitKey, k, req.Seed)
	}, s.fitOpts)
	if err != nil {
		return nil, fmt.Errorf("mixture fit failed: %w", err)
	}
	for _, skip := range sel.Skipped {
		warnings = append(warnings, fmt.Sprintf("candidate fit skipped: %v", skip))
	}

	prior := sel.Best.Mixture
	if family == mixture.FamilyNormal {
		prior, err = prior.WithRefScale(req.RefScale)
		if err != nil {
			return nil, err
		}
	}

	serialized, err := prior.EncodeJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize prior: %w", err)
	}
	fingerprint := core.NewPriorFingerprint(serialized)

	result := &MAPResult{
		AnalysisID:  analysisID,
		Prior:       prior,
		Selection:   sel,
		Diagnostics: sampleRes.Diagnostics,
		Warnings:    warnings,
		Fingerprint: fingerprint,
		DrawsUsed:   sel.Best.DrawsUsed,
	}

	if req.SaveAs != "" {
		if s.storePort == nil {
			return nil, core.NewDomainError("map", "prior store not configured")
		}
		stored := ports.StoredPrior{
			ID:          core.PriorID(core.NewID()),
			Name:        req.SaveAs,
			Record:      prior.Record(),
			Fingerprint: fingerprint,
			CreatedAt:   core.Now(),
		}
		if err := s.storePort.SavePrior(ctx, stored); err != nil {
			return nil, fmt.Errorf("failed to store prior: %w", err)
		}
		result.StoredID = stored.ID
	}

	result.RuntimeMs = time.Since(startTime).Milliseconds()

	if s.storePort != nil {
		record := ports.AnalysisRecord{
			ID:          analysisID,
			PriorID:     result.StoredID,
			Fingerprint: fingerprint,
			Diagnostics: sampleRes.Diagnostics,
			Warnings:    warnings,
			Seed:        req.Seed,
			DrawsUsed:   sel.Best.DrawsUsed,
			RuntimeMs:   result.RuntimeMs,
			CreatedAt:   core.Now(),
		}
		if err := s.storePort.SaveAnalysis(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to store analysis record: %w", err)
		}
	}

	internal.DefaultLogger.Info("MAP analysis %s: fitted %d-component %s mixture in %dms (%d warnings)",
		analysisID, sel.Best.Components, family, result.RuntimeMs, len(warnings))
	return result, nil
}
