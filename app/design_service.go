package app

import (
	"context"
	"fmt"
	"time"

	"goprior/domain/core"
	"goprior/domain/mixture"
	"goprior/internal/design"
	"goprior/internal/ess"
	"goprior/ports"
)

// DesignService exposes the prior-manipulation and trial-design operations:
// robustification, effective sample size, and the analytic operating
// characteristics of two-arm designs built on stored or supplied priors.
type DesignService struct {
	storePort ports.PriorStore
}

// NewDesignService creates a design service. The store may be nil when all
// priors arrive inline with the requests.
func NewDesignService(storePort ports.PriorStore) *DesignService {
	return &DesignService{storePort: storePort}
}

// PriorRef identifies a prior either by its stored id or by an inline record.
// Exactly one of the two must be set.
type PriorRef struct {
	ID     core.PriorID
	Record *mixture.Record
}

func (s *DesignService) resolve(ctx context.Context, ref PriorRef) (mixture.Mixture, error) {
	switch {
	case ref.Record != nil && ref.ID != "":
		return mixture.Mixture{}, core.NewDomainError("design", "prior reference sets both id and record")
	case ref.Record != nil:
		return mixture.FromRecord(*ref.Record)
	case ref.ID != "":
		if s.storePort == nil {
			return mixture.Mixture{}, core.NewDomainError("design", "prior store not configured")
		}
		stored, err := s.storePort.GetPrior(ctx, ref.ID)
		if err != nil {
			return mixture.Mixture{}, err
		}
		return mixture.FromRecord(stored.Record)
	}
	return mixture.Mixture{}, core.NewDomainError("design", "prior reference is empty")
}

// RobustifyRequest adds a vague component to an existing prior
type RobustifyRequest struct {
	Prior    PriorRef
	Weight   float64
	Location float64
	PseudoN  float64
	// SaveAs persists the robustified prior under this name when non-empty.
	SaveAs string
}

// RobustifyResult reports the robustified prior and the effect on its
// effective sample size
type RobustifyResult struct {
	Prior     mixture.Mixture
	ESSBefore float64
	ESSAfter  float64
	StoredID  core.PriorID
}

// Robustify mixes a weakly-informative component into the prior and reports
// the effective-sample-size shrinkage it buys.
func (s *DesignService) Robustify(ctx context.Context, req RobustifyRequest, method ess.Method) (*RobustifyResult, error) {
	prior, err := s.resolve(ctx, req.Prior)
	if err != nil {
		return nil, err
	}
	before, err := ess.Compute(prior, method)
	if err != nil {
		return nil, fmt.Errorf("effective sample size of input prior: %w", err)
	}
	robust, err := prior.RobustifyDefault(req.Weight, req.Location, req.PseudoN)
	if err != nil {
		return nil, err
	}
	after, err := ess.Compute(robust, method)
	if err != nil {
		return nil, fmt.Errorf("effective sample size of robustified prior: %w", err)
	}

	result := &RobustifyResult{Prior: robust, ESSBefore: before, ESSAfter: after}
	if req.SaveAs != "" {
		if s.storePort == nil {
			return nil, core.NewDomainError("design", "prior store not configured")
		}
		serialized, err := robust.EncodeJSON()
		if err != nil {
			return nil, err
		}
		stored := ports.StoredPrior{
			ID:          core.PriorID(core.NewID()),
			Name:        req.SaveAs,
			Record:      robust.Record(),
			Fingerprint: core.NewPriorFingerprint(serialized),
			CreatedAt:   core.Now(),
		}
		if err := s.storePort.SavePrior(ctx, stored); err != nil {
			return nil, fmt.Errorf("failed to store robustified prior: %w", err)
		}
		result.StoredID = stored.ID
	}
	return result, nil
}

// ESS resolves a prior and computes its effective sample size
func (s *DesignService) ESS(ctx context.Context, ref PriorRef, method ess.Method) (float64, error) {
	prior, err := s.resolve(ctx, ref)
	if err != nil {
		return 0, err
	}
	return ess.Compute(prior, method)
}

// OCRequest describes a two-arm design and the truth grid to evaluate
type OCRequest struct {
	Prior1, Prior2 PriorRef
	N1, N2         int
	Model          design.Model
	LowerTail      bool
	Criteria       []design.Criterion
	Theta1, Theta2 []float64
}

// OCResult is the success-probability surface over the truth grid
type OCResult struct {
	Grid      [][]float64
	RuntimeMs int64
}

// OperatingCharacteristics evaluates the design's frequentist success
// probabilities over the requested truth grid.
func (s *DesignService) OperatingCharacteristics(ctx context.Context, req OCRequest) (*OCResult, error) {
	startTime := time.Now()

	prior1, prior2, rule, err := s.buildDesign(ctx, req.Prior1, req.Prior2, req.LowerTail, req.Criteria)
	if err != nil {
		return nil, err
	}
	oc, err := design.NewOC2S(prior1, prior2, req.N1, req.N2, req.Model, rule)
	if err != nil {
		return nil, err
	}
	grid, err := oc.EvaluateGrid(ctx, req.Theta1, req.Theta2)
	if err != nil {
		return nil, err
	}
	return &OCResult{Grid: grid, RuntimeMs: time.Since(startTime).Milliseconds()}, nil
}

// PoSRequest describes a probability-of-success evaluation at an interim
type PoSRequest struct {
	Prior1, Prior2     PriorRef
	N1, N2             int
	Model              design.Model
	LowerTail          bool
	Criteria           []design.Criterion
	Interim1, Interim2 PriorRef
}

// ProbabilityOfSuccess evaluates the design's predictive success probability
// under the interim posteriors.
func (s *DesignService) ProbabilityOfSuccess(ctx context.Context, req PoSRequest) (float64, error) {
	prior1, prior2, rule, err := s.buildDesign(ctx, req.Prior1, req.Prior2, req.LowerTail, req.Criteria)
	if err != nil {
		return 0, err
	}
	ps, err := design.NewPoS2S(prior1, prior2, req.N1, req.N2, req.Model, rule)
	if err != nil {
		return 0, err
	}
	interim1, err := s.resolve(ctx, req.Interim1)
	if err != nil {
		return 0, err
	}
	interim2, err := s.resolve(ctx, req.Interim2)
	if err != nil {
		return 0, err
	}
	return ps.Evaluate(interim1, interim2)
}

func (s *DesignService) buildDesign(ctx context.Context, ref1, ref2 PriorRef, lowerTail bool, criteria []design.Criterion) (mixture.Mixture, mixture.Mixture, *design.Decision2S, error) {
	prior1, err := s.resolve(ctx, ref1)
	if err != nil {
		return mixture.Mixture{}, mixture.Mixture{}, nil, fmt.Errorf("arm 1 prior: %w", err)
	}
	prior2, err := s.resolve(ctx, ref2)
	if err != nil {
		return mixture.Mixture{}, mixture.Mixture{}, nil, fmt.Errorf("arm 2 prior: %w", err)
	}
	rule, err := design.NewDecision2S(lowerTail, criteria...)
	if err != nil {
		return mixture.Mixture{}, mixture.Mixture{}, nil, err
	}
	return prior1, prior2, rule, nil
}
