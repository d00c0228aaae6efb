// Package design builds trial decision rules and evaluates their operating
// characteristics analytically over the posterior-predictive distribution of
// future data, without simulation.
package design

import (
	"fmt"

	"goprior/domain/core"
	"goprior/domain/mixture"
)

// Criterion is one success condition: a posterior tail probability that must
// exceed Prob at the comparison quantile Quantile.
type Criterion struct {
	Prob     float64 `json:"prob"`
	Quantile float64 `json:"quantile"`
}

func validateCriteria(criteria []Criterion) error {
	if len(criteria) == 0 {
		return core.NewDomainError("decision", "at least one criterion required")
	}
	for i, c := range criteria {
		if c.Prob <= 0 || c.Prob >= 1 {
			return core.NewDomainError("decision", fmt.Sprintf("criterion %d probability %g outside (0,1)", i, c.Prob))
		}
	}
	return nil
}

// Decision2S is a success predicate over a pair of posterior mixtures.
// With lowerTail true, criterion (p, q) requires Pr(A-B < q) > p;
// with lowerTail false it requires Pr(A-B > q) > p. All criteria must hold.
// Immutable once constructed.
type Decision2S struct {
	criteria  []Criterion
	lowerTail bool
}

// NewDecision2S constructs a two-sample decision rule
func NewDecision2S(lowerTail bool, criteria ...Criterion) (*Decision2S, error) {
	if err := validateCriteria(criteria); err != nil {
		return nil, err
	}
	owned := make([]Criterion, len(criteria))
	copy(owned, criteria)
	return &Decision2S{criteria: owned, lowerTail: lowerTail}, nil
}

// Evaluate applies the rule to two posterior mixtures
func (d *Decision2S) Evaluate(a, b mixture.Mixture) (bool, error) {
	for _, c := range d.criteria {
		p, err := mixture.PMixDiff(a, b, c.Quantile)
		if err != nil {
			return false, err
		}
		if !d.lowerTail {
			p = 1 - p
		}
		if !(p > c.Prob) {
			return false, nil
		}
	}
	return true, nil
}

// LowerTail reports the rule's direction
func (d *Decision2S) LowerTail() bool { return d.lowerTail }

// Criteria returns a copy of the rule's criteria
func (d *Decision2S) Criteria() []Criterion {
	out := make([]Criterion, len(d.criteria))
	copy(out, d.criteria)
	return out
}

// Decision1S is the one-sample analogue: criterion (p, q) requires
// Pr(theta < q) > p (lower tail) or Pr(theta > q) > p (upper tail) under the
// posterior mixture.
type Decision1S struct {
	criteria  []Criterion
	lowerTail bool
}

// NewDecision1S constructs a one-sample decision rule
func NewDecision1S(lowerTail bool, criteria ...Criterion) (*Decision1S, error) {
	if err := validateCriteria(criteria); err != nil {
		return nil, err
	}
	owned := make([]Criterion, len(criteria))
	copy(owned, criteria)
	return &Decision1S{criteria: owned, lowerTail: lowerTail}, nil
}

// Evaluate applies the rule to a posterior mixture
func (d *Decision1S) Evaluate(post mixture.Mixture) bool {
	for _, c := range d.criteria {
		p := post.CDF(c.Quantile)
		if !d.lowerTail {
			p = 1 - p
		}
		if !(p > c.Prob) {
			return false
		}
	}
	return true
}
