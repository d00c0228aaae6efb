package design

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"goprior/domain/core"
	"goprior/domain/mixture"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/stat/distuv"
)

// ModelKind selects the sampling model of the future trial data
type ModelKind string

const (
	ModelBinomial ModelKind = "binomial"
	ModelNormal   ModelKind = "normal"
)

// Model describes how the future data are generated. Normal requires the
// known sampling standard deviation Sigma.
type Model struct {
	Kind  ModelKind `json:"kind"`
	Sigma float64   `json:"sigma,omitempty"`
}

func (m Model) validate(family mixture.Family) error {
	switch m.Kind {
	case ModelBinomial:
		if family != mixture.FamilyBeta {
			return core.NewIncompatibleFamilyError("oc2S", family.String(), mixture.FamilyBeta.String())
		}
	case ModelNormal:
		if family != mixture.FamilyNormal {
			return core.NewIncompatibleFamilyError("oc2S", family.String(), mixture.FamilyNormal.String())
		}
		if m.Sigma <= 0 || math.IsNaN(m.Sigma) {
			return core.NewDomainError("normal", fmt.Sprintf("sampling sd %g must be positive", m.Sigma))
		}
	default:
		return core.NewDomainError(string(m.Kind), "unknown sampling model")
	}
	return nil
}

// interval is an inclusive success range for the arm-1 outcome; lo > hi
// means no outcome succeeds.
type interval struct {
	lo, hi int
}

func (iv interval) empty() bool { return iv.lo > iv.hi }

// ocQuadPoints is the Gauss-Legendre node count for the gaussian outcome
// integration; the integrand is a product of smooth normal terms so this
// keeps the error well below 1e-6.
const ocQuadPoints = 127

// twoSample holds everything shared between operating-characteristic and
// probability-of-success evaluation: the design priors, the sample sizes,
// the sampling model and the precomputed decision boundary.
type twoSample struct {
	prior1, prior2 mixture.Mixture
	n1, n2         int
	model          Model
	rule           *Decision2S

	// binomial: bounds[y2] is the success interval for y1
	bounds []interval

	// normal: standard errors of the future sample means and the half-width
	// of the boundary search bracket
	se1, se2, brHalf float64
}

func newTwoSample(prior1, prior2 mixture.Mixture, n1, n2 int, model Model, rule *Decision2S) (*twoSample, error) {
	if rule == nil {
		return nil, core.NewDomainError("oc2S", "decision rule required")
	}
	if prior1.Family() != prior2.Family() {
		return nil, core.NewIncompatibleFamilyError("oc2S", prior2.Family().String(), prior1.Family().String())
	}
	if err := model.validate(prior1.Family()); err != nil {
		return nil, err
	}
	if n1 <= 0 || n2 <= 0 {
		return nil, core.NewDomainError("oc2S", fmt.Sprintf("sample sizes (%d, %d) must be positive", n1, n2))
	}

	ts := &twoSample{prior1: prior1, prior2: prior2, n1: n1, n2: n2, model: model, rule: rule}
	switch model.Kind {
	case ModelBinomial:
		if err := ts.computeBinomialBounds(); err != nil {
			return nil, err
		}
	case ModelNormal:
		ts.se1 = model.Sigma / math.Sqrt(float64(n1))
		ts.se2 = model.Sigma / math.Sqrt(float64(n2))
		maxQ := 0.0
		for _, c := range rule.Criteria() {
			maxQ = math.Max(maxQ, math.Abs(c.Quantile))
		}
		ts.brHalf = 10*(ts.se1+ts.se2+prior1.SD()+prior2.SD()+maxQ) + 10
	}
	return ts, nil
}

// decideBinomial applies the rule to the posteriors after observing
// y1/n1 and y2/n2
func (ts *twoSample) decideBinomial(y1, y2 int) (bool, error) {
	post1, err := ts.prior1.PostMix(mixture.BinomialSummary{N: ts.n1, Responders: y1})
	if err != nil {
		return false, err
	}
	post2, err := ts.prior2.PostMix(mixture.BinomialSummary{N: ts.n2, Responders: y2})
	if err != nil {
		return false, err
	}
	return ts.rule.Evaluate(post1, post2)
}

// computeBinomialBounds finds, for every control outcome y2, the interval of
// treatment outcomes y1 that satisfy the rule. The posterior tail
// probability is monotone in y1, so the success set is an interval anchored
// at one end of 0..n1 and binary search locates its edge.
func (ts *twoSample) computeBinomialBounds() error {
	ts.bounds = make([]interval, ts.n2+1)
	for y2 := 0; y2 <= ts.n2; y2++ {
		atLo, err := ts.decideBinomial(0, y2)
		if err != nil {
			return err
		}
		atHi, err := ts.decideBinomial(ts.n1, y2)
		if err != nil {
			return err
		}
		switch {
		case atLo && atHi:
			ts.bounds[y2] = interval{0, ts.n1}
		case !atLo && !atHi:
			ts.bounds[y2] = interval{1, 0}
		case atLo:
			// success for small y1; find the last success
			lo, hi := 0, ts.n1 // invariant: lo succeeds, hi fails
			for hi-lo > 1 {
				mid := (lo + hi) / 2
				ok, err := ts.decideBinomial(mid, y2)
				if err != nil {
					return err
				}
				if ok {
					lo = mid
				} else {
					hi = mid
				}
			}
			ts.bounds[y2] = interval{0, lo}
		default:
			// success for large y1; find the first success
			lo, hi := 0, ts.n1 // invariant: lo fails, hi succeeds
			for hi-lo > 1 {
				mid := (lo + hi) / 2
				ok, err := ts.decideBinomial(mid, y2)
				if err != nil {
					return err
				}
				if ok {
					hi = mid
				} else {
					lo = mid
				}
			}
			ts.bounds[y2] = interval{hi, ts.n1}
		}
	}
	return nil
}

// decideNormal applies the rule to the posteriors after observing sample
// means ybar1 and ybar2
func (ts *twoSample) decideNormal(ybar1, ybar2 float64) (bool, error) {
	post1, err := ts.prior1.PostMix(mixture.NormalSummary{Mean: ybar1, SE: ts.se1})
	if err != nil {
		return false, err
	}
	post2, err := ts.prior2.PostMix(mixture.NormalSummary{Mean: ybar2, SE: ts.se2})
	if err != nil {
		return false, err
	}
	return ts.rule.Evaluate(post1, post2)
}

// normalBoundary locates, for a fixed control mean ybar2, the critical
// treatment mean where the decision flips. Returns the success direction:
// dir < 0 success for ybar1 below the boundary, dir > 0 above, dir = 0 the
// decision does not depend on ybar1 (always, when ok, or never).
func (ts *twoSample) normalBoundary(ybar2 float64) (boundary float64, dir int, ok bool, err error) {
	center := ybar2
	a, b := center-ts.brHalf, center+ts.brHalf
	atLo, err := ts.decideNormal(a, ybar2)
	if err != nil {
		return 0, 0, false, err
	}
	atHi, err := ts.decideNormal(b, ybar2)
	if err != nil {
		return 0, 0, false, err
	}
	if atLo == atHi {
		return 0, 0, atLo, nil
	}
	for i := 0; i < 80 && b-a > 1e-10*math.Max(1, math.Abs(a)); i++ {
		mid := 0.5 * (a + b)
		okMid, err := ts.decideNormal(mid, ybar2)
		if err != nil {
			return 0, 0, false, err
		}
		if okMid == atLo {
			a = mid
		} else {
			b = mid
		}
	}
	boundary = 0.5 * (a + b)
	if atLo {
		return boundary, -1, false, nil
	}
	return boundary, 1, false, nil
}

// OC2S is the closed-form operating-characteristics function of a two-arm
// design: given assumed true parameters for both arms it returns the
// probability that the trial satisfies the decision rule, integrating over
// the sampling distribution of the future data. Pure and safe for
// concurrent use once constructed.
type OC2S struct {
	ts *twoSample
}

// NewOC2S builds the operating-characteristics function. The decision
// boundary is computed once here; Evaluate never mutates state.
func NewOC2S(prior1, prior2 mixture.Mixture, n1, n2 int, model Model, rule *Decision2S) (*OC2S, error) {
	ts, err := newTwoSample(prior1, prior2, n1, n2, model, rule)
	if err != nil {
		return nil, err
	}
	return &OC2S{ts: ts}, nil
}

// Evaluate returns the success probability given the assumed true
// parameters of arm 1 and arm 2.
func (oc *OC2S) Evaluate(theta1, theta2 float64) (float64, error) {
	switch oc.ts.model.Kind {
	case ModelBinomial:
		return oc.evaluateBinomial(theta1, theta2)
	case ModelNormal:
		return oc.evaluateNormal(theta1, theta2)
	}
	return 0, core.NewDomainError(string(oc.ts.model.Kind), "unknown sampling model")
}

func (oc *OC2S) evaluateBinomial(theta1, theta2 float64) (float64, error) {
	for i, th := range []float64{theta1, theta2} {
		if th < 0 || th > 1 || math.IsNaN(th) {
			return 0, core.NewDomainError("binomial", fmt.Sprintf("true rate %g for arm %d outside [0,1]", th, i+1))
		}
	}
	ts := oc.ts
	arm1 := distuv.Binomial{N: float64(ts.n1), P: theta1}
	arm2 := distuv.Binomial{N: float64(ts.n2), P: theta2}

	p := 0.0
	for y2 := 0; y2 <= ts.n2; y2++ {
		iv := ts.bounds[y2]
		if iv.empty() {
			continue
		}
		p += binomialPMF(arm2, y2) * binomialIntervalProb(arm1, iv)
	}
	return clampProb(p), nil
}

// binomialPMF handles the degenerate rates 0 and 1, where the log-space pmf
// is undefined, as point masses.
func binomialPMF(d distuv.Binomial, y int) float64 {
	switch d.P {
	case 0:
		if y == 0 {
			return 1
		}
		return 0
	case 1:
		if y == int(d.N) {
			return 1
		}
		return 0
	}
	return d.Prob(float64(y))
}

func (oc *OC2S) evaluateNormal(theta1, theta2 float64) (float64, error) {
	ts := oc.ts
	outer := distuv.Normal{Mu: theta2, Sigma: ts.se2}
	lo, hi := theta2-8*ts.se2, theta2+8*ts.se2

	var quadErr error
	p := quad.Fixed(func(ybar2 float64) float64 {
		if quadErr != nil {
			return 0
		}
		boundary, dir, always, err := ts.normalBoundary(ybar2)
		if err != nil {
			quadErr = err
			return 0
		}
		var success float64
		switch dir {
		case 0:
			if always {
				success = 1
			}
		case -1:
			success = distuv.Normal{Mu: theta1, Sigma: ts.se1}.CDF(boundary)
		case 1:
			success = 1 - distuv.Normal{Mu: theta1, Sigma: ts.se1}.CDF(boundary)
		}
		return outer.Prob(ybar2) * success
	}, lo, hi, ocQuadPoints, quad.Legendre{}, 0)
	if quadErr != nil {
		return 0, quadErr
	}
	return clampProb(p), nil
}

// EvaluateGrid evaluates the function over the cartesian grid
// theta1 x theta2, with rows computed concurrently. The result is indexed
// [i][j] for (theta1[i], theta2[j]).
func (oc *OC2S) EvaluateGrid(ctx context.Context, theta1, theta2 []float64) ([][]float64, error) {
	out := make([][]float64, len(theta1))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range theta1 {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			row := make([]float64, len(theta2))
			for j := range theta2 {
				p, err := oc.Evaluate(theta1[i], theta2[j])
				if err != nil {
					return err
				}
				row[j] = p
			}
			out[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func binomialIntervalProb(d distuv.Binomial, iv interval) float64 {
	switch d.P {
	case 0:
		if iv.lo == 0 {
			return 1
		}
		return 0
	case 1:
		if iv.hi == int(d.N) {
			return 1
		}
		return 0
	}
	p := d.CDF(float64(iv.hi))
	if iv.lo > 0 {
		p -= d.CDF(float64(iv.lo - 1))
	}
	return p
}

func clampProb(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
