// Package fitting approximates a sample of posterior draws with a finite
// mixture of conjugate-family components via Expectation-Maximization, with
// automatic component-count selection by AIC.
package fitting

import (
	"math"
	"math/rand"

	"goprior/domain/core"
	"goprior/domain/mixture"
)

// Options controls the EM fit and the component selection sweep
type Options struct {
	MaxIter   int     // EM iteration cap per candidate K (default 500)
	Tol       float64 // relative log-likelihood convergence tolerance (default 1e-6)
	KMax      int     // largest candidate component count (default 4)
	MinWeight float64 // components below this weight are dropped (default 1e-8)
}

// DefaultOptions returns the standard fitting configuration
func DefaultOptions() Options {
	return Options{MaxIter: 500, Tol: 1e-6, KMax: 4, MinWeight: 1e-8}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxIter <= 0 {
		o.MaxIter = d.MaxIter
	}
	if o.Tol <= 0 {
		o.Tol = d.Tol
	}
	if o.KMax <= 0 {
		o.KMax = d.KMax
	}
	if o.MinWeight <= 0 {
		o.MinWeight = d.MinWeight
	}
	return o
}

// Result is one fitted candidate
type Result struct {
	Mixture    mixture.Mixture
	Components int
	LogLik     float64
	AIC        float64
	Iterations int
	Converged  bool
	DrawsUsed  int
}

// minDraws is the smallest usable sample
const minDraws = 2

// Fit runs EM for a fixed component count k. The draws are filtered to the
// family's support first; fewer than two usable draws is an
// InsufficientDataError. Failure to converge within the iteration cap returns
// the best state found together with a ConvergenceError so a selection sweep
// can continue.
func Fit(draws []float64, family mixture.Family, k int, rng *rand.Rand, opts Options) (Result, error) {
	opts = opts.withDefaults()
	if k < 1 {
		return Result{}, core.NewDomainError(family.String(), "component count must be at least 1")
	}

	data := filterDraws(draws, family)
	if len(data) < minDraws {
		return Result{}, core.NewInsufficientDataError(len(data), minDraws)
	}

	state, err := seedComponents(data, family, k, rng)
	if err != nil {
		return Result{}, err
	}

	varFloor := varianceFloor(data)
	logLik := math.Inf(-1)
	converged := false
	iter := 0
	for ; iter < opts.MaxIter; iter++ {
		next, ll, err := emStep(data, family, state, varFloor)
		if err != nil {
			return Result{}, err
		}
		state = next
		if !math.IsInf(logLik, -1) {
			if math.Abs(ll-logLik) <= opts.Tol*math.Abs(logLik) {
				logLik = ll
				converged = true
				iter++
				break
			}
		}
		logLik = ll
	}

	state = dropDegenerate(state, opts.MinWeight)
	m, err := mixture.New(family, state...)
	if err != nil {
		return Result{}, err
	}
	m = m.Sorted()

	// Score the mixture actually returned: the loop's log-likelihood lags one
	// M-step behind, and dropDegenerate may have altered the components.
	logLik = logLikelihood(data, family, m.Components())

	res := Result{
		Mixture:    m,
		Components: m.Len(),
		LogLik:     logLik,
		AIC:        aic(family, m.Len(), logLik),
		Iterations: iter,
		Converged:  converged,
		DrawsUsed:  len(data),
	}
	if !converged {
		return res, core.NewConvergenceError(k, opts.MaxIter)
	}
	return res, nil
}

// logLikelihood scores the components on the data with the same log-sum-exp
// computation as the E-step.
func logLikelihood(data []float64, family mixture.Family, comps []mixture.Component) float64 {
	logW := make([]float64, len(comps))
	for j, c := range comps {
		logW[j] = math.Log(c.Weight)
	}
	total := 0.0
	for _, x := range data {
		maxLog := math.Inf(-1)
		terms := make([]float64, len(comps))
		for j, c := range comps {
			terms[j] = logW[j] + family.ComponentLogPDF(c, x)
			if terms[j] > maxLog {
				maxLog = terms[j]
			}
		}
		sum := 0.0
		for _, t := range terms {
			sum += math.Exp(t - maxLog)
		}
		total += maxLog + math.Log(sum)
	}
	return total
}

// emStep performs one E+M iteration and returns the updated components with
// the log-likelihood of the incoming state.
func emStep(data []float64, family mixture.Family, comps []mixture.Component, varFloor float64) ([]mixture.Component, float64, error) {
	k := len(comps)
	n := len(data)

	// E-step in log space.
	logLik := 0.0
	resp := make([]float64, k) // reused per draw
	sumW := make([]float64, k)
	sumX := make([]float64, k)
	sumXX := make([]float64, k)
	for _, x := range data {
		maxLog := math.Inf(-1)
		for j, c := range comps {
			resp[j] = math.Log(c.Weight) + family.ComponentLogPDF(c, x)
			if resp[j] > maxLog {
				maxLog = resp[j]
			}
		}
		total := 0.0
		for j := range resp {
			resp[j] = math.Exp(resp[j] - maxLog)
			total += resp[j]
		}
		logLik += maxLog + math.Log(total)
		for j := range resp {
			r := resp[j] / total
			sumW[j] += r
			sumX[j] += r * x
			sumXX[j] += r * x * x
		}
	}

	// M-step: weighted moments per component, mapped back to family
	// parameters. Exact MLE for normal components, moment matching for beta
	// and gamma.
	next := make([]mixture.Component, 0, k)
	for j := range comps {
		if sumW[j] <= 0 {
			continue
		}
		w := sumW[j] / float64(n)
		mean := sumX[j] / sumW[j]
		variance := sumXX[j]/sumW[j] - mean*mean
		c, err := componentFromMoments(family, w, mean, variance, varFloor)
		if err != nil {
			return nil, 0, err
		}
		next = append(next, c)
	}
	next = renormalize(next)
	return next, logLik, nil
}

// componentFromMoments applies the family's moment map with floors keeping
// degenerate clusters inside the parameter domain.
func componentFromMoments(family mixture.Family, w, mean, variance, varFloor float64) (mixture.Component, error) {
	if variance < varFloor {
		variance = varFloor
	}
	switch family {
	case mixture.FamilyBeta:
		const eps = 1e-9
		mean = math.Min(math.Max(mean, eps), 1-eps)
		limit := mean * (1 - mean)
		if variance >= limit {
			variance = 0.999 * limit
		}
	case mixture.FamilyGamma:
		if mean <= 0 {
			mean = math.Sqrt(varFloor)
		}
	}
	return family.ComponentFromMoments(w, mean, variance)
}

func aic(family mixture.Family, k int, logLik float64) float64 {
	return 2*float64(family.DegreesOfFreedom(k)) - 2*logLik
}

// filterDraws keeps finite draws inside the family's open support
func filterDraws(draws []float64, family mixture.Family) []float64 {
	lo, hi := family.Support()
	out := make([]float64, 0, len(draws))
	for _, x := range draws {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		if x <= lo || x >= hi {
			continue
		}
		out = append(out, x)
	}
	return out
}

// varianceFloor is the minimum component variance, relative to the sample
// spread so collapsing components are regularized instead of going singular.
func varianceFloor(data []float64) float64 {
	mean := 0.0
	for _, x := range data {
		mean += x
	}
	mean /= float64(len(data))
	ss := 0.0
	for _, x := range data {
		d := x - mean
		ss += d * d
	}
	sampleVar := ss / float64(len(data))
	floor := 1e-6 * sampleVar
	if floor <= 0 {
		floor = 1e-12
	}
	return floor
}

func dropDegenerate(comps []mixture.Component, minWeight float64) []mixture.Component {
	kept := make([]mixture.Component, 0, len(comps))
	for _, c := range comps {
		if c.Weight >= minWeight {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		// Keep the heaviest component rather than fail: K=1 must always be
		// a valid fallback.
		best := comps[0]
		for _, c := range comps[1:] {
			if c.Weight > best.Weight {
				best = c
			}
		}
		best.Weight = 1
		return []mixture.Component{best}
	}
	return renormalize(kept)
}

func renormalize(comps []mixture.Component) []mixture.Component {
	sum := 0.0
	for _, c := range comps {
		sum += c.Weight
	}
	if sum <= 0 {
		return comps
	}
	for i := range comps {
		comps[i].Weight /= sum
	}
	return comps
}
