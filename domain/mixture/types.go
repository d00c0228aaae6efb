// Package mixture implements finite mixtures of conjugate-family
// distributions (Beta, Gamma, Normal) and the closed-form algebra used for
// prior derivation: conjugate posterior updating, robustification and
// difference-distribution tail probabilities.
package mixture

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"goprior/domain/core"
)

// WeightTolerance is the allowed deviation of the component weight sum from 1.
const WeightTolerance = 1e-9

// constructTolerance is the looser tolerance accepted at construction time;
// weights within it are renormalized exactly so downstream invariants hold.
const constructTolerance = 1e-6

// Family identifies the conjugate family shared by all components of a mixture.
type Family int

const (
	FamilyBeta Family = iota
	FamilyGamma
	FamilyNormal
)

// String returns the family name
func (f Family) String() string {
	switch f {
	case FamilyBeta:
		return "beta"
	case FamilyGamma:
		return "gamma"
	case FamilyNormal:
		return "normal"
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// ParseFamily converts a serialized family tag back to a Family
func ParseFamily(s string) (Family, error) {
	switch s {
	case "beta":
		return FamilyBeta, nil
	case "gamma":
		return FamilyGamma, nil
	case "normal":
		return FamilyNormal, nil
	}
	return 0, core.NewDomainError(s, "unknown family tag")
}

// Component is one weighted member of a mixture. The meaning of Params is
// family-specific: Beta (alpha, beta), Gamma (shape, rate),
// Normal (mean, standard deviation).
type Component struct {
	Weight float64
	Params [2]float64
}

// BetaComponent builds a Beta(a, b) component with the given weight
func BetaComponent(weight, a, b float64) Component {
	return Component{Weight: weight, Params: [2]float64{a, b}}
}

// GammaComponent builds a Gamma(shape, rate) component with the given weight
func GammaComponent(weight, shape, rate float64) Component {
	return Component{Weight: weight, Params: [2]float64{shape, rate}}
}

// NormalComponent builds a Normal(mean, sd) component with the given weight
func NormalComponent(weight, mean, sd float64) Component {
	return Component{Weight: weight, Params: [2]float64{mean, sd}}
}

// Mixture is an immutable finite mixture of conjugate-family components.
// All components share one family; weights are non-negative and sum to 1
// within WeightTolerance. Operations never mutate; they return new values.
type Mixture struct {
	family   Family
	comps    []Component
	refScale float64 // Normal only: reference sampling standard deviation
}

// New constructs a validated mixture. Component parameters outside the
// family's domain or an invalid weight vector are rejected.
func New(family Family, comps ...Component) (Mixture, error) {
	if len(comps) == 0 {
		return Mixture{}, core.NewDomainError(family.String(), "mixture needs at least one component")
	}
	ops, err := family.ops()
	if err != nil {
		return Mixture{}, err
	}

	sum := 0.0
	for i, c := range comps {
		if c.Weight < 0 || c.Weight > 1 || math.IsNaN(c.Weight) {
			return Mixture{}, fmt.Errorf("%w: component %d weight %g outside [0,1]", core.ErrInvalidWeights, i, c.Weight)
		}
		if err := ops.validate(c.Params); err != nil {
			return Mixture{}, fmt.Errorf("component %d: %w", i, err)
		}
		sum += c.Weight
	}
	if math.Abs(sum-1) > constructTolerance {
		return Mixture{}, fmt.Errorf("%w: weights sum to %g", core.ErrInvalidWeights, sum)
	}

	// Exact renormalization keeps the 1e-9 invariant through repeated algebra.
	owned := make([]Component, len(comps))
	copy(owned, comps)
	for i := range owned {
		owned[i].Weight /= sum
	}
	return Mixture{family: family, comps: owned}, nil
}

// MustNew is New for statically known mixtures; it panics on invalid input.
func MustNew(family Family, comps ...Component) Mixture {
	m, err := New(family, comps...)
	if err != nil {
		panic(err)
	}
	return m
}

// Family returns the conjugate family tag
func (m Mixture) Family() Family { return m.family }

// Len returns the number of components
func (m Mixture) Len() int { return len(m.comps) }

// Components returns a copy of the ordered component list
func (m Mixture) Components() []Component {
	out := make([]Component, len(m.comps))
	copy(out, m.comps)
	return out
}

// Weights returns a copy of the component weights in order
func (m Mixture) Weights() []float64 {
	out := make([]float64, len(m.comps))
	for i, c := range m.comps {
		out[i] = c.Weight
	}
	return out
}

// RefScale returns the reference sampling standard deviation of a normal
// mixture, or 0 when none was attached.
func (m Mixture) RefScale() float64 { return m.refScale }

// WithRefScale attaches a reference sampling standard deviation. Only normal
// mixtures carry one; it is required for moment ESS and vague components.
func (m Mixture) WithRefScale(sigma float64) (Mixture, error) {
	if m.family != FamilyNormal {
		return Mixture{}, core.NewIncompatibleFamilyError("WithRefScale", m.family.String(), FamilyNormal.String())
	}
	if sigma <= 0 || math.IsNaN(sigma) || math.IsInf(sigma, 0) {
		return Mixture{}, core.NewDomainError(m.family.String(), fmt.Sprintf("reference scale %g must be positive and finite", sigma))
	}
	out := m.clone()
	out.refScale = sigma
	return out, nil
}

func (m Mixture) clone() Mixture {
	comps := make([]Component, len(m.comps))
	copy(comps, m.comps)
	return Mixture{family: m.family, comps: comps, refScale: m.refScale}
}

// PDF evaluates the mixture density at x
func (m Mixture) PDF(x float64) float64 {
	ops, _ := m.family.ops()
	sum := 0.0
	for _, c := range m.comps {
		sum += c.Weight * ops.pdf(c.Params, x)
	}
	return sum
}

// LogPDF evaluates the log mixture density at x
func (m Mixture) LogPDF(x float64) float64 {
	return math.Log(m.PDF(x))
}

// CDF evaluates the mixture distribution function at x
func (m Mixture) CDF(x float64) float64 {
	ops, _ := m.family.ops()
	sum := 0.0
	for _, c := range m.comps {
		sum += c.Weight * ops.cdf(c.Params, x)
	}
	return sum
}

// Quantile inverts the mixture CDF by bisection. Single-component mixtures
// delegate to the family's exact quantile.
func (m Mixture) Quantile(q float64) float64 {
	ops, _ := m.family.ops()
	if q <= 0 {
		lo, _ := ops.support()
		return lo
	}
	if q >= 1 {
		_, hi := ops.support()
		return hi
	}
	if len(m.comps) == 1 {
		return ops.quantile(m.comps[0].Params, q)
	}

	// Component quantiles bracket the mixture quantile: at min_i Q_i(q) the
	// mixture CDF is <= q, at max_i Q_i(q) it is >= q.
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range m.comps {
		cq := ops.quantile(c.Params, q)
		lo = math.Min(lo, cq)
		hi = math.Max(hi, cq)
	}
	if lo == hi {
		return lo
	}
	for i := 0; i < 200 && hi-lo > 1e-12*math.Max(1, math.Abs(lo)); i++ {
		mid := 0.5 * (lo + hi)
		if m.CDF(mid) < q {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0.5 * (lo + hi)
}

// Mean returns the mixture mean
func (m Mixture) Mean() float64 {
	ops, _ := m.family.ops()
	sum := 0.0
	for _, c := range m.comps {
		sum += c.Weight * ops.mean(c.Params)
	}
	return sum
}

// Variance returns the mixture variance via the law of total variance
func (m Mixture) Variance() float64 {
	ops, _ := m.family.ops()
	mean := m.Mean()
	sum := 0.0
	for _, c := range m.comps {
		cm := ops.mean(c.Params)
		sum += c.Weight * (ops.variance(c.Params) + (cm-mean)*(cm-mean))
	}
	return sum
}

// SD returns the mixture standard deviation
func (m Mixture) SD() float64 { return math.Sqrt(m.Variance()) }

// Sample draws one value from the mixture using the injected generator
func (m Mixture) Sample(rng *rand.Rand) float64 {
	ops, _ := m.family.ops()
	u := rng.Float64()
	acc := 0.0
	idx := len(m.comps) - 1
	for i, c := range m.comps {
		acc += c.Weight
		if u < acc {
			idx = i
			break
		}
	}
	return ops.rand(m.comps[idx].Params, rng)
}

// SampleN draws n values from the mixture
func (m Mixture) SampleN(rng *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = m.Sample(rng)
	}
	return out
}

// Fingerprint identifies the mixture's exact numeric content
func (m Mixture) Fingerprint() core.PriorFingerprint {
	vals := make([]float64, 0, 1+3*len(m.comps)+1)
	vals = append(vals, float64(m.family))
	for _, c := range m.comps {
		vals = append(vals, c.Weight, c.Params[0], c.Params[1])
	}
	vals = append(vals, m.refScale)
	return core.FingerprintFloats(vals)
}

// Sorted returns a copy with components ordered by descending weight,
// breaking ties on the first parameter. Useful for stable comparison.
func (m Mixture) Sorted() Mixture {
	out := m.clone()
	sort.SliceStable(out.comps, func(i, j int) bool {
		if out.comps[i].Weight != out.comps[j].Weight {
			return out.comps[i].Weight > out.comps[j].Weight
		}
		return out.comps[i].Params[0] < out.comps[j].Params[0]
	})
	return out
}

// AlmostEqual compares two mixtures component-wise within tol
func AlmostEqual(a, b Mixture, tol float64) bool {
	if a.family != b.family || len(a.comps) != len(b.comps) {
		return false
	}
	for i := range a.comps {
		if math.Abs(a.comps[i].Weight-b.comps[i].Weight) > tol {
			return false
		}
		for p := 0; p < 2; p++ {
			if math.Abs(a.comps[i].Params[p]-b.comps[i].Params[p]) > tol {
				return false
			}
		}
	}
	return true
}

// String renders the mixture for logs
func (m Mixture) String() string {
	s := m.family.String() + "["
	for i, c := range m.comps {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%.4g*(%.4g,%.4g)", c.Weight, c.Params[0], c.Params[1])
	}
	return s + "]"
}
