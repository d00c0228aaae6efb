package mixture

import (
	"errors"
	"math"
	"testing"

	"goprior/domain/core"
)

func TestPostMixBetaConjugate(t *testing.T) {
	tests := []struct {
		name  string
		prior Component
		obs   BinomialSummary
		wantA float64
		wantB float64
	}{
		{
			name:  "uniform prior",
			prior: BetaComponent(1, 1, 1),
			obs:   BinomialSummary{N: 20, Responders: 7},
			wantA: 8,
			wantB: 14,
		},
		{
			name:  "informative prior",
			prior: BetaComponent(1, 12, 28),
			obs:   BinomialSummary{N: 50, Responders: 10},
			wantA: 22,
			wantB: 68,
		},
		{
			name:  "no responders",
			prior: BetaComponent(1, 2, 2),
			obs:   BinomialSummary{N: 10, Responders: 0},
			wantA: 2,
			wantB: 12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prior := MustNew(FamilyBeta, tt.prior)
			post, err := prior.PostMix(tt.obs)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := post.Components()[0]
			if math.Abs(got.Params[0]-tt.wantA) > 1e-12 || math.Abs(got.Params[1]-tt.wantB) > 1e-12 {
				t.Errorf("posterior Beta(%v,%v), want Beta(%v,%v)", got.Params[0], got.Params[1], tt.wantA, tt.wantB)
			}
			if math.Abs(got.Weight-1) > WeightTolerance {
				t.Errorf("single component weight %v, want 1", got.Weight)
			}
		})
	}
}

func TestPostMixNormalConjugate(t *testing.T) {
	// Precision-weighted textbook posterior for a known-variance gaussian.
	prior := MustNew(FamilyNormal, NormalComponent(1, 0, 2))
	obs := NormalSummary{Mean: 3, SE: 1}

	post, err := prior.PostMix(obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prec := 1.0/4.0 + 1.0
	wantVar := 1 / prec
	wantMean := wantVar * (0.0/4.0 + 3.0/1.0)

	got := post.Components()[0]
	if math.Abs(got.Params[0]-wantMean) > 1e-12 {
		t.Errorf("posterior mean %v, want %v", got.Params[0], wantMean)
	}
	if math.Abs(got.Params[1]-math.Sqrt(wantVar)) > 1e-12 {
		t.Errorf("posterior sd %v, want %v", got.Params[1], math.Sqrt(wantVar))
	}
}

func TestPostMixGammaConjugate(t *testing.T) {
	prior := MustNew(FamilyGamma, GammaComponent(1, 4, 2))
	post, err := prior.PostMix(PoissonSummary{Events: 9, Exposure: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := post.Components()[0]
	if got.Params[0] != 13 || got.Params[1] != 5 {
		t.Errorf("posterior Gamma(%v,%v), want Gamma(13,5)", got.Params[0], got.Params[1])
	}
}

func TestPostMixReweightsTowardSupportedComponent(t *testing.T) {
	// A robust 50/50 prior observing data squarely under the informative
	// component must shift weight onto it.
	prior := MustNew(FamilyBeta,
		BetaComponent(0.5, 20, 80), // informative around 0.2
		BetaComponent(0.5, 1, 1),   // vague
	)
	post, err := prior.PostMix(BinomialSummary{N: 100, Responders: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w := post.Weights()
	if w[0] <= 0.5 {
		t.Errorf("informative component weight %v did not grow", w[0])
	}
	sum := w[0] + w[1]
	if math.Abs(sum-1) > WeightTolerance {
		t.Errorf("posterior weights sum to %v", sum)
	}

	// Components still follow the plain conjugate rule.
	got := post.Components()
	if got[0].Params[0] != 40 || got[0].Params[1] != 160 {
		t.Errorf("informative component Beta(%v,%v), want Beta(40,160)", got[0].Params[0], got[0].Params[1])
	}
}

func TestPostMixRejectsWrongSummary(t *testing.T) {
	prior := MustNew(FamilyBeta, BetaComponent(1, 1, 1))
	_, err := prior.PostMix(NormalSummary{Mean: 0, SE: 1})
	if err == nil {
		t.Fatal("expected incompatible family error")
	}
	if !errors.Is(err, core.ErrIncompatibleFamily) {
		t.Errorf("got %v, want ErrIncompatibleFamily", err)
	}
}

func TestPostMixRejectsInvalidSummary(t *testing.T) {
	prior := MustNew(FamilyBeta, BetaComponent(1, 1, 1))
	_, err := prior.PostMix(BinomialSummary{N: 10, Responders: 11})
	if !errors.Is(err, core.ErrDomain) {
		t.Errorf("got %v, want ErrDomain", err)
	}
}
