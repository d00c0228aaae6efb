package ess

import (
	"errors"
	"math"
	"testing"

	"goprior/domain/core"
	"goprior/domain/mixture"
)

func TestMomentESSSingleComponent(t *testing.T) {
	tests := []struct {
		name string
		m    mixture.Mixture
		want float64
	}{
		{
			name: "beta a+b",
			m:    mixture.MustNew(mixture.FamilyBeta, mixture.BetaComponent(1, 4, 8)),
			want: 12,
		},
		{
			name: "gamma rate",
			m:    mixture.MustNew(mixture.FamilyGamma, mixture.GammaComponent(1, 14, 7)),
			want: 7,
		},
		{
			name: "normal sigma ratio",
			m: func() mixture.Mixture {
				m := mixture.MustNew(mixture.FamilyNormal, mixture.NormalComponent(1, 0, 2))
				m, _ = m.WithRefScale(8)
				return m
			}(),
			want: 16,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.m, Moment)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("moment ESS = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMoritaESSSingleBeta(t *testing.T) {
	// For a single Beta(a,b) with an interior mode, the mode-matched
	// information equality solves to a+b-2 exactly.
	m := mixture.MustNew(mixture.FamilyBeta, mixture.BetaComponent(1, 4, 8))
	got, err := Compute(m, Morita)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-10) > 1e-3 {
		t.Errorf("morita ESS = %v, want 10", got)
	}
}

func TestMoritaESSNormalMatchesMoment(t *testing.T) {
	// A single gaussian has constant curvature, so Morita and moment agree.
	m := mixture.MustNew(mixture.FamilyNormal, mixture.NormalComponent(1, 1, 0.5))
	m, _ = m.WithRefScale(4)

	morita, err := Compute(m, Morita)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	moment, err := Compute(m, Moment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(morita-moment) > 0.05*moment {
		t.Errorf("morita %v and moment %v should agree for one gaussian", morita, moment)
	}
}

func TestELIRESSSingleBeta(t *testing.T) {
	// The expected local-information-ratio of a single Beta(a,b) prior under
	// binomial sampling is a+b.
	m := mixture.MustNew(mixture.FamilyBeta, mixture.BetaComponent(1, 5, 15))
	got, err := Compute(m, ELIR)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-20) > 0.2 {
		t.Errorf("elir ESS = %v, want 20", got)
	}
}

func TestELIRESSSingleComponentIdentities(t *testing.T) {
	// The pointwise information ratio integrates to closed forms for single
	// conjugate components: Gamma(a,b) under Poisson sampling gives b, a
	// gaussian gives sigma_ref^2/sigma^2 (constant ratio, so it matches the
	// moment convention exactly).
	gamma := mixture.MustNew(mixture.FamilyGamma, mixture.GammaComponent(1, 14, 7))
	got, err := Compute(gamma, ELIR)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-7) > 0.1 {
		t.Errorf("gamma elir ESS = %v, want 7", got)
	}

	normal := mixture.MustNew(mixture.FamilyNormal, mixture.NormalComponent(1, 0, 2))
	normal, _ = normal.WithRefScale(8)
	got, err = Compute(normal, ELIR)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-16) > 0.1 {
		t.Errorf("normal elir ESS = %v, want 16", got)
	}
}

func TestRobustificationShrinksESS(t *testing.T) {
	informative := mixture.MustNew(mixture.FamilyBeta, mixture.BetaComponent(1, 20, 60))
	robust, err := informative.RobustifyDefault(0.3, 0.5, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, method := range []Method{Moment, ELIR} {
		before, err := Compute(informative, method)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", method, err)
		}
		after, err := Compute(robust, method)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", method, err)
		}
		if after >= before {
			t.Errorf("%s: robustified ESS %v not below informative ESS %v", method, after, before)
		}
	}
}

func TestESSNormalRequiresRefScale(t *testing.T) {
	m := mixture.MustNew(mixture.FamilyNormal, mixture.NormalComponent(1, 0, 1))
	for _, method := range []Method{Moment, Morita, ELIR} {
		if _, err := Compute(m, method); !errors.Is(err, core.ErrDomain) {
			t.Errorf("%s: got %v, want ErrDomain without reference scale", method, err)
		}
	}
}

func TestESSUnknownMethod(t *testing.T) {
	m := mixture.MustNew(mixture.FamilyBeta, mixture.BetaComponent(1, 1, 2))
	if _, err := Compute(m, Method("bootstrap")); !errors.Is(err, core.ErrDomain) {
		t.Errorf("got %v, want ErrDomain", err)
	}
}
