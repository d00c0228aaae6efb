package design

import (
	"math"
	"testing"

	"goprior/domain/mixture"
)

func TestNewDecision2SValidation(t *testing.T) {
	cases := []struct {
		name     string
		criteria []Criterion
		wantErr  bool
	}{
		{"no criteria", nil, true},
		{"zero prob", []Criterion{{Prob: 0, Quantile: 0}}, true},
		{"prob one", []Criterion{{Prob: 1, Quantile: 0}}, true},
		{"valid", []Criterion{{Prob: 0.975, Quantile: 0}}, false},
		{"valid pair", []Criterion{{Prob: 0.9, Quantile: 0}, {Prob: 0.5, Quantile: -0.1}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDecision2S(true, tc.criteria...)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tc.wantErr)
			}
		})
	}
}

func TestDecision2SIdenticalArms(t *testing.T) {
	// Identical posteriors put exactly half the difference mass below zero,
	// so a strict 95% criterion fails and a 40% one passes.
	post := mixture.MustNew(mixture.FamilyNormal, mixture.NormalComponent(1, 0.3, 0.1))

	strict, err := NewDecision2S(true, Criterion{Prob: 0.95, Quantile: 0})
	if err != nil {
		t.Fatal(err)
	}
	ok, err := strict.Evaluate(post, post)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("strict rule succeeded on identical arms")
	}

	loose, err := NewDecision2S(true, Criterion{Prob: 0.4, Quantile: 0})
	if err != nil {
		t.Fatal(err)
	}
	ok, err = loose.Evaluate(post, post)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("loose rule failed on identical arms")
	}
}

func TestDecision2SSeparatedArms(t *testing.T) {
	a := mixture.MustNew(mixture.FamilyNormal, mixture.NormalComponent(1, -1, 0.1))
	b := mixture.MustNew(mixture.FamilyNormal, mixture.NormalComponent(1, 0, 0.1))

	lower, err := NewDecision2S(true, Criterion{Prob: 0.975, Quantile: 0})
	if err != nil {
		t.Fatal(err)
	}
	ok, err := lower.Evaluate(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("lower-tail rule failed with a clearly lower")
	}

	upper, err := NewDecision2S(false, Criterion{Prob: 0.975, Quantile: 0})
	if err != nil {
		t.Fatal(err)
	}
	ok, err = upper.Evaluate(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("upper-tail rule succeeded with a clearly lower")
	}
}

func TestDecision2SAllCriteriaMustHold(t *testing.T) {
	a := mixture.MustNew(mixture.FamilyNormal, mixture.NormalComponent(1, -1, 0.2))
	b := mixture.MustNew(mixture.FamilyNormal, mixture.NormalComponent(1, 0, 0.2))

	// Pr(diff < 0) is near 1 but Pr(diff < -3) is near 0, so the combined
	// rule must fail.
	rule, err := NewDecision2S(true,
		Criterion{Prob: 0.975, Quantile: 0},
		Criterion{Prob: 0.5, Quantile: -3},
	)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := rule.Evaluate(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("rule succeeded despite failing second criterion")
	}
}

func TestDecision2SFamilyMismatch(t *testing.T) {
	a := mixture.MustNew(mixture.FamilyBeta, mixture.BetaComponent(1, 2, 8))
	b := mixture.MustNew(mixture.FamilyNormal, mixture.NormalComponent(1, 0, 1))

	rule, err := NewDecision2S(true, Criterion{Prob: 0.9, Quantile: 0})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rule.Evaluate(a, b); err == nil {
		t.Error("expected family mismatch error")
	}
}

func TestDecision1SMatchesCDF(t *testing.T) {
	post := mixture.MustNew(mixture.FamilyBeta,
		mixture.BetaComponent(0.7, 4, 16),
		mixture.BetaComponent(0.3, 1, 1),
	)

	cases := []struct {
		name      string
		lowerTail bool
		crit      Criterion
	}{
		{"lower pass", true, Criterion{Prob: 0.5, Quantile: 0.35}},
		{"lower fail", true, Criterion{Prob: 0.999, Quantile: 0.1}},
		{"upper pass", false, Criterion{Prob: 0.5, Quantile: 0.1}},
		{"upper fail", false, Criterion{Prob: 0.99, Quantile: 0.5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule, err := NewDecision1S(tc.lowerTail, tc.crit)
			if err != nil {
				t.Fatal(err)
			}
			p := post.CDF(tc.crit.Quantile)
			if !tc.lowerTail {
				p = 1 - p
			}
			want := p > tc.crit.Prob
			if got := rule.Evaluate(post); got != want {
				t.Errorf("Evaluate = %v, direct tail probability %v gives %v", got, p, want)
			}
		})
	}
}

func TestDecisionCriteriaCopied(t *testing.T) {
	crit := []Criterion{{Prob: 0.9, Quantile: 0}}
	rule, err := NewDecision2S(true, crit...)
	if err != nil {
		t.Fatal(err)
	}
	crit[0].Quantile = 5
	got := rule.Criteria()
	if got[0].Quantile != 0 {
		t.Errorf("rule criteria mutated through caller slice: %v", got[0])
	}
	got[0].Prob = 0.1
	if rule.Criteria()[0].Prob != 0.9 {
		t.Error("rule criteria mutated through returned slice")
	}
	if math.Abs(rule.Criteria()[0].Prob-0.9) > 0 {
		t.Error("criteria probability changed")
	}
}
