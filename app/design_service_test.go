package app

import (
	"context"
	"errors"
	"testing"

	"goprior/domain/core"
	"goprior/domain/mixture"
	"goprior/internal/design"
	"goprior/internal/ess"
	"goprior/internal/testkit"
	"goprior/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedBeta(t *testing.T, store ports.PriorStore, name string, a, b float64) core.PriorID {
	t.Helper()
	m := mixture.MustNew(mixture.FamilyBeta, mixture.BetaComponent(1, a, b))
	serialized, err := m.EncodeJSON()
	require.NoError(t, err)
	prior := ports.StoredPrior{
		ID:          core.PriorID(core.NewID()),
		Name:        name,
		Record:      m.Record(),
		Fingerprint: core.NewPriorFingerprint(serialized),
		CreatedAt:   core.Now(),
	}
	require.NoError(t, store.SavePrior(context.Background(), prior))
	return prior.ID
}

func recordRef(m mixture.Mixture) PriorRef {
	rec := m.Record()
	return PriorRef{Record: &rec}
}

func TestDesignServiceRobustify(t *testing.T) {
	store := testkit.NewInMemoryPriorStore()
	svc := NewDesignService(store)
	id := storedBeta(t, store, "informative", 12, 28)

	res, err := svc.Robustify(context.Background(), RobustifyRequest{
		Prior:    PriorRef{ID: id},
		Weight:   0.2,
		Location: 0.5,
		PseudoN:  2,
		SaveAs:   "informative-robust",
	}, ess.Moment)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Prior.Len())
	assert.Less(t, res.ESSAfter, res.ESSBefore, "robustification must shrink the effective sample size")
	assert.InDelta(t, 40.0, res.ESSBefore, 0.5)

	require.NotEmpty(t, res.StoredID)
	stored, err := store.GetPrior(context.Background(), res.StoredID)
	require.NoError(t, err)
	assert.Equal(t, "informative-robust", stored.Name)
}

func TestDesignServiceESSFromRecord(t *testing.T) {
	svc := NewDesignService(nil)
	m := mixture.MustNew(mixture.FamilyBeta, mixture.BetaComponent(1, 4, 8))

	got, err := svc.ESS(context.Background(), recordRef(m), ess.Moment)
	require.NoError(t, err)
	assert.InDelta(t, 12.0, got, 1e-9)
}

func TestDesignServiceResolveErrors(t *testing.T) {
	store := testkit.NewInMemoryPriorStore()
	svc := NewDesignService(store)
	m := mixture.MustNew(mixture.FamilyBeta, mixture.BetaComponent(1, 4, 8))
	rec := m.Record()

	cases := []struct {
		name string
		ref  PriorRef
	}{
		{"empty ref", PriorRef{}},
		{"both set", PriorRef{ID: "some-id", Record: &rec}},
		{"unknown id", PriorRef{ID: "missing"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ESS(context.Background(), tc.ref, ess.Moment)
			assert.Error(t, err)
		})
	}

	// Unknown stored id surfaces the not-found sentinel.
	_, err := svc.ESS(context.Background(), PriorRef{ID: "missing"}, ess.Moment)
	assert.True(t, errors.Is(err, core.ErrPriorNotFound))

	// Store lookups without a configured store fail loudly.
	_, err = NewDesignService(nil).ESS(context.Background(), PriorRef{ID: "any"}, ess.Moment)
	assert.Error(t, err)
}

func TestDesignServiceOperatingCharacteristics(t *testing.T) {
	svc := NewDesignService(nil)
	flat := mixture.MustNew(mixture.FamilyBeta, mixture.BetaComponent(1, 1, 1))

	res, err := svc.OperatingCharacteristics(context.Background(), OCRequest{
		Prior1:    recordRef(flat),
		Prior2:    recordRef(flat),
		N1:        30,
		N2:        30,
		Model:     design.Model{Kind: design.ModelBinomial},
		LowerTail: false,
		Criteria:  []design.Criterion{{Prob: 0.975, Quantile: 0}},
		Theta1:    []float64{0.3, 0.8},
		Theta2:    []float64{0.3},
	})
	require.NoError(t, err)
	require.Len(t, res.Grid, 2)

	typeI, power := res.Grid[0][0], res.Grid[1][0]
	assert.Less(t, typeI, 0.05)
	assert.Greater(t, power, 0.9)
}

func TestDesignServiceProbabilityOfSuccess(t *testing.T) {
	svc := NewDesignService(nil)
	flat := mixture.MustNew(mixture.FamilyBeta, mixture.BetaComponent(1, 1, 1))
	strong := mixture.MustNew(mixture.FamilyBeta, mixture.BetaComponent(1, 80, 20))
	weak := mixture.MustNew(mixture.FamilyBeta, mixture.BetaComponent(1, 20, 80))

	p, err := svc.ProbabilityOfSuccess(context.Background(), PoSRequest{
		Prior1:    recordRef(flat),
		Prior2:    recordRef(flat),
		N1:        40,
		N2:        40,
		Model:     design.Model{Kind: design.ModelBinomial},
		LowerTail: false,
		Criteria:  []design.Criterion{{Prob: 0.95, Quantile: 0}},
		Interim1:  recordRef(strong),
		Interim2:  recordRef(weak),
	})
	require.NoError(t, err)
	assert.Greater(t, p, 0.9)
}
