package trial

import (
	"math"
	"testing"

	"goprior/domain/core"
)

func TestHistoricalDataValidate(t *testing.T) {
	tests := []struct {
		name    string
		data    HistoricalData
		wantErr bool
	}{
		{
			name: "valid binomial",
			data: HistoricalData{
				Endpoint: EndpointBinomial,
				Rows: []StudyRow{
					{Study: "trial-a", N: 100, Events: 20},
					{Study: "trial-b", N: 50, Events: 4},
				},
			},
		},
		{
			name: "valid gaussian",
			data: HistoricalData{
				Endpoint: EndpointGaussian,
				Rows: []StudyRow{
					{Study: "trial-a", N: 40, Mean: -1.2, SE: 0.4},
				},
			},
		},
		{
			name:    "unsupported endpoint",
			data:    HistoricalData{Endpoint: "weibull", Rows: []StudyRow{{Study: "x", N: 1}}},
			wantErr: true,
		},
		{
			name:    "no rows",
			data:    HistoricalData{Endpoint: EndpointBinomial},
			wantErr: true,
		},
		{
			name: "events exceed n",
			data: HistoricalData{
				Endpoint: EndpointBinomial,
				Rows:     []StudyRow{{Study: "trial-a", N: 10, Events: 12}},
			},
			wantErr: true,
		},
		{
			name: "duplicate study",
			data: HistoricalData{
				Endpoint: EndpointBinomial,
				Rows: []StudyRow{
					{Study: "trial-a", N: 10, Events: 1},
					{Study: "trial-a", N: 20, Events: 2},
				},
			},
			wantErr: true,
		},
		{
			name: "gaussian missing se",
			data: HistoricalData{
				Endpoint: EndpointGaussian,
				Rows:     []StudyRow{{Study: "trial-a", N: 10, Mean: 1}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestPooledEstimate(t *testing.T) {
	binom := HistoricalData{
		Endpoint: EndpointBinomial,
		Rows: []StudyRow{
			{Study: core.StudyID("a"), N: 100, Events: 20},
			{Study: core.StudyID("b"), N: 100, Events: 30},
		},
	}
	if got := binom.PooledEstimate(); math.Abs(got-0.25) > 1e-12 {
		t.Errorf("pooled rate %v, want 0.25", got)
	}

	gauss := HistoricalData{
		Endpoint: EndpointGaussian,
		Rows: []StudyRow{
			{Study: core.StudyID("a"), N: 10, Mean: 2, SE: 1},
			{Study: core.StudyID("b"), N: 10, Mean: 4, SE: 1},
		},
	}
	if got := gauss.PooledEstimate(); math.Abs(got-3) > 1e-12 {
		t.Errorf("pooled mean %v, want 3", got)
	}

	if binom.TotalN() != 200 {
		t.Errorf("TotalN %d, want 200", binom.TotalN())
	}
}
