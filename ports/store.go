package ports

import (
	"context"

	"goprior/domain/core"
	"goprior/domain/mixture"
)

// StoredPrior is a persisted prior with its provenance
type StoredPrior struct {
	ID          core.PriorID          `json:"id"`
	Name        string                `json:"name"`
	Record      mixture.Record        `json:"record"`
	Fingerprint core.PriorFingerprint `json:"fingerprint"`
	CreatedAt   core.Timestamp        `json:"created_at"`
}

// AnalysisRecord is the persisted audit row of one MAP analysis: which prior
// it produced, under which diagnostics, and how long it took.
type AnalysisRecord struct {
	ID          core.AnalysisID       `json:"id"`
	PriorID     core.PriorID          `json:"prior_id,omitempty"`
	Fingerprint core.PriorFingerprint `json:"fingerprint"`
	Diagnostics SamplerDiagnostics    `json:"diagnostics"`
	Warnings    []string              `json:"warnings,omitempty"`
	Seed        int64                 `json:"seed"`
	DrawsUsed   int                   `json:"draws_used"`
	RuntimeMs   int64                 `json:"runtime_ms"`
	CreatedAt   core.Timestamp        `json:"created_at"`
}

// PriorStore persists serialized mixture priors and the audit records of the
// analyses that produced them.
type PriorStore interface {
	SavePrior(ctx context.Context, prior StoredPrior) error
	GetPrior(ctx context.Context, id core.PriorID) (*StoredPrior, error)
	ListPriorsByFamily(ctx context.Context, family mixture.Family) ([]StoredPrior, error)
	DeletePrior(ctx context.Context, id core.PriorID) error

	SaveAnalysis(ctx context.Context, record AnalysisRecord) error
	GetAnalysis(ctx context.Context, id core.AnalysisID) (*AnalysisRecord, error)
}
