package postgres

import (
	"context"

	apperrors "goprior/internal/errors"

	"github.com/jmoiron/sqlx"
)

// EnsureSchema creates the prior-store schema when it does not exist yet.
// The store is a single append-mostly table, so idempotent DDL replaces a
// full migration chain.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS priors (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			family TEXT NOT NULL,
			record JSONB NOT NULL,
			fingerprint TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return apperrors.DatabaseError("failed to create priors table", err)
	}
	_, err = db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS priors_family_created_idx
		ON priors (family, created_at DESC)`)
	if err != nil {
		return apperrors.DatabaseError("failed to create priors index", err)
	}
	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS analyses (
			id UUID PRIMARY KEY,
			prior_id UUID,
			fingerprint TEXT NOT NULL,
			diagnostics JSONB NOT NULL,
			warnings JSONB NOT NULL,
			seed BIGINT NOT NULL,
			draws_used INTEGER NOT NULL,
			runtime_ms BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return apperrors.DatabaseError("failed to create analyses table", err)
	}
	return nil
}
