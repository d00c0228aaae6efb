package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"goprior/domain/core"
	"goprior/domain/mixture"
	apperrors "goprior/internal/errors"
	"goprior/ports"

	"github.com/jmoiron/sqlx"
)

// PriorRepositoryImpl implements PriorStore for PostgreSQL
type PriorRepositoryImpl struct {
	db *sqlx.DB
}

// NewPriorRepository creates a new PostgreSQL prior repository
func NewPriorRepository(db *sqlx.DB) ports.PriorStore {
	return &PriorRepositoryImpl{db: db}
}

// SavePrior upserts a prior keyed by its id
func (r *PriorRepositoryImpl) SavePrior(ctx context.Context, prior ports.StoredPrior) error {
	recordJSON, err := json.Marshal(prior.Record)
	if err != nil {
		return fmt.Errorf("failed to marshal prior record: %w", err)
	}

	createdAt := prior.CreatedAt.Time()
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO priors (
			id, name, family, record, fingerprint, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			family = EXCLUDED.family,
			record = EXCLUDED.record,
			fingerprint = EXCLUDED.fingerprint`,
		prior.ID.String(), prior.Name, prior.Record.Family, recordJSON,
		prior.Fingerprint.String(), createdAt)
	if err != nil {
		return apperrors.DatabaseError("failed to save prior", err)
	}
	return nil
}

// GetPrior retrieves a prior by id
func (r *PriorRepositoryImpl) GetPrior(ctx context.Context, id core.PriorID) (*ports.StoredPrior, error) {
	var (
		prior      ports.StoredPrior
		idStr      string
		recordJSON []byte
		fp         string
		createdAt  time.Time
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, record, fingerprint, created_at
		FROM priors
		WHERE id = $1
	`, id.String()).Scan(&idStr, &prior.Name, &recordJSON, &fp, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("prior %s: %w", id, core.ErrPriorNotFound)
	}
	if err != nil {
		return nil, apperrors.DatabaseError("failed to load prior", err)
	}

	if err := json.Unmarshal(recordJSON, &prior.Record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prior record: %w", err)
	}
	prior.ID = core.PriorID(idStr)
	prior.Fingerprint = core.PriorFingerprint(fp)
	prior.CreatedAt = core.NewTimestamp(createdAt)
	return &prior, nil
}

// ListPriorsByFamily returns all stored priors of one mixture family,
// newest first
func (r *PriorRepositoryImpl) ListPriorsByFamily(ctx context.Context, family mixture.Family) ([]ports.StoredPrior, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, record, fingerprint, created_at
		FROM priors
		WHERE family = $1
		ORDER BY created_at DESC
	`, family.String())
	if err != nil {
		return nil, apperrors.DatabaseError("failed to list priors", err)
	}
	defer rows.Close()

	var priors []ports.StoredPrior
	for rows.Next() {
		var (
			prior      ports.StoredPrior
			idStr      string
			recordJSON []byte
			fp         string
			createdAt  time.Time
		)
		if err := rows.Scan(&idStr, &prior.Name, &recordJSON, &fp, &createdAt); err != nil {
			return nil, apperrors.DatabaseError("failed to scan prior", err)
		}
		if err := json.Unmarshal(recordJSON, &prior.Record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal prior record: %w", err)
		}
		prior.ID = core.PriorID(idStr)
		prior.Fingerprint = core.PriorFingerprint(fp)
		prior.CreatedAt = core.NewTimestamp(createdAt)
		priors = append(priors, prior)
	}
	return priors, rows.Err()
}

// SaveAnalysis upserts a MAP analysis audit record
func (r *PriorRepositoryImpl) SaveAnalysis(ctx context.Context, record ports.AnalysisRecord) error {
	diagnosticsJSON, err := json.Marshal(record.Diagnostics)
	if err != nil {
		return fmt.Errorf("failed to marshal diagnostics: %w", err)
	}
	warnings := record.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}

	var priorID any
	if record.PriorID != "" {
		priorID = record.PriorID.String()
	}
	createdAt := record.CreatedAt.Time()
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO analyses (
			id, prior_id, fingerprint, diagnostics, warnings,
			seed, draws_used, runtime_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			prior_id = EXCLUDED.prior_id,
			fingerprint = EXCLUDED.fingerprint,
			diagnostics = EXCLUDED.diagnostics,
			warnings = EXCLUDED.warnings,
			seed = EXCLUDED.seed,
			draws_used = EXCLUDED.draws_used,
			runtime_ms = EXCLUDED.runtime_ms`,
		record.ID.String(), priorID, record.Fingerprint.String(), diagnosticsJSON,
		warningsJSON, record.Seed, record.DrawsUsed, record.RuntimeMs, createdAt)
	if err != nil {
		return apperrors.DatabaseError("failed to save analysis", err)
	}
	return nil
}

// GetAnalysis retrieves a MAP analysis audit record by id
func (r *PriorRepositoryImpl) GetAnalysis(ctx context.Context, id core.AnalysisID) (*ports.AnalysisRecord, error) {
	var (
		record          ports.AnalysisRecord
		idStr           string
		priorID         sql.NullString
		fp              string
		diagnosticsJSON []byte
		warningsJSON    []byte
		createdAt       time.Time
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, prior_id, fingerprint, diagnostics, warnings,
		       seed, draws_used, runtime_ms, created_at
		FROM analyses
		WHERE id = $1
	`, id.String()).Scan(&idStr, &priorID, &fp, &diagnosticsJSON, &warningsJSON,
		&record.Seed, &record.DrawsUsed, &record.RuntimeMs, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis %s: %w", id, core.ErrAnalysisNotFound)
	}
	if err != nil {
		return nil, apperrors.DatabaseError("failed to load analysis", err)
	}

	if err := json.Unmarshal(diagnosticsJSON, &record.Diagnostics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal diagnostics: %w", err)
	}
	if err := json.Unmarshal(warningsJSON, &record.Warnings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal warnings: %w", err)
	}
	record.ID = core.AnalysisID(idStr)
	if priorID.Valid {
		record.PriorID = core.PriorID(priorID.String)
	}
	record.Fingerprint = core.PriorFingerprint(fp)
	record.CreatedAt = core.NewTimestamp(createdAt)
	return &record, nil
}

// DeletePrior removes a prior; deleting an unknown id is an error
func (r *PriorRepositoryImpl) DeletePrior(ctx context.Context, id core.PriorID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM priors WHERE id = $1`, id.String())
	if err != nil {
		return apperrors.DatabaseError("failed to delete prior", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("prior %s: %w", id, core.ErrPriorNotFound)
	}
	return nil
}
