package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-fin-capex/internal/domain"
	"github.com/pesio-ai/be-fin-capex/internal/platform/database"
	apperrors "github.com/pesio-ai/be-fin-capex/internal/platform/errors"
)

// KPIRepository manages the one KPI record per request. Recomputation
// replaces the previous record.
type KPIRepository struct {
	db *database.DB
}

// NewKPIRepository creates a new KPIRepository.
func NewKPIRepository(db *database.DB) *KPIRepository {
	return &KPIRepository{db: db}
}

// Upsert writes the KPI record, replacing any prior computation.
func (r *KPIRepository) Upsert(ctx context.Context, rec *domain.KPIRecord) error {
	query := `
		INSERT INTO kpi_records
		    (request_id, irr, npv, payback_years, roi, basis_of_calculation, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (request_id) DO UPDATE
		SET irr                  = EXCLUDED.irr,
		    npv                  = EXCLUDED.npv,
		    payback_years        = EXCLUDED.payback_years,
		    roi                  = EXCLUDED.roi,
		    basis_of_calculation = EXCLUDED.basis_of_calculation,
		    computed_at          = EXCLUDED.computed_at
	`

	_, err := r.db.Exec(ctx, query,
		rec.RequestID,
		rec.IRR,
		rec.NPV,
		rec.PaybackYears,
		rec.ROI,
		rec.BasisOfCalculation,
		rec.ComputedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to upsert KPI record")
	}
	return nil
}

// GetByRequestID returns the KPI record for a request.
func (r *KPIRepository) GetByRequestID(ctx context.Context, requestID string) (*domain.KPIRecord, error) {
	query := `
		SELECT request_id, irr, npv, payback_years, roi, basis_of_calculation, computed_at
		FROM kpi_records
		WHERE request_id = $1
	`

	rec := &domain.KPIRecord{}
	err := r.db.QueryRow(ctx, query, requestID).Scan(
		&rec.RequestID,
		&rec.IRR,
		&rec.NPV,
		&rec.PaybackYears,
		&rec.ROI,
		&rec.BasisOfCalculation,
		&rec.ComputedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("kpi_record", requestID)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get KPI record")
	}
	return rec, nil
}
