package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-fin-capex/internal/domain"
	"github.com/pesio-ai/be-fin-capex/internal/platform/database"
	apperrors "github.com/pesio-ai/be-fin-capex/internal/platform/errors"
)

// RulesRepository handles CRUD for approval_matrix_rules.
type RulesRepository struct {
	db *database.DB
}

// NewRulesRepository creates a new RulesRepository.
func NewRulesRepository(db *database.DB) *RulesRepository {
	return &RulesRepository{db: db}
}

// Create inserts a new matrix rule.
func (r *RulesRepository) Create(ctx context.Context, rule *domain.ApprovalMatrixRule) error {
	query := `
		INSERT INTO approval_matrix_rules
		    (level, role, department, amount_min, amount_max, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	return r.db.QueryRow(ctx, query,
		rule.Level,
		rule.Role,
		rule.Department,
		rule.AmountMin,
		rule.AmountMax,
		rule.Active,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}

// GetByID retrieves a rule by primary key.
func (r *RulesRepository) GetByID(ctx context.Context, id string) (*domain.ApprovalMatrixRule, error) {
	query := `
		SELECT id, level, role, department, amount_min, amount_max, active,
		       created_at, updated_at
		FROM approval_matrix_rules
		WHERE id = $1
	`

	rule, err := r.scanRule(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("approval_matrix_rule", id)
	}
	return rule, err
}

// List returns all rules ordered by level, optionally active only.
func (r *RulesRepository) List(ctx context.Context, activeOnly bool) ([]domain.ApprovalMatrixRule, error) {
	query := `
		SELECT id, level, role, department, amount_min, amount_max, active,
		       created_at, updated_at
		FROM approval_matrix_rules
	`
	if activeOnly {
		query += " WHERE active = TRUE"
	}
	query += " ORDER BY level ASC, role ASC"

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list matrix rules")
	}
	defer rows.Close()

	var rules []domain.ApprovalMatrixRule
	for rows.Next() {
		rule := domain.ApprovalMatrixRule{}
		if err := rows.Scan(
			&rule.ID,
			&rule.Level,
			&rule.Role,
			&rule.Department,
			&rule.AmountMin,
			&rule.AmountMax,
			&rule.Active,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan matrix rule")
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// Update persists changes to an existing rule.
func (r *RulesRepository) Update(ctx context.Context, rule *domain.ApprovalMatrixRule) error {
	query := `
		UPDATE approval_matrix_rules
		SET level      = $2,
		    role       = $3,
		    department = $4,
		    amount_min = $5,
		    amount_max = $6,
		    active     = $7,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query,
		rule.ID,
		rule.Level,
		rule.Role,
		rule.Department,
		rule.AmountMin,
		rule.AmountMax,
		rule.Active,
	).Scan(&rule.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound("approval_matrix_rule", rule.ID)
	}
	return err
}

// Deactivate soft-disables a rule; historical workflows keep referencing it.
func (r *RulesRepository) Deactivate(ctx context.Context, id string) error {
	query := `
		UPDATE approval_matrix_rules
		SET active = FALSE, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to deactivate matrix rule")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("approval_matrix_rule", id)
	}
	return nil
}

// ── scan helpers ─────────────────────────────────────────────────────────────

type ruleScanner interface {
	Scan(dest ...any) error
}

func (r *RulesRepository) scanRule(row ruleScanner) (*domain.ApprovalMatrixRule, error) {
	rule := &domain.ApprovalMatrixRule{}
	err := row.Scan(
		&rule.ID,
		&rule.Level,
		&rule.Role,
		&rule.Department,
		&rule.AmountMin,
		&rule.AmountMax,
		&rule.Active,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rule, nil
}
