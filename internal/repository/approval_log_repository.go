package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-fin-capex/internal/domain"
	"github.com/pesio-ai/be-fin-capex/internal/platform/database"
	apperrors "github.com/pesio-ai/be-fin-capex/internal/platform/errors"
)

// ApprovalLogRepository reads the immutable decision trail. Entries are
// written only through RequestRepository.CommitDecision so the append and
// the status change stay in one transaction.
type ApprovalLogRepository struct {
	db *database.DB
}

// NewApprovalLogRepository creates a new ApprovalLogRepository.
func NewApprovalLogRepository(db *database.DB) *ApprovalLogRepository {
	return &ApprovalLogRepository{db: db}
}

const logColumns = `id, request_id, actor_id, role, level, decision, comments, decided_at`

// GetByRequestID returns the full decision trail for a request, oldest first.
func (r *ApprovalLogRepository) GetByRequestID(ctx context.Context, requestID string) ([]domain.ApprovalLogEntry, error) {
	query := `SELECT ` + logColumns + ` FROM approval_log WHERE request_id = $1 ORDER BY decided_at ASC`

	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get approval log")
	}
	defer rows.Close()

	return scanLogRows(rows)
}

// GetByActor returns all decisions made by one user, newest first.
func (r *ApprovalLogRepository) GetByActor(ctx context.Context, actorID string) ([]domain.ApprovalLogEntry, error) {
	query := `SELECT ` + logColumns + ` FROM approval_log WHERE actor_id = $1 ORDER BY decided_at DESC`

	rows, err := r.db.Query(ctx, query, actorID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get actor decisions")
	}
	defer rows.Close()

	return scanLogRows(rows)
}

// LatestForRequest returns the most recent entry, or nil when the trail is
// empty.
func (r *ApprovalLogRepository) LatestForRequest(ctx context.Context, requestID string) (*domain.ApprovalLogEntry, error) {
	query := `SELECT ` + logColumns + ` FROM approval_log WHERE request_id = $1 ORDER BY decided_at DESC LIMIT 1`

	entry := domain.ApprovalLogEntry{}
	err := scanLogEntry(r.db.QueryRow(ctx, query, requestID), &entry)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get latest log entry")
	}
	return &entry, nil
}

// ── scan helpers ─────────────────────────────────────────────────────────────

type logScanner interface {
	Scan(dest ...any) error
}

func scanLogEntry(row logScanner, entry *domain.ApprovalLogEntry) error {
	var decision string
	err := row.Scan(
		&entry.ID,
		&entry.RequestID,
		&entry.ActorID,
		&entry.Role,
		&entry.Level,
		&decision,
		&entry.Comments,
		&entry.DecidedAt,
	)
	if err != nil {
		return err
	}
	entry.Decision = domain.Decision(decision)
	return nil
}

func scanLogRows(rows pgx.Rows) ([]domain.ApprovalLogEntry, error) {
	var entries []domain.ApprovalLogEntry
	for rows.Next() {
		entry := domain.ApprovalLogEntry{}
		if err := scanLogEntry(rows, &entry); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan log entry")
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
