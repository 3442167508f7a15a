package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pesio-ai/be-fin-capex/internal/domain"
	"github.com/pesio-ai/be-fin-capex/internal/platform/database"
	apperrors "github.com/pesio-ai/be-fin-capex/internal/platform/errors"
)

// uniqueViolation is the Postgres SQLSTATE raised by the UNIQUE
// (request_id, actor_id) constraint on approval_log.
const uniqueViolation = "23505"

// RequestRepository handles persistence of investment requests. The decision
// commit is the one place where a log append and a status update must land
// atomically.
type RequestRepository struct {
	db *database.DB
}

// NewRequestRepository creates a new RequestRepository.
func NewRequestRepository(db *database.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// ListFilter narrows List results.
type ListFilter struct {
	Department *string
	Status     *string
	Priority   *string
	Limit      int
	Offset     int
}

const requestColumns = `
	id, title, department, priority, business_case_types,
	capex, opex, currency, base_capex, base_opex,
	status, submitted_by, submitted_date, last_updated,
	created_at, updated_at`

// Create inserts a new draft request.
func (r *RequestRepository) Create(ctx context.Context, req *domain.InvestmentRequest) error {
	query := `
		INSERT INTO investment_requests
		    (title, department, priority, business_case_types,
		     capex, opex, currency, base_capex, base_opex,
		     status, submitted_by, last_updated)
		VALUES ($1, $2, $3, $4,
		        $5, $6, $7, $8, $9,
		        $10, $11, NOW())
		RETURNING id, last_updated, created_at, updated_at
	`

	return r.db.QueryRow(ctx, query,
		req.Title,
		req.Department,
		string(req.Priority),
		caseTypesToStrings(req.BusinessCaseTypes),
		req.Capex,
		req.Opex,
		req.Currency,
		req.BaseCurrencyCapex,
		req.BaseCurrencyOpex,
		req.Status.String(),
		req.SubmittedBy,
	).Scan(&req.ID, &req.LastUpdated, &req.CreatedAt, &req.UpdatedAt)
}

// GetByID retrieves a request by primary key.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*domain.InvestmentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM investment_requests WHERE id = $1`

	req, err := scanRequest(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("investment_request", id)
	}
	return req, err
}

// List returns requests matching the filter, newest first, with the total
// unpaginated count.
func (r *RequestRepository) List(ctx context.Context, filter ListFilter) ([]*domain.InvestmentRequest, int64, error) {
	where := " WHERE 1=1"
	args := []any{}

	if filter.Department != nil {
		args = append(args, *filter.Department)
		where += " AND department = $" + strconv.Itoa(len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += " AND status = $" + strconv.Itoa(len(args))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		where += " AND priority = $" + strconv.Itoa(len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM investment_requests"+where, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to count requests")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	query := `SELECT ` + requestColumns + ` FROM investment_requests` + where +
		" ORDER BY created_at DESC LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list requests")
	}
	defer rows.Close()

	var requests []*domain.InvestmentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan request")
		}
		requests = append(requests, req)
	}
	return requests, total, rows.Err()
}

// UpdateDraft persists submitter edits while the request is still a draft.
func (r *RequestRepository) UpdateDraft(ctx context.Context, req *domain.InvestmentRequest) error {
	query := `
		UPDATE investment_requests
		SET title               = $2,
		    department          = $3,
		    priority            = $4,
		    business_case_types = $5,
		    capex               = $6,
		    opex                = $7,
		    currency            = $8,
		    base_capex          = $9,
		    base_opex           = $10,
		    last_updated        = NOW(),
		    updated_at          = NOW()
		WHERE id = $1 AND status = 'draft'
		RETURNING last_updated, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		req.ID,
		req.Title,
		req.Department,
		string(req.Priority),
		caseTypesToStrings(req.BusinessCaseTypes),
		req.Capex,
		req.Opex,
		req.Currency,
		req.BaseCurrencyCapex,
		req.BaseCurrencyOpex,
	).Scan(&req.LastUpdated, &req.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.New(apperrors.ErrCodeConflict, "request is not editable (not found or no longer draft)").
			With("request_id", req.ID)
	}
	return err
}

// UpdateStatus transitions a request with an expected-status precondition;
// a concurrent transition makes the precondition fail and surfaces as a
// conflict. Used for submit / review / resume, which carry no log entry.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id string, expected, next domain.Status, submittedDate *time.Time) error {
	query := `
		UPDATE investment_requests
		SET status         = $3,
		    submitted_date = COALESCE($4, submitted_date),
		    last_updated   = NOW(),
		    updated_at     = NOW()
		WHERE id = $1 AND status = $2
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id, expected.String(), next.String(), submittedDate).Scan(&returnedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.Newf(apperrors.ErrCodeConflict,
			"request status is no longer '%s'", expected).
			With("request_id", id)
	}
	return err
}

// CommitDecision applies a computed transition in one transaction: the log
// entry insert (guarded by the UNIQUE (request_id, actor_id) constraint) and
// the conditional status update. If either fails, neither is visible.
//
// The constraint, not a prior read, is the authority on duplicate actions:
// a unique violation maps to the duplicate-action error even when two calls
// race. Zero rows from the conditional update means another decision moved
// the request first.
func (r *RequestRepository) CommitDecision(
	ctx context.Context,
	requestID string,
	expected domain.Status,
	transition domain.Status,
	entry *domain.ApprovalLogEntry,
) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		logQuery := `
			INSERT INTO approval_log
			    (id, request_id, actor_id, role, level, decision, comments, decided_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`

		_, err := tx.Exec(ctx, logQuery,
			entry.ID,
			entry.RequestID,
			entry.ActorID,
			entry.Role,
			entry.Level,
			string(entry.Decision),
			entry.Comments,
			entry.DecidedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return apperrors.New(apperrors.ErrCodeDuplicateAction,
					"actor has already decided on this request").
					With("request_id", requestID).
					With("actor_id", entry.ActorID)
			}
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to append approval log entry")
		}

		updateQuery := `
			UPDATE investment_requests
			SET status       = $3,
			    last_updated = NOW(),
			    updated_at   = NOW()
			WHERE id = $1 AND status = $2
		`

		tag, err := tx.Exec(ctx, updateQuery, requestID, expected.String(), transition.String())
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to update request status")
		}
		if tag.RowsAffected() == 0 {
			return apperrors.Newf(apperrors.ErrCodeConflict,
				"request status is no longer '%s'", expected).
				With("request_id", requestID)
		}
		return nil
	})
}

// ── scan helpers ─────────────────────────────────────────────────────────────

type requestScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row requestScanner) (*domain.InvestmentRequest, error) {
	req := &domain.InvestmentRequest{}
	var (
		priority  string
		caseTypes []string
		status    string
	)

	err := row.Scan(
		&req.ID,
		&req.Title,
		&req.Department,
		&priority,
		&caseTypes,
		&req.Capex,
		&req.Opex,
		&req.Currency,
		&req.BaseCurrencyCapex,
		&req.BaseCurrencyOpex,
		&status,
		&req.SubmittedBy,
		&req.SubmittedDate,
		&req.LastUpdated,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.Priority = domain.Priority(priority)
	req.BusinessCaseTypes = caseTypesFromStrings(caseTypes)
	req.Status, err = domain.ParseStatus(status)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "corrupt request status")
	}
	return req, nil
}

func caseTypesToStrings(types []domain.BusinessCaseType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func caseTypesFromStrings(raw []string) []domain.BusinessCaseType {
	out := make([]domain.BusinessCaseType, 0, len(raw))
	for _, s := range raw {
		if t, ok := domain.ParseBusinessCaseType(s); ok {
			out = append(out, t)
		}
	}
	return out
}
