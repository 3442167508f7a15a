package service

import (
	"context"
	"strings"
	"time"

	"github.com/pesio-ai/be-fin-capex/internal/approval"
	"github.com/pesio-ai/be-fin-capex/internal/client"
	"github.com/pesio-ai/be-fin-capex/internal/currency"
	"github.com/pesio-ai/be-fin-capex/internal/domain"
	"github.com/pesio-ai/be-fin-capex/internal/platform/errors"
	"github.com/pesio-ai/be-fin-capex/internal/platform/logger"
	"github.com/pesio-ai/be-fin-capex/internal/repository"
)

// RateSource supplies the current exchange-rate snapshot. Rate fetching
// itself lives outside this service; only the snapshot value object crosses
// the boundary.
type RateSource interface {
	Snapshot(ctx context.Context) (currency.RateCache, error)
}

// RequestService orchestrates the investment-request approval workflow: the
// pure matrix/state-machine engines decide, the repositories commit, NATS
// events go out after the fact.
type RequestService struct {
	requestRepo *repository.RequestRepository
	rulesRepo   *repository.RulesRepository
	logRepo     *repository.ApprovalLogRepository
	matrix      *approval.MatrixResolver
	machine     *approval.StateMachine
	rates       RateSource
	rateTTL     time.Duration
	notifier    *client.NotificationPublisher
	log         *logger.Logger
}

// NewRequestService creates a new RequestService.
func NewRequestService(
	requestRepo *repository.RequestRepository,
	rulesRepo *repository.RulesRepository,
	logRepo *repository.ApprovalLogRepository,
	matrix *approval.MatrixResolver,
	machine *approval.StateMachine,
	rates RateSource,
	rateTTL time.Duration,
	notifier *client.NotificationPublisher,
	log *logger.Logger,
) *RequestService {
	return &RequestService{
		requestRepo: requestRepo,
		rulesRepo:   rulesRepo,
		logRepo:     logRepo,
		matrix:      matrix,
		machine:     machine,
		rates:       rates,
		rateTTL:     rateTTL,
		notifier:    notifier,
		log:         log,
	}
}

// CreateRequestRequest carries the fields for a new draft.
type CreateRequestRequest struct {
	Title             string   `json:"title"`
	Department        string   `json:"department"`
	Priority          string   `json:"priority"`
	BusinessCaseTypes []string `json:"business_case_types"`
	Capex             int64    `json:"capex"`
	Opex              int64    `json:"opex"`
	Currency          string   `json:"currency"`
	SubmittedBy       string   `json:"-"`
}

// DecideRequest carries one approval decision.
type DecideRequest struct {
	RequestID  string `json:"request_id"`
	UserID     string `json:"-"`
	Role       string `json:"role"`
	Department string `json:"department"`
	Action     string `json:"action"` // approve | reject | hold
	Comments   string `json:"comments"`
}

// CreateRequest validates and persists a new draft request, normalizing its
// amounts into the reference currency from the current rate snapshot.
func (s *RequestService) CreateRequest(ctx context.Context, req *CreateRequestRequest) (*domain.InvestmentRequest, error) {
	request, err := s.buildDraft(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("request_id", request.ID).
		Str("department", request.Department).
		Int64("total_base_amount", request.TotalBaseAmount()).
		Msg("Investment request created")

	return request, nil
}

// UpdateDraft lets the submitter edit a request that is still a draft.
func (s *RequestService) UpdateDraft(ctx context.Context, id, userID string, req *CreateRequestRequest) (*domain.InvestmentRequest, error) {
	existing, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.SubmittedBy != userID {
		return nil, errors.New(errors.ErrCodeUnauthorized, "only the submitter can edit a draft").
			With("request_id", id).
			With("actor_id", userID)
	}
	if existing.Status.Kind != domain.StatusDraft {
		return nil, errors.Newf(errors.ErrCodeInvalidTransition,
			"cannot edit request with status '%s'", existing.Status).
			With("request_id", id)
	}

	req.SubmittedBy = userID
	draft, err := s.buildDraft(ctx, req)
	if err != nil {
		return nil, err
	}
	draft.ID = id
	if err := s.requestRepo.UpdateDraft(ctx, draft); err != nil {
		return nil, err
	}
	return s.requestRepo.GetByID(ctx, id)
}

// buildDraft validates the payload and builds the draft domain object,
// normalizing amounts into the reference currency.
func (s *RequestService) buildDraft(ctx context.Context, req *CreateRequestRequest) (*domain.InvestmentRequest, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, errors.InvalidInput("title", "title is required")
	}
	if strings.TrimSpace(req.Department) == "" {
		return nil, errors.InvalidInput("department", "department is required")
	}
	if req.SubmittedBy == "" {
		return nil, errors.InvalidInput("user", "submitter identity is required")
	}

	priority, ok := domain.ParsePriority(strings.ToLower(req.Priority))
	if !ok {
		return nil, errors.InvalidInput("priority", "priority must be one of low, medium, high, critical")
	}

	caseTypes := make([]domain.BusinessCaseType, 0, len(req.BusinessCaseTypes))
	for _, raw := range req.BusinessCaseTypes {
		t, ok := domain.ParseBusinessCaseType(strings.ToLower(raw))
		if !ok {
			return nil, errors.InvalidInput("business_case_types", "unknown business case type '"+raw+"'")
		}
		caseTypes = append(caseTypes, t)
	}

	if req.Capex < 0 || req.Opex < 0 {
		return nil, errors.InvalidInput("amount", "amounts cannot be negative")
	}
	if req.Capex+req.Opex == 0 {
		return nil, errors.InvalidInput("amount", "request must have a non-zero total amount")
	}
	if len(req.Currency) != 3 {
		return nil, errors.InvalidInput("currency", "currency must be 3-letter ISO code")
	}
	code := strings.ToUpper(req.Currency)

	rates, err := s.rates.Snapshot(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to load exchange rates")
	}
	if rates.IsStale(time.Now(), s.rateTTL) {
		s.log.Warn().
			Time("fetched_at", rates.FetchedAt).
			Msg("Exchange rate snapshot is stale; normalizing with last known rates")
	}

	baseCapex, err := rates.Normalize(req.Capex, code)
	if err != nil {
		return nil, err
	}
	baseOpex, err := rates.Normalize(req.Opex, code)
	if err != nil {
		return nil, err
	}

	return &domain.InvestmentRequest{
		Title:             strings.TrimSpace(req.Title),
		Department:        req.Department,
		Priority:          priority,
		BusinessCaseTypes: caseTypes,
		Capex:             req.Capex,
		Opex:              req.Opex,
		Currency:          code,
		BaseCurrencyCapex: baseCapex,
		BaseCurrencyOpex:  baseOpex,
		Status:            domain.Status{Kind: domain.StatusDraft},
		SubmittedBy:       req.SubmittedBy,
	}, nil
}

// Submit moves a draft into the approval chain.
func (s *RequestService) Submit(ctx context.Context, id, userID string) (*domain.InvestmentRequest, error) {
	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.SubmittedBy != userID {
		return nil, errors.New(errors.ErrCodeUnauthorized, "only the submitter can submit the request").
			With("request_id", id).
			With("actor_id", userID)
	}

	next, err := s.machine.Submit(request)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.requestRepo.UpdateStatus(ctx, id, request.Status, next, &now); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("request_id", id).
		Str("submitted_by", userID).
		Msg("Investment request submitted for approval")

	s.notifier.PublishRequestEvent("request_submitted", id, userID, map[string]any{
		"department":        request.Department,
		"total_base_amount": request.TotalBaseAmount(),
	})

	return s.requestRepo.GetByID(ctx, id)
}

// StartReview marks a submitted request as actively under review.
func (s *RequestService) StartReview(ctx context.Context, id, userID, roleStr string) (*domain.InvestmentRequest, error) {
	role, err := domain.ParseRole(roleStr)
	if err != nil {
		return nil, errors.InvalidInput("role", err.Error())
	}
	if role.Kind != domain.RoleAdmin && role.Kind != domain.RoleApprover {
		return nil, errors.New(errors.ErrCodeUnauthorized, "only approvers can start a review").
			With("request_id", id).
			With("actor_id", userID)
	}

	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := s.machine.StartReview(request)
	if err != nil {
		return nil, err
	}
	if err := s.requestRepo.UpdateStatus(ctx, id, request.Status, next, nil); err != nil {
		return nil, err
	}
	return s.requestRepo.GetByID(ctx, id)
}

// Decide applies one approve/reject/hold decision. The state-machine result
// is committed atomically: the log append and the status update share one
// transaction guarded by the (request, actor) uniqueness constraint.
func (s *RequestService) Decide(ctx context.Context, req *DecideRequest) (*domain.InvestmentRequest, error) {
	action, ok := approval.ParseAction(strings.ToLower(req.Action))
	if !ok {
		return nil, errors.InvalidInput("action", "action must be approve, reject or hold")
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return nil, errors.InvalidInput("role", err.Error())
	}
	actor := domain.Actor{UserID: req.UserID, Role: role, Department: req.Department}

	request, err := s.requestRepo.GetByID(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}
	rules, err := s.rulesRepo.List(ctx, true)
	if err != nil {
		return nil, err
	}
	trail, err := s.logRepo.GetByRequestID(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}

	transition, err := s.machine.Decide(request, actor, action, req.Comments, rules, trail, time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.requestRepo.CommitDecision(ctx, req.RequestID, request.Status, transition.NewStatus, &transition.LogEntry); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("request_id", req.RequestID).
		Str("actor_id", req.UserID).
		Str("action", string(action)).
		Str("new_status", transition.NewStatus.String()).
		Msg("Approval decision committed")

	s.publishDecisionEvent(request, transition, req.UserID)

	return s.requestRepo.GetByID(ctx, req.RequestID)
}

// Resume returns a held request to its prior pending status.
func (s *RequestService) Resume(ctx context.Context, id, userID, roleStr string) (*domain.InvestmentRequest, error) {
	role, err := domain.ParseRole(roleStr)
	if err != nil {
		return nil, errors.InvalidInput("role", err.Error())
	}

	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.Kind != domain.RoleAdmin && request.SubmittedBy != userID {
		return nil, errors.New(errors.ErrCodeUnauthorized,
			"only an admin or the submitter can resume a held request").
			With("request_id", id).
			With("actor_id", userID)
	}

	rules, err := s.rulesRepo.List(ctx, true)
	if err != nil {
		return nil, err
	}
	trail, err := s.logRepo.GetByRequestID(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := s.machine.Resume(request, rules, trail)
	if err != nil {
		return nil, err
	}
	if err := s.requestRepo.UpdateStatus(ctx, id, request.Status, next, nil); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("request_id", id).
		Str("resumed_by", userID).
		Str("new_status", next.String()).
		Msg("Held request resumed")

	s.notifier.PublishRequestEvent("request_resumed", id, userID, map[string]any{
		"new_status": next.String(),
	})

	return s.requestRepo.GetByID(ctx, id)
}

// GetRequest retrieves one request.
func (s *RequestService) GetRequest(ctx context.Context, id string) (*domain.InvestmentRequest, error) {
	return s.requestRepo.GetByID(ctx, id)
}

// ListRequests lists requests with filtering and pagination.
func (s *RequestService) ListRequests(ctx context.Context, filter repository.ListFilter) ([]*domain.InvestmentRequest, int64, error) {
	return s.requestRepo.List(ctx, filter)
}

// GetApprovalHistory returns the decision trail for a request.
func (s *RequestService) GetApprovalHistory(ctx context.Context, id string) ([]domain.ApprovalLogEntry, error) {
	if _, err := s.requestRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.logRepo.GetByRequestID(ctx, id)
}

// PendingForActor returns the requests the actor may currently decide on.
func (s *RequestService) PendingForActor(ctx context.Context, userID, roleStr, department string) ([]*domain.InvestmentRequest, error) {
	role, err := domain.ParseRole(roleStr)
	if err != nil {
		return nil, errors.InvalidInput("role", err.Error())
	}
	actor := domain.Actor{UserID: userID, Role: role, Department: department}

	rules, err := s.rulesRepo.List(ctx, true)
	if err != nil {
		return nil, err
	}

	statuses := []string{domain.Status{Kind: domain.StatusSubmitted}.String()}
	if role.Kind == domain.RoleApprover {
		statuses = append(statuses, domain.PendingLevel(role.Level).String())
	}

	var pending []*domain.InvestmentRequest
	for _, status := range statuses {
		st := status
		requests, _, err := s.requestRepo.List(ctx, repository.ListFilter{Status: &st, Limit: 500})
		if err != nil {
			return nil, err
		}
		for _, req := range requests {
			if s.matrix.CanApprove(req, actor, rules) {
				pending = append(pending, req)
			}
		}
	}
	return pending, nil
}

// publishDecisionEvent maps a committed transition to its notification.
func (s *RequestService) publishDecisionEvent(req *domain.InvestmentRequest, transition *approval.Transition, actorID string) {
	payload := map[string]any{
		"department": req.Department,
		"new_status": transition.NewStatus.String(),
	}

	switch transition.NewStatus.Kind {
	case domain.StatusApproved:
		s.notifier.PublishRequestEvent("request_approved", req.ID, actorID, payload)
	case domain.StatusRejected:
		s.notifier.PublishRequestEvent("request_rejected", req.ID, actorID, payload)
	case domain.StatusOnHold:
		s.notifier.PublishRequestEvent("request_on_hold", req.ID, actorID, payload)
	case domain.StatusPendingLevel:
		payload["pending_level"] = transition.NewStatus.Level
		s.notifier.PublishRequestEvent("approval_required", req.ID, actorID, payload)
	}
}
