package approval

import (
	"time"

	"github.com/google/uuid"

	"github.com/pesio-ai/be-fin-capex/internal/domain"
	"github.com/pesio-ai/be-fin-capex/internal/platform/errors"
)

// Action is a decision submitted by an actor.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionHold    Action = "hold"
)

// ParseAction validates an action string.
func ParseAction(raw string) (Action, bool) {
	switch a := Action(raw); a {
	case ActionApprove, ActionReject, ActionHold:
		return a, true
	}
	return "", false
}

// Transition is the computed outcome of a successful decision: the new
// request status and the single log entry to append. Both must be committed
// atomically by the storage layer.
type Transition struct {
	NewStatus domain.Status
	LogEntry  domain.ApprovalLogEntry
}

// Config holds workflow policy switches.
type Config struct {
	// AllowHoldResume permits Resume on a held request, returning it to its
	// prior pending status.
	AllowHoldResume bool
}

// StateMachine computes status transitions for investment requests. It holds
// no mutable state; every method is a pure function of its inputs.
type StateMachine struct {
	matrix *MatrixResolver
	cfg    Config
}

// NewStateMachine creates a StateMachine over the given matrix resolver.
func NewStateMachine(matrix *MatrixResolver, cfg Config) *StateMachine {
	return &StateMachine{matrix: matrix, cfg: cfg}
}

// Submit moves a draft to submitted.
func (sm *StateMachine) Submit(req *domain.InvestmentRequest) (domain.Status, error) {
	if req.Status.Kind != domain.StatusDraft {
		return domain.Status{}, errors.Newf(errors.ErrCodeInvalidTransition,
			"cannot submit request with status '%s'", req.Status).
			With("request_id", req.ID)
	}
	return domain.Status{Kind: domain.StatusSubmitted}, nil
}

// StartReview marks a submitted request as actively under review.
func (sm *StateMachine) StartReview(req *domain.InvestmentRequest) (domain.Status, error) {
	if req.Status.Kind != domain.StatusSubmitted {
		return domain.Status{}, errors.Newf(errors.ErrCodeInvalidTransition,
			"cannot start review on request with status '%s'", req.Status).
			With("request_id", req.ID)
	}
	return domain.Status{Kind: domain.StatusUnderReview}, nil
}

// Decide computes the transition for an approve/reject/hold action.
//
// A successful decision always yields exactly one log entry; the storage
// layer must persist the entry and the status change as one transaction,
// enforcing the (request, actor) uniqueness at the point of commit.
func (sm *StateMachine) Decide(
	req *domain.InvestmentRequest,
	actor domain.Actor,
	action Action,
	comments string,
	rules []domain.ApprovalMatrixRule,
	trail []domain.ApprovalLogEntry,
	now time.Time,
) (*Transition, error) {
	if req.Status.Terminal() {
		return nil, errors.Newf(errors.ErrCodeInvalidTransition,
			"request is already %s", req.Status).
			With("request_id", req.ID).
			With("actor_id", actor.UserID).
			With("action", string(action))
	}
	if req.Status.Kind == domain.StatusDraft {
		return nil, errors.New(errors.ErrCodeInvalidTransition,
			"request has not been submitted").
			With("request_id", req.ID).
			With("actor_id", actor.UserID)
	}

	if !sm.matrix.CanApprove(req, actor, rules) {
		return nil, errors.Newf(errors.ErrCodeUnauthorized,
			"actor is not eligible to decide on request in status '%s'", req.Status).
			With("request_id", req.ID).
			With("actor_id", actor.UserID).
			With("action", string(action))
	}

	// Pre-check against the supplied trail; the commit re-enforces this
	// atomically via the (request_id, actor_id) uniqueness constraint.
	for _, entry := range trail {
		if entry.ActorID == actor.UserID {
			return nil, errors.New(errors.ErrCodeDuplicateAction,
				"actor has already decided on this request").
				With("request_id", req.ID).
				With("actor_id", actor.UserID)
		}
	}

	var newStatus domain.Status
	var decision domain.Decision
	entryLevel := actor.Role.Level

	switch action {
	case ActionReject:
		if comments == "" {
			return nil, errors.InvalidInput("comments", "rejection requires comments").
				With("request_id", req.ID)
		}
		newStatus = domain.Status{Kind: domain.StatusRejected}
		decision = domain.DecisionRejected

	case ActionHold:
		newStatus = domain.Status{Kind: domain.StatusOnHold}
		decision = domain.DecisionOnHold

	case ActionApprove:
		// An admin approval stands in for the level the request is waiting
		// on, never the admin's own (zero) level, so the chain only ever
		// moves forward.
		if actor.Role.Kind != domain.RoleApprover {
			entryLevel = sm.standInLevel(req, trail)
		}
		if next, ok := sm.matrix.NextLevel(entryLevel, rules); ok {
			newStatus = domain.PendingLevel(next)
		} else {
			newStatus = domain.Status{Kind: domain.StatusApproved}
		}
		decision = domain.DecisionApproved

	default:
		return nil, errors.Newf(errors.ErrCodeValidation, "unknown action '%s'", action)
	}

	return &Transition{
		NewStatus: newStatus,
		LogEntry: domain.ApprovalLogEntry{
			ID:        uuid.NewString(),
			RequestID: req.ID,
			ActorID:   actor.UserID,
			Role:      actor.Role.Name,
			Level:     entryLevel,
			Decision:  decision,
			Comments:  comments,
			DecidedAt: now,
		},
	}, nil
}

// standInLevel is the approval level a non-approver approval substitutes
// for: the awaited pending level, the highest already-approved level while
// the request is held, or zero at the chain entry.
func (sm *StateMachine) standInLevel(req *domain.InvestmentRequest, trail []domain.ApprovalLogEntry) int {
	switch req.Status.Kind {
	case domain.StatusPendingLevel:
		return req.Status.Level
	case domain.StatusOnHold:
		highest := 0
		for _, entry := range trail {
			if entry.Decision == domain.DecisionApproved && entry.Level > highest {
				highest = entry.Level
			}
		}
		return highest
	default:
		return 0
	}
}

// Resume returns a held request to the pending status it occupied before the
// hold, recomputed from the log trail: the level after the latest approval,
// or Submitted when nothing was approved yet.
func (sm *StateMachine) Resume(
	req *domain.InvestmentRequest,
	rules []domain.ApprovalMatrixRule,
	trail []domain.ApprovalLogEntry,
) (domain.Status, error) {
	if !sm.cfg.AllowHoldResume {
		return domain.Status{}, errors.New(errors.ErrCodeInvalidTransition,
			"hold resume is disabled").
			With("request_id", req.ID)
	}
	if req.Status.Kind != domain.StatusOnHold {
		return domain.Status{}, errors.Newf(errors.ErrCodeInvalidTransition,
			"cannot resume request with status '%s'", req.Status).
			With("request_id", req.ID)
	}

	lastApprovedLevel := -1
	for _, entry := range trail {
		if entry.Decision == domain.DecisionApproved && entry.Level > lastApprovedLevel {
			lastApprovedLevel = entry.Level
		}
	}
	if lastApprovedLevel < 0 {
		return domain.Status{Kind: domain.StatusSubmitted}, nil
	}
	if next, ok := sm.matrix.NextLevel(lastApprovedLevel, rules); ok {
		return domain.PendingLevel(next), nil
	}
	// Every configured level already approved before the hold.
	return domain.Status{Kind: domain.StatusApproved}, nil
}
