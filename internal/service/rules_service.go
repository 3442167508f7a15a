package service

import (
	"context"
	"strings"

	"github.com/pesio-ai/be-fin-capex/internal/domain"
	"github.com/pesio-ai/be-fin-capex/internal/platform/errors"
	"github.com/pesio-ai/be-fin-capex/internal/platform/logger"
	"github.com/pesio-ai/be-fin-capex/internal/repository"
)

// RulesService manages the approval matrix configuration.
type RulesService struct {
	rulesRepo *repository.RulesRepository
	log       *logger.Logger
}

// NewRulesService creates a new RulesService.
func NewRulesService(rulesRepo *repository.RulesRepository, log *logger.Logger) *RulesService {
	return &RulesService{rulesRepo: rulesRepo, log: log}
}

// RuleRequest carries matrix rule fields for create/update.
type RuleRequest struct {
	Level      int    `json:"level"`
	Role       string `json:"role"`
	Department string `json:"department"`
	AmountMin  int64  `json:"amount_min"`
	AmountMax  int64  `json:"amount_max"`
	Active     bool   `json:"active"`
}

// validateRule rejects malformed matrix rules. Overlapping intervals are
// permitted (first match wins at resolution time) but gaps in expected
// routing ranges are a configuration concern, not enforced here.
func (s *RulesService) validateRule(req *RuleRequest) error {
	if req.Level < 1 {
		return errors.InvalidInput("level", "level must be a positive integer")
	}
	if strings.TrimSpace(req.Role) == "" {
		return errors.InvalidInput("role", "role is required")
	}
	if _, err := domain.ParseRole(req.Role); err != nil {
		return errors.InvalidInput("role", err.Error())
	}
	if strings.TrimSpace(req.Department) == "" {
		return errors.InvalidInput("department", "department is required (use \"All\" as wildcard)")
	}
	if req.AmountMin < 0 {
		return errors.InvalidInput("amount_min", "amount_min cannot be negative")
	}
	if req.AmountMax < req.AmountMin {
		return errors.InvalidInput("amount_max", "amount_max must be at least amount_min")
	}
	return nil
}

// CreateRule adds a matrix rule.
func (s *RulesService) CreateRule(ctx context.Context, req *RuleRequest) (*domain.ApprovalMatrixRule, error) {
	if err := s.validateRule(req); err != nil {
		return nil, err
	}

	rule := &domain.ApprovalMatrixRule{
		Level:      req.Level,
		Role:       req.Role,
		Department: req.Department,
		AmountMin:  req.AmountMin,
		AmountMax:  req.AmountMax,
		Active:     req.Active,
	}
	if err := s.rulesRepo.Create(ctx, rule); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("rule_id", rule.ID).
		Int("level", rule.Level).
		Str("role", rule.Role).
		Str("department", rule.Department).
		Msg("Approval matrix rule created")

	return rule, nil
}

// ListRules returns the configured matrix, optionally active rules only.
func (s *RulesService) ListRules(ctx context.Context, activeOnly bool) ([]domain.ApprovalMatrixRule, error) {
	return s.rulesRepo.List(ctx, activeOnly)
}

// UpdateRule replaces a rule's fields.
func (s *RulesService) UpdateRule(ctx context.Context, id string, req *RuleRequest) (*domain.ApprovalMatrixRule, error) {
	if err := s.validateRule(req); err != nil {
		return nil, err
	}

	rule, err := s.rulesRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rule.Level = req.Level
	rule.Role = req.Role
	rule.Department = req.Department
	rule.AmountMin = req.AmountMin
	rule.AmountMax = req.AmountMax
	rule.Active = req.Active

	if err := s.rulesRepo.Update(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// DeactivateRule disables a rule without deleting its history.
func (s *RulesService) DeactivateRule(ctx context.Context, id string) error {
	if err := s.rulesRepo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("rule_id", id).Msg("Approval matrix rule deactivated")
	return nil
}
