// Package approval implements the approval-matrix resolver and the request
// state machine. Both are pure: rules, requests and log trails arrive as
// plain data and the commit of a decision is left to the caller.
package approval

import (
	"github.com/pesio-ai/be-fin-capex/internal/domain"
)

// MatrixResolver answers eligibility and next-level questions over a
// configured approval matrix.
type MatrixResolver struct{}

// NewMatrixResolver creates a MatrixResolver.
func NewMatrixResolver() *MatrixResolver {
	return &MatrixResolver{}
}

// ApplicableRules returns the active rules matching a role name and
// department. Department "All" on a rule matches any department.
func (m *MatrixResolver) ApplicableRules(roleName, department string, rules []domain.ApprovalMatrixRule) []domain.ApprovalMatrixRule {
	var matched []domain.ApprovalMatrixRule
	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		if rule.Role != roleName {
			continue
		}
		if rule.Department != domain.DepartmentWildcard && rule.Department != department {
			continue
		}
		matched = append(matched, rule)
	}
	return matched
}

// CanApprove reports whether the actor may decide on the request right now.
// Admins always may. Everyone else must match the request's current pending
// level (Submitted acts as the level-0 entry point) and hold at least one
// applicable rule covering the request's reference-currency total. No
// applicable rule means no: the resolver fails closed.
func (m *MatrixResolver) CanApprove(req *domain.InvestmentRequest, actor domain.Actor, rules []domain.ApprovalMatrixRule) bool {
	if actor.Role.Kind == domain.RoleAdmin {
		return true
	}
	if actor.Role.Kind != domain.RoleApprover {
		return false
	}

	switch req.Status.Kind {
	case domain.StatusSubmitted:
		// level-0 entry point
	case domain.StatusPendingLevel:
		if req.Status.Level != actor.Role.Level {
			return false
		}
	default:
		return false
	}

	amount := req.TotalBaseAmount()
	for _, rule := range m.ApplicableRules(actor.Role.Name, actor.Department, rules) {
		if amount >= rule.AmountMin && amount <= rule.AmountMax {
			return true
		}
	}
	return false
}

// NextLevel returns the smallest active level strictly greater than
// currentLevel. Levels need not be contiguous, so this searches rather than
// increments. ok is false when the chain terminates (approval is final).
func (m *MatrixResolver) NextLevel(currentLevel int, rules []domain.ApprovalMatrixRule) (next int, ok bool) {
	for _, rule := range rules {
		if !rule.Active || rule.Level <= currentLevel {
			continue
		}
		if !ok || rule.Level < next {
			next = rule.Level
			ok = true
		}
	}
	return next, ok
}
