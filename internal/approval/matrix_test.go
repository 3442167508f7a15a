package approval

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-fin-capex/internal/domain"
)

func rule(level int, role, dept string, min, max int64, active bool) domain.ApprovalMatrixRule {
	return domain.ApprovalMatrixRule{
		Level:      level,
		Role:       role,
		Department: dept,
		AmountMin:  min,
		AmountMax:  max,
		Active:     active,
	}
}

func approver(level int, dept string) domain.Actor {
	role, _ := domain.ParseRole(fmt.Sprintf("Approver_L%d", level))
	return domain.Actor{UserID: "user-" + role.Name, Role: role, Department: dept}
}

func pendingRequest(status domain.Status, baseAmount int64) *domain.InvestmentRequest {
	return &domain.InvestmentRequest{
		ID:                "req-1",
		Department:        "IT",
		Status:            status,
		BaseCurrencyCapex: baseAmount,
	}
}

func TestApplicableRules_FiltersRoleDepartmentAndActive(t *testing.T) {
	m := NewMatrixResolver()
	rules := []domain.ApprovalMatrixRule{
		rule(1, "Approver_L1", "IT", 0, 1_000_00, true),
		rule(1, "Approver_L1", "All", 0, 1_000_00, true),
		rule(1, "Approver_L1", "Finance", 0, 1_000_00, true),
		rule(1, "Approver_L1", "IT", 0, 1_000_00, false),
		rule(2, "Approver_L2", "IT", 0, 1_000_00, true),
	}

	matched := m.ApplicableRules("Approver_L1", "IT", rules)
	require.Len(t, matched, 2)
	for _, r := range matched {
		assert.Equal(t, "Approver_L1", r.Role)
		assert.True(t, r.Department == "IT" || r.Department == "All")
		assert.True(t, r.Active)
	}
}

func TestCanApprove_AdminAlwaysEligible(t *testing.T) {
	m := NewMatrixResolver()
	admin, err := domain.ParseRole("Admin")
	require.NoError(t, err)

	req := pendingRequest(domain.PendingLevel(3), 50_000_00)
	ok := m.CanApprove(req, domain.Actor{UserID: "admin", Role: admin}, nil)
	assert.True(t, ok, "admin must be eligible with no rules at all")
}

func TestCanApprove_LevelMustMatchPendingStatus(t *testing.T) {
	m := NewMatrixResolver()
	rules := []domain.ApprovalMatrixRule{
		rule(1, "Approver_L1", "All", 0, 100_000_00, true),
		rule(2, "Approver_L2", "All", 0, 500_000_00, true),
	}

	req := pendingRequest(domain.PendingLevel(2), 50_000_00)

	assert.False(t, m.CanApprove(req, approver(1, "IT"), rules))
	assert.True(t, m.CanApprove(req, approver(2, "IT"), rules))
}

func TestCanApprove_SubmittedIsLevelZeroEntryPoint(t *testing.T) {
	m := NewMatrixResolver()
	rules := []domain.ApprovalMatrixRule{
		rule(1, "Approver_L1", "All", 0, 100_000_00, true),
	}

	req := pendingRequest(domain.Status{Kind: domain.StatusSubmitted}, 50_000_00)
	assert.True(t, m.CanApprove(req, approver(1, "IT"), rules))
}

func TestCanApprove_AmountMustFallWithinRuleInterval(t *testing.T) {
	m := NewMatrixResolver()
	rules := []domain.ApprovalMatrixRule{
		rule(1, "Approver_L1", "All", 10_000_00, 100_000_00, true),
	}

	cases := []struct {
		name   string
		amount int64
		want   bool
	}{
		{"below interval", 9_999_99, false},
		{"at lower bound", 10_000_00, true},
		{"inside interval", 55_000_00, true},
		{"at upper bound", 100_000_00, true},
		{"above interval", 100_000_01, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := pendingRequest(domain.Status{Kind: domain.StatusSubmitted}, tc.amount)
			assert.Equal(t, tc.want, m.CanApprove(req, approver(1, "IT"), rules))
		})
	}
}

func TestCanApprove_FailsClosedWithoutApplicableRule(t *testing.T) {
	m := NewMatrixResolver()

	req := pendingRequest(domain.Status{Kind: domain.StatusSubmitted}, 50_000_00)

	assert.False(t, m.CanApprove(req, approver(1, "IT"), nil))

	wrongDept := []domain.ApprovalMatrixRule{
		rule(1, "Approver_L1", "Finance", 0, 100_000_00, true),
	}
	assert.False(t, m.CanApprove(req, approver(1, "IT"), wrongDept))

	inactive := []domain.ApprovalMatrixRule{
		rule(1, "Approver_L1", "All", 0, 100_000_00, false),
	}
	assert.False(t, m.CanApprove(req, approver(1, "IT"), inactive))
}

func TestCanApprove_NonApproverRolesAreNotEligible(t *testing.T) {
	m := NewMatrixResolver()
	rules := []domain.ApprovalMatrixRule{
		rule(1, "Approver_L1", "All", 0, 100_000_00, true),
	}

	submitter, err := domain.ParseRole("Submitter")
	require.NoError(t, err)

	req := pendingRequest(domain.Status{Kind: domain.StatusSubmitted}, 50_000_00)
	assert.False(t, m.CanApprove(req, domain.Actor{UserID: "u1", Role: submitter}, rules))
}

func TestNextLevel_SearchesNonContiguousLevels(t *testing.T) {
	m := NewMatrixResolver()
	rules := []domain.ApprovalMatrixRule{
		rule(1, "Approver_L1", "All", 0, 100_000_00, true),
		rule(2, "Approver_L2", "All", 0, 500_000_00, true),
		rule(4, "Approver_L4", "All", 0, 1_000_000_00, true),
	}

	next, ok := m.NextLevel(2, rules)
	require.True(t, ok)
	assert.Equal(t, 4, next, "next after 2 must be 4 when 3 is not configured")

	next, ok = m.NextLevel(0, rules)
	require.True(t, ok)
	assert.Equal(t, 1, next)

	_, ok = m.NextLevel(4, rules)
	assert.False(t, ok, "chain terminates after the highest level")
}

func TestNextLevel_SkipsInactiveLevels(t *testing.T) {
	m := NewMatrixResolver()
	rules := []domain.ApprovalMatrixRule{
		rule(1, "Approver_L1", "All", 0, 100_000_00, true),
		rule(2, "Approver_L2", "All", 0, 500_000_00, false),
		rule(3, "Approver_L3", "All", 0, 1_000_000_00, true),
	}

	next, ok := m.NextLevel(1, rules)
	require.True(t, ok)
	assert.Equal(t, 3, next)
}
