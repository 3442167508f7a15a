package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	cases := []struct {
		raw       string
		wantKind  RoleKind
		wantLevel int
	}{
		{"Admin", RoleAdmin, 0},
		{"admin", RoleAdmin, 0},
		{"Submitter", RoleSubmitter, 0},
		{"Approver_L1", RoleApprover, 1},
		{"Approver_L4", RoleApprover, 4},
		{"Approver_L10", RoleApprover, 10},
		{"Viewer", RoleOther, 0},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			role, err := ParseRole(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.wantKind, role.Kind)
			assert.Equal(t, tc.wantLevel, role.Level)
			assert.Equal(t, tc.raw, role.Name, "original name retained for rule matching")
		})
	}
}

func TestParseRole_Invalid(t *testing.T) {
	for _, raw := range []string{"", "Approver_L0", "Approver_L-1", "Approver_Lx"} {
		_, err := ParseRole(raw)
		assert.Error(t, err, "input %q", raw)
	}
}

func TestParsePriority(t *testing.T) {
	for _, raw := range []string{"low", "medium", "high", "critical"} {
		p, ok := ParsePriority(raw)
		require.True(t, ok, "input %q", raw)
		assert.Equal(t, Priority(raw), p)
	}
	_, ok := ParsePriority("urgent")
	assert.False(t, ok)
}

func TestParseBusinessCaseType(t *testing.T) {
	for _, raw := range []string{"compliance", "esg", "cost_control", "expansion", "asset_creation", "ipo_prep"} {
		ct, ok := ParseBusinessCaseType(raw)
		require.True(t, ok, "input %q", raw)
		assert.Equal(t, BusinessCaseType(raw), ct)
	}
	_, ok := ParseBusinessCaseType("growth")
	assert.False(t, ok)
}
