package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus_RoundTrip(t *testing.T) {
	encodings := []string{
		"draft", "submitted", "under_review", "approved", "rejected", "on_hold",
		"pending_level_1", "pending_level_3", "pending_level_12",
	}
	for _, raw := range encodings {
		t.Run(raw, func(t *testing.T) {
			s, err := ParseStatus(raw)
			require.NoError(t, err)
			assert.Equal(t, raw, s.String())
		})
	}
}

func TestParseStatus_RejectsUnknownEncodings(t *testing.T) {
	for _, raw := range []string{"", "open", "pending_level_", "pending_level_0", "pending_level_x", "Approved"} {
		_, err := ParseStatus(raw)
		assert.Error(t, err, "input %q", raw)
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, Status{Kind: StatusApproved}.Terminal())
	assert.True(t, Status{Kind: StatusRejected}.Terminal())
	assert.False(t, Status{Kind: StatusOnHold}.Terminal())
	assert.False(t, PendingLevel(2).Terminal())
	assert.False(t, Status{Kind: StatusDraft}.Terminal())
}
