package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// StatusKind enumerates the workflow states of an investment request.
type StatusKind string

const (
	StatusDraft        StatusKind = "draft"
	StatusSubmitted    StatusKind = "submitted"
	StatusPendingLevel StatusKind = "pending_level"
	StatusUnderReview  StatusKind = "under_review"
	StatusApproved     StatusKind = "approved"
	StatusRejected     StatusKind = "rejected"
	StatusOnHold       StatusKind = "on_hold"
)

// Status is a workflow state. Level is meaningful only for pending_level.
type Status struct {
	Kind  StatusKind
	Level int
}

// PendingLevel builds the pending state for an approval level.
func PendingLevel(level int) Status {
	return Status{Kind: StatusPendingLevel, Level: level}
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s.Kind == StatusApproved || s.Kind == StatusRejected
}

// String renders the storage encoding, e.g. "pending_level_2".
func (s Status) String() string {
	if s.Kind == StatusPendingLevel {
		return fmt.Sprintf("pending_level_%d", s.Level)
	}
	return string(s.Kind)
}

// ParseStatus decodes a stored status string.
func ParseStatus(raw string) (Status, error) {
	if lvl, ok := strings.CutPrefix(raw, "pending_level_"); ok {
		n, err := strconv.Atoi(lvl)
		if err != nil || n < 1 {
			return Status{}, fmt.Errorf("invalid pending level in status %q", raw)
		}
		return PendingLevel(n), nil
	}

	switch StatusKind(raw) {
	case StatusDraft, StatusSubmitted, StatusUnderReview, StatusApproved, StatusRejected, StatusOnHold:
		return Status{Kind: StatusKind(raw)}, nil
	}
	return Status{}, fmt.Errorf("unknown status %q", raw)
}
