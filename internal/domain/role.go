package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// RoleKind tags the resolved role of an acting user.
type RoleKind string

const (
	RoleAdmin     RoleKind = "admin"
	RoleApprover  RoleKind = "approver"
	RoleSubmitter RoleKind = "submitter"
	RoleOther     RoleKind = "other"
)

// Role is the resolved role of a user, computed once at the boundary so the
// approval logic never parses role strings.
type Role struct {
	Kind  RoleKind
	Level int    // approval level; meaningful only for approvers
	Name  string // original role name, kept for rule matching and logging
}

// ParseRole resolves a raw role string such as "Admin", "Approver_L2" or
// "Submitter" into a tagged Role.
func ParseRole(raw string) (Role, error) {
	switch {
	case strings.EqualFold(raw, "Admin"):
		return Role{Kind: RoleAdmin, Name: raw}, nil
	case strings.EqualFold(raw, "Submitter"):
		return Role{Kind: RoleSubmitter, Name: raw}, nil
	}

	if lvl, ok := strings.CutPrefix(raw, "Approver_L"); ok {
		n, err := strconv.Atoi(lvl)
		if err != nil || n < 1 {
			return Role{}, fmt.Errorf("invalid approver level in role %q", raw)
		}
		return Role{Kind: RoleApprover, Level: n, Name: raw}, nil
	}

	if raw == "" {
		return Role{}, fmt.Errorf("empty role")
	}
	return Role{Kind: RoleOther, Name: raw}, nil
}

// Actor is a user acting on a request.
type Actor struct {
	UserID     string
	Role       Role
	Department string
}
