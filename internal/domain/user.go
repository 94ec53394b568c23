package domain

import (
	"strings"
	"time"
)

// Role enumerates directory roles.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleSubmitter Role = "SUBMITTER"
	RoleReviewer  Role = "REVIEWER"
	RoleApprover  Role = "APPROVER"
	RoleRTBOwner  Role = "RTB_OWNER"
)

// ApprovalRoles are the roles that receive approval records on submission.
var ApprovalRoles = []Role{RoleReviewer, RoleApprover, RoleRTBOwner}

// FallbackApprovalRole is used for the single record created when no reviewer is active.
const FallbackApprovalRole = RoleReviewer

// ParseRole normalizes a role name; the second value is false for unknown roles.
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(raw)))
	switch r {
	case RoleAdmin, RoleSubmitter, RoleReviewer, RoleApprover, RoleRTBOwner:
		return r, true
	}
	return "", false
}

// AppUser is a directory entry able to act on tickets.
type AppUser struct {
	ID          string
	Username    string
	Email       string
	DisplayName string
	Role        Role
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Principal is the caller identity supplied by the identity provider.
type Principal struct {
	Username string
	Roles    []Role
}

// HasRole reports whether the principal holds any of the given roles.
func (p Principal) HasRole(roles ...Role) bool {
	for _, held := range p.Roles {
		for _, want := range roles {
			if held == want {
				return true
			}
		}
	}
	return false
}
