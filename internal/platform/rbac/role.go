// Package rbac holds the role hierarchy checks (OWNER > ADMIN > MEMBER) used before any mutation.
// Every function here is pure; callers pass the role taken from a resolved tenant context.
package rbac

import (
	"teamos/backend/internal/membership/domain"
	"teamos/backend/internal/platform/apperr"
)

// Rank returns the numeric rank of role. Unknown roles rank 0 and can neither manage nor be managed.
func Rank(role domain.Role) int {
	switch role {
	case domain.RoleOwner:
		return 3
	case domain.RoleAdmin:
		return 2
	case domain.RoleMember:
		return 1
	default:
		return 0
	}
}

// Valid reports whether role is one of OWNER, ADMIN, MEMBER.
func Valid(role domain.Role) bool {
	return Rank(role) > 0
}

// HasAccess reports whether role is in the allow-list.
func HasAccess(role domain.Role, allowed ...domain.Role) bool {
	if !Valid(role) {
		return false
	}
	for _, a := range allowed {
		if a == role {
			return true
		}
	}
	return false
}

// CanManageRole reports whether actor strictly outranks target. Equal ranks are never manageable.
func CanManageRole(actor, target domain.Role) bool {
	if !Valid(actor) || !Valid(target) {
		return false
	}
	return Rank(actor) > Rank(target)
}

// AssignableRoles returns the roles strictly below actor, highest first.
func AssignableRoles(actor domain.Role) []domain.Role {
	out := make([]domain.Role, 0, len(domain.AllRoles))
	for _, r := range domain.AllRoles {
		if CanManageRole(actor, r) {
			out = append(out, r)
		}
	}
	return out
}

// ParseRole accepts exactly OWNER, ADMIN or MEMBER.
func ParseRole(s string) (domain.Role, error) {
	r := domain.Role(s)
	if !Valid(r) {
		return "", apperr.InvalidArgument("role must be one of OWNER, ADMIN, MEMBER")
	}
	return r, nil
}

// DisplayName returns a human-readable role name.
func DisplayName(role domain.Role) string {
	switch role {
	case domain.RoleOwner:
		return "Owner"
	case domain.RoleAdmin:
		return "Administrator"
	case domain.RoleMember:
		return "Member"
	default:
		return string(role)
	}
}

// RequireOrgAdmin returns an InsufficientRole error unless role is OWNER or ADMIN.
func RequireOrgAdmin(role domain.Role) error {
	if !HasAccess(role, domain.RoleOwner, domain.RoleAdmin) {
		return apperr.InsufficientRole("organization admin or owner required")
	}
	return nil
}

// RequireOwner returns an InsufficientRole error unless role is OWNER.
func RequireOwner(role domain.Role) error {
	if !HasAccess(role, domain.RoleOwner) {
		return apperr.InsufficientRole("organization owner required")
	}
	return nil
}
