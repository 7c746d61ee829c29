package rbac

import (
	"context"

	"teamos/backend/internal/membership/domain"
	"teamos/backend/internal/platform/apperr"
)

// Permission names a capability in the role permission catalog.
type Permission string

const (
	PermManageMembers      Permission = "manage_members"
	PermManageProjects     Permission = "manage_projects"
	PermManageSettings     Permission = "manage_settings"
	PermManageBilling      Permission = "manage_billing"
	PermDeleteOrganization Permission = "delete_organization"
	PermViewAuditLogs      Permission = "view_audit_logs"
	PermManageFeatureFlags Permission = "manage_feature_flags"
	PermCreateProjects     Permission = "create_projects"
	PermManageOwnTasks     Permission = "manage_own_tasks"
	PermViewOrganization   Permission = "view_organization"
	PermAddComments        Permission = "add_comments"
)

// Checker answers whether a role holds a permission. The policy engine implements it.
type Checker interface {
	Allowed(ctx context.Context, role domain.Role, perm Permission) (bool, error)
}

// Require returns InsufficientRole when role lacks perm, and an internal error when the checker fails.
func Require(ctx context.Context, c Checker, role domain.Role, perm Permission) error {
	ok, err := c.Allowed(ctx, role, perm)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.InsufficientRole("missing permission " + string(perm))
	}
	return nil
}
