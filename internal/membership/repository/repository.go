package repository

import (
	"context"

	"teamos/backend/internal/membership/domain"
)

// Repository defines persistence for memberships.
type Repository interface {
	GetMembershipByID(ctx context.Context, id string) (*domain.Membership, error)
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error)
	// ListMembersByOrg returns the org's memberships joined with their users, oldest first.
	ListMembersByOrg(ctx context.Context, orgID string) ([]*domain.Member, error)
	// ListOrganizationsByUser returns the user's memberships joined with their organizations, newest first.
	ListOrganizationsByUser(ctx context.Context, userID string) ([]*domain.OrgMembership, error)
	CreateMembership(ctx context.Context, m *domain.Membership) error
	UpdateRole(ctx context.Context, id string, role domain.Role) error
	DeleteMembership(ctx context.Context, id string) error
	// LockOwnersByOrg row-locks the org's OWNER memberships for the rest of the transaction and returns how many there are.
	LockOwnersByOrg(ctx context.Context, orgID string) (int, error)
}
