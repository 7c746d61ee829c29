// Package tenant turns an authenticated principal and a tenant selector into the organization
// context a request acts on. Resolution is a pure lookup: it never creates organizations or
// memberships and never falls back to a default tenant.
package tenant

import (
	"context"
	"strings"

	membershipdomain "teamos/backend/internal/membership/domain"
	organizationdomain "teamos/backend/internal/organization/domain"
	"teamos/backend/internal/platform/apperr"
	"teamos/backend/internal/storage"
)

// Context is the resolved authorization context of one request. It is built only by Resolver and
// passed explicitly to services.
type Context struct {
	PrincipalID  string
	Organization *organizationdomain.Org
	Membership   *membershipdomain.Membership
	Role         membershipdomain.Role
}

// OrgID returns the resolved organization id.
func (c *Context) OrgID() string {
	if c == nil || c.Organization == nil {
		return ""
	}
	return c.Organization.ID
}

// Resolver resolves tenant contexts from the membership and organization repositories.
type Resolver struct {
	repos storage.Repos
}

// NewResolver returns a Resolver reading through repos.
func NewResolver(repos storage.Repos) *Resolver {
	return &Resolver{repos: repos}
}

// Resolve validates that principalID is a member of the organization named by selector.
// A selector naming an organization the principal never joined fails exactly like one naming no
// organization at all: the organization row is only read after the membership is found.
func (r *Resolver) Resolve(ctx context.Context, principalID, selector string) (*Context, error) {
	principalID = strings.TrimSpace(principalID)
	selector = strings.TrimSpace(selector)
	if principalID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	if selector == "" {
		return nil, apperr.ErrNoTenantSelected
	}
	return r.load(ctx, principalID, selector)
}

// Switch verifies membership in orgID before the caller persists it as the new selector.
// It fails with the same NotAMember error as Resolve.
func (r *Resolver) Switch(ctx context.Context, principalID, orgID string) (*Context, error) {
	principalID = strings.TrimSpace(principalID)
	orgID = strings.TrimSpace(orgID)
	if principalID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	if orgID == "" {
		return nil, apperr.InvalidArgument("organization id is required")
	}
	return r.load(ctx, principalID, orgID)
}

// Organizations lists the principal's organizations with their role, newest membership first.
func (r *Resolver) Organizations(ctx context.Context, principalID string) ([]*membershipdomain.OrgMembership, error) {
	if strings.TrimSpace(principalID) == "" {
		return nil, apperr.ErrUnauthenticated
	}
	list, err := r.repos.Memberships().ListOrganizationsByUser(ctx, principalID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

func (r *Resolver) load(ctx context.Context, principalID, orgID string) (*Context, error) {
	m, err := r.repos.Memberships().GetMembershipByUserAndOrg(ctx, principalID, orgID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if m == nil {
		return nil, apperr.ErrNotAMember
	}
	org, err := r.repos.Organizations().GetOrganizationByID(ctx, m.OrgID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if org == nil {
		return nil, apperr.ErrNotAMember
	}
	return &Context{
		PrincipalID:  principalID,
		Organization: org,
		Membership:   m,
		Role:         m.Role,
	}, nil
}
