// Package handler serves the organization endpoints: the switcher, creation and the current
// tenant's settings.
package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	membershipdomain "teamos/backend/internal/membership/domain"
	"teamos/backend/internal/organization/domain"
	"teamos/backend/internal/organization/service"
	"teamos/backend/internal/platform/httpx"
	"teamos/backend/internal/platform/rbac"
	"teamos/backend/internal/tenant"
)

// PermissionLister lists the permissions granted to a role.
type PermissionLister interface {
	Permissions(ctx context.Context, role membershipdomain.Role) ([]rbac.Permission, error)
}

// Handler serves /api/organizations.
type Handler struct {
	orgs        *service.Service
	resolver    *tenant.Resolver
	permissions PermissionLister
	cookies     httpx.CookiePolicy
}

// New returns a Handler.
func New(orgs *service.Service, resolver *tenant.Resolver, permissions PermissionLister, cookies httpx.CookiePolicy) *Handler {
	return &Handler{orgs: orgs, resolver: resolver, permissions: permissions, cookies: cookies}
}

type organizationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
}

func toOrganization(o *domain.Org) organizationResponse {
	return organizationResponse{ID: o.ID, Name: o.Name, Slug: o.Slug, CreatedAt: o.CreatedAt}
}

type membershipResponse struct {
	ID   string                `json:"id"`
	Name string                `json:"name"`
	Slug string                `json:"slug"`
	Role membershipdomain.Role `json:"role"`
}

type currentResponse struct {
	Organization organizationResponse  `json:"organization"`
	Role         membershipdomain.Role `json:"role"`
	RoleName     string                `json:"roleName"`
	Permissions  []rbac.Permission     `json:"permissions"`
}

type createRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type switchRequest struct {
	OrganizationID string `json:"organizationId"`
}

type updateRequest struct {
	Name *string `json:"name"`
	Slug *string `json:"slug"`
}

// List returns every organization the principal belongs to.
func (h *Handler) List(c *fiber.Ctx) error {
	ms, err := h.resolver.Organizations(c.UserContext(), httpx.PrincipalID(c))
	if err != nil {
		return err
	}
	out := make([]membershipResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, membershipResponse{ID: m.OrgID, Name: m.OrgName, Slug: m.OrgSlug, Role: m.Role})
	}
	return httpx.OK(c, out)
}

// Create creates an organization owned by the principal and selects it.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	org, err := h.orgs.Create(c.UserContext(), httpx.PrincipalID(c), req.Name, req.Slug)
	if err != nil {
		return err
	}
	h.cookies.SetTenant(c, org.ID)
	return httpx.Created(c, toOrganization(org))
}

// Switch selects another organization the principal belongs to.
func (h *Handler) Switch(c *fiber.Ctx) error {
	var req switchRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	tc, err := h.resolver.Switch(c.UserContext(), httpx.PrincipalID(c), req.OrganizationID)
	if err != nil {
		return err
	}
	h.cookies.SetTenant(c, tc.OrgID())
	return h.current(c, tc)
}

// Current returns the resolved tenant with the caller's role and permissions.
func (h *Handler) Current(c *fiber.Ctx) error {
	return h.current(c, httpx.Tenant(c))
}

func (h *Handler) current(c *fiber.Ctx, tc *tenant.Context) error {
	perms, err := h.permissions.Permissions(c.UserContext(), tc.Role)
	if err != nil {
		return err
	}
	return httpx.OK(c, currentResponse{
		Organization: toOrganization(tc.Organization),
		Role:         tc.Role,
		RoleName:     rbac.DisplayName(tc.Role),
		Permissions:  perms,
	})
}

// Update changes the current organization's name or slug.
func (h *Handler) Update(c *fiber.Ctx) error {
	var req updateRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	org, err := h.orgs.Update(c.UserContext(), httpx.Tenant(c), req.Name, req.Slug)
	if err != nil {
		return err
	}
	return httpx.OK(c, toOrganization(org))
}
