// Package handler serves the invitation endpoints: issuing and revoking invitations inside the
// current organization, and the public accept flow.
package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"teamos/backend/internal/invitation/domain"
	"teamos/backend/internal/invitation/service"
	membershipdomain "teamos/backend/internal/membership/domain"
	"teamos/backend/internal/platform/httpx"
	"teamos/backend/internal/platform/rbac"
)

// Handler serves /api/invitations and /api/accept-invite.
type Handler struct {
	invitations *service.Service
	cookies     httpx.CookiePolicy
	// exposeLinks returns the raw token and accept URL to the inviter. Off in production, where
	// the link only travels by email.
	exposeLinks bool
}

// New returns a Handler.
func New(invitations *service.Service, cookies httpx.CookiePolicy, exposeLinks bool) *Handler {
	return &Handler{invitations: invitations, cookies: cookies, exposeLinks: exposeLinks}
}

type invitationResponse struct {
	ID        string                `json:"id"`
	Email     string                `json:"email"`
	Role      membershipdomain.Role `json:"role"`
	ExpiresAt time.Time             `json:"expiresAt"`
	CreatedAt time.Time             `json:"createdAt"`
	AcceptURL string                `json:"acceptUrl,omitempty"`
	Token     string                `json:"token,omitempty"`
}

func toInvitation(i *domain.Invitation) invitationResponse {
	return invitationResponse{ID: i.ID, Email: i.Email, Role: i.Role, ExpiresAt: i.ExpiresAt, CreatedAt: i.CreatedAt}
}

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type acceptRequest struct {
	Token    string `json:"token"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type previewResponse struct {
	Email            string                `json:"email"`
	OrganizationName string                `json:"organizationName"`
	Role             membershipdomain.Role `json:"role"`
	ExpiresAt        time.Time             `json:"expiresAt"`
	HasAccount       bool                  `json:"hasAccount"`
}

type acceptedResponse struct {
	OrganizationID string                `json:"organizationId"`
	Role           membershipdomain.Role `json:"role"`
}

// List returns the pending invitations of the current organization.
func (h *Handler) List(c *fiber.Ctx) error {
	invs, err := h.invitations.ListPending(c.UserContext(), httpx.Tenant(c))
	if err != nil {
		return err
	}
	out := make([]invitationResponse, 0, len(invs))
	for _, i := range invs {
		out = append(out, toInvitation(i))
	}
	return httpx.OK(c, out)
}

// Create invites an email address into the current organization.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req inviteRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	role, err := rbac.ParseRole(req.Role)
	if err != nil {
		return err
	}
	issued, err := h.invitations.Invite(c.UserContext(), httpx.Tenant(c), req.Email, role)
	if err != nil {
		return err
	}
	out := toInvitation(issued.Invitation)
	if h.exposeLinks {
		out.AcceptURL = issued.AcceptURL
		out.Token = issued.Token
	}
	return httpx.Created(c, out)
}

// Revoke deletes pending invitation :id.
func (h *Handler) Revoke(c *fiber.Ctx) error {
	if err := h.invitations.Revoke(c.UserContext(), httpx.Tenant(c), c.Params("id")); err != nil {
		return err
	}
	return httpx.OK(c, nil)
}

// Lookup describes the invitation behind ?token= for the accept page.
func (h *Handler) Lookup(c *fiber.Ctx) error {
	p, err := h.invitations.Lookup(c.UserContext(), c.Query("token"))
	if err != nil {
		return err
	}
	return httpx.OK(c, previewResponse{
		Email:            p.Email,
		OrganizationName: p.OrganizationName,
		Role:             p.Role,
		ExpiresAt:        p.ExpiresAt,
		HasAccount:       p.HasAccount,
	})
}

// Accept redeems an invitation, signs the invitee in and selects the joined organization.
func (h *Handler) Accept(c *fiber.Ctx) error {
	var req acceptRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	res, err := h.invitations.Accept(c.UserContext(), req.Token, req.Name, req.Password)
	if err != nil {
		return err
	}
	h.cookies.SetSession(c, res.Session.Token, res.Session.ExpiresAt)
	h.cookies.SetTenant(c, res.OrganizationID)
	return httpx.OK(c, acceptedResponse{OrganizationID: res.OrganizationID, Role: res.Role})
}
