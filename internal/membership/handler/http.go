// Package handler serves member listing, role changes and removal for the current organization.
package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"teamos/backend/internal/membership/domain"
	"teamos/backend/internal/membership/service"
	"teamos/backend/internal/platform/httpx"
	"teamos/backend/internal/platform/rbac"
)

// Handler serves /api/members.
type Handler struct {
	members *service.Service
}

// New returns a Handler.
func New(members *service.Service) *Handler {
	return &Handler{members: members}
}

type memberResponse struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      domain.Role `json:"role"`
	RoleName  string      `json:"roleName"`
	CreatedAt time.Time   `json:"createdAt"`
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

// List returns the members of the current organization.
func (h *Handler) List(c *fiber.Ctx) error {
	ms, err := h.members.List(c.UserContext(), httpx.Tenant(c))
	if err != nil {
		return err
	}
	out := make([]memberResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, memberResponse{
			ID:        m.ID,
			UserID:    m.UserID,
			Email:     m.Email,
			Name:      m.Name,
			Role:      m.Role,
			RoleName:  rbac.DisplayName(m.Role),
			CreatedAt: m.CreatedAt,
		})
	}
	return httpx.OK(c, out)
}

// ChangeRole sets the role of membership :id.
func (h *Handler) ChangeRole(c *fiber.Ctx) error {
	var req changeRoleRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	role, err := rbac.ParseRole(req.Role)
	if err != nil {
		return err
	}
	m, err := h.members.ChangeRole(c.UserContext(), httpx.Tenant(c), c.Params("id"), role)
	if err != nil {
		return err
	}
	return httpx.OK(c, fiber.Map{"id": m.ID, "role": m.Role})
}

// Remove deletes membership :id. Members may remove themselves.
func (h *Handler) Remove(c *fiber.Ctx) error {
	if err := h.members.Remove(c.UserContext(), httpx.Tenant(c), c.Params("id")); err != nil {
		return err
	}
	return httpx.OK(c, nil)
}
