// Package handler serves the authentication endpoints.
package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"teamos/backend/internal/identity/service"
	"teamos/backend/internal/platform/httpx"
)

// Handler serves /api/auth.
type Handler struct {
	auth    *service.AuthService
	cookies httpx.CookiePolicy
}

// New returns a Handler.
func New(auth *service.AuthService, cookies httpx.CookiePolicy) *Handler {
	return &Handler{auth: auth, cookies: cookies}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *Handler) start(c *fiber.Ctx, s *service.Session, status int) error {
	h.cookies.SetSession(c, s.Token, s.ExpiresAt)
	body := sessionResponse{UserID: s.UserID, ExpiresAt: s.ExpiresAt.UTC()}
	if status == fiber.StatusCreated {
		return httpx.Created(c, body)
	}
	return httpx.OK(c, body)
}

// Register creates an account and signs it in.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	s, err := h.auth.Register(c.UserContext(), req.Email, req.Password, req.Name)
	if err != nil {
		return err
	}
	return h.start(c, s, fiber.StatusCreated)
}

// Login signs in with email and password.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	s, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return h.start(c, s, fiber.StatusOK)
}

// Logout clears the tenant selector first, then revokes the session, then clears the session
// cookie. A missing or invalid session still signs the browser out.
func (h *Handler) Logout(c *fiber.Ctx) error {
	h.cookies.ClearTenant(c)
	if err := h.auth.Logout(c.UserContext(), c.Cookies(httpx.SessionCookie)); err != nil {
		return err
	}
	h.cookies.ClearSession(c)
	return httpx.OK(c, nil)
}
