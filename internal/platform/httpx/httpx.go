// Package httpx holds the pieces every HTTP handler shares: the JSON envelope, error mapping,
// cookie policy and access to the per-request principal and tenant context.
package httpx

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	identityservice "teamos/backend/internal/identity/service"
	"teamos/backend/internal/platform/apperr"
	"teamos/backend/internal/tenant"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

// OK writes a 200 success envelope.
func OK(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusOK).JSON(Envelope{Success: true, Data: data})
}

// Created writes a 201 success envelope.
func Created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(Envelope{Success: true, Data: data})
}

// ErrorHandler renders errors returned by handlers. *apperr.Error keeps its code and message;
// fiber errors (unknown route, bad method) keep their status; anything else is logged and
// answered with a generic INTERNAL error.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code := apperr.CodeInternal
			switch fe.Code {
			case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
				code = apperr.CodeNotFound
			case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUnprocessableEntity:
				code = apperr.CodeInvalidArgument
			}
			return c.Status(fe.Code).JSON(Envelope{Error: &ErrorBody{Code: code, Message: fe.Message}})
		}

		var appErr *apperr.Error
		if !errors.As(err, &appErr) {
			appErr = apperr.Internal(err)
		}
		if appErr.Code == apperr.CodeInternal {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
		}
		return c.Status(apperr.HTTPStatus(appErr.Code)).JSON(Envelope{
			Error: &ErrorBody{Code: appErr.Code, Message: appErr.Message},
		})
	}
}

// Bind parses the JSON body into v.
func Bind(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return apperr.InvalidArgument("invalid request body")
	}
	return nil
}

const (
	localPrincipal = "principal"
	localTenant    = "tenant"
)

// SetPrincipal stores the authenticated principal for the request.
func SetPrincipal(c *fiber.Ctx, p *identityservice.Principal) { c.Locals(localPrincipal, p) }

// Principal returns the authenticated principal, or nil on public routes.
func Principal(c *fiber.Ctx) *identityservice.Principal {
	p, _ := c.Locals(localPrincipal).(*identityservice.Principal)
	return p
}

// PrincipalID returns the authenticated user id or "".
func PrincipalID(c *fiber.Ctx) string {
	if p := Principal(c); p != nil {
		return p.UserID
	}
	return ""
}

// SetTenant stores the resolved tenant context for the request.
func SetTenant(c *fiber.Ctx, t *tenant.Context) { c.Locals(localTenant, t) }

// Tenant returns the resolved tenant context, or nil on routes that do not resolve one.
func Tenant(c *fiber.Ctx) *tenant.Context {
	t, _ := c.Locals(localTenant).(*tenant.Context)
	return t
}
