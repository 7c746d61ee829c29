package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"teamos/backend/internal/audit"
	identityservice "teamos/backend/internal/identity/service"
	"teamos/backend/internal/platform/apperr"
	"teamos/backend/internal/platform/httpx"
	"teamos/backend/internal/tenant"
)

// Authenticator validates session tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*identityservice.Principal, error)
}

// TenantResolver resolves the tenant selector for a principal.
type TenantResolver interface {
	Resolve(ctx context.Context, principalID, selector string) (*tenant.Context, error)
}

// RequestContext starts a span per request, records the client IP for audit events and logs
// the outcome. Health checks are not logged.
func RequestContext(tracer trace.Tracer, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		ctx := audit.WithClientIP(c.UserContext(), c.IP())
		ctx, span := tracer.Start(ctx, c.Method()+" "+c.Path(), trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		c.SetUserContext(ctx)

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = apperr.HTTPStatus(apperr.CodeOf(err))
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		span.SetAttributes(
			attribute.String("http.request.method", c.Method()),
			attribute.String("http.route", c.Route().Path),
			attribute.Int("http.response.status_code", status),
		)
		if status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, "server error")
		}
		if c.Path() != "/healthz" {
			log.Debug("request",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.String("client_ip", c.IP()),
				zap.String("user_id", httpx.PrincipalID(c)))
		}
		return err
	}
}

// Authenticate requires a valid session cookie and stores the principal in the request locals.
func Authenticate(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.Authenticate(c.UserContext(), c.Cookies(httpx.SessionCookie))
		if err != nil {
			return err
		}
		httpx.SetPrincipal(c, p)
		return c.Next()
	}
}

// ResolveTenant resolves the tenant cookie for the authenticated principal. On success the cookie
// is re-issued so its lifetime slides; on failure the request stops with the resolver's error.
func ResolveTenant(resolver TenantResolver, cookies httpx.CookiePolicy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tc, err := resolver.Resolve(c.UserContext(), httpx.PrincipalID(c), c.Cookies(httpx.TenantCookie))
		if err != nil {
			return err
		}
		cookies.SetTenant(c, tc.OrgID())
		httpx.SetTenant(c, tc)
		return c.Next()
	}
}
