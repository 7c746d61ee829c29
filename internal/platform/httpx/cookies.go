package httpx

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Cookie names.
const (
	SessionCookie = "session"
	TenantCookie  = "org_id"
)

// TenantCookieMaxAge is the lifetime of the tenant selector. It slides on every resolution.
const TenantCookieMaxAge = 30 * 24 * time.Hour

// CookiePolicy issues the session and tenant cookies. Secure is on in production.
type CookiePolicy struct {
	Secure bool
}

func (p CookiePolicy) cookie(name, value string, maxAge time.Duration) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HTTPOnly: true,
		Secure:   p.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

func (p CookiePolicy) expired(name string) *fiber.Cookie {
	ck := p.cookie(name, "", 0)
	ck.MaxAge = -1
	ck.Expires = time.Unix(0, 0)
	return ck
}

// SetSession stores the session token until expiresAt.
func (p CookiePolicy) SetSession(c *fiber.Ctx, token string, expiresAt time.Time) {
	ck := p.cookie(SessionCookie, token, time.Until(expiresAt))
	ck.Expires = expiresAt
	c.Cookie(ck)
}

// ClearSession removes the session cookie.
func (p CookiePolicy) ClearSession(c *fiber.Ctx) { c.Cookie(p.expired(SessionCookie)) }

// SetTenant selects orgID for the next 30 days.
func (p CookiePolicy) SetTenant(c *fiber.Ctx, orgID string) {
	c.Cookie(p.cookie(TenantCookie, orgID, TenantCookieMaxAge))
}

// ClearTenant removes the tenant selector.
func (p CookiePolicy) ClearTenant(c *fiber.Ctx) { c.Cookie(p.expired(TenantCookie)) }
