package domain

import (
	"time"

	membershipdomain "teamos/backend/internal/membership/domain"
)

// TTL is the fixed validity window of an invitation.
const TTL = 48 * time.Hour

// Invitation is a pending offer of membership. Only the SHA-256 hash of the token is stored.
// At most one invitation exists per (Email, OrgID).
type Invitation struct {
	ID          string
	Email       string
	OrgID       string
	Role        membershipdomain.Role
	TokenHash   string
	InvitedByID string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Expired reports whether the invitation can no longer be redeemed at now.
func (i *Invitation) Expired(now time.Time) bool {
	return i.ExpiresAt.Before(now)
}
