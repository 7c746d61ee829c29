package repository

import (
	"context"

	"teamos/backend/internal/identity/domain"
)

// Repository persists credentials. At most one identity exists per (user, provider).
type Repository interface {
	// GetByUserAndProvider returns nil, nil when the user has no identity for provider.
	GetByUserAndProvider(ctx context.Context, userID string, provider domain.IdentityProvider) (*domain.Identity, error)
	// Create fails with db.ErrDuplicate when the user already has an identity for the provider.
	Create(ctx context.Context, i *domain.Identity) error
	// SetPasswordHash replaces the stored hash of identity id.
	SetPasswordHash(ctx context.Context, id, passwordHash string) error
}
