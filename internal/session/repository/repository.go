package repository

import (
	"context"

	"teamos/backend/internal/session/domain"
)

// Repository persists login sessions. Rows are never deleted; logout sets revoked_at.
type Repository interface {
	// GetByID returns nil, nil for an unknown id.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	// Revoke marks the session revoked. Revoking twice keeps the first timestamp.
	Revoke(ctx context.Context, id string) error
}
