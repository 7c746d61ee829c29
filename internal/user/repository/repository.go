package repository

import (
	"context"

	"teamos/backend/internal/user/domain"
)

// Repository persists users. Emails are stored normalized and are unique.
type Repository interface {
	// GetByID and GetByEmail return nil, nil when no user matches.
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create fails with db.ErrDuplicate when the email is taken.
	Create(ctx context.Context, u *domain.User) error
}
