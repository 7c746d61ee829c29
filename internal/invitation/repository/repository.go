package repository

import (
	"context"

	"teamos/backend/internal/invitation/domain"
)

// Repository defines persistence for invitations.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Invitation, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Invitation, error)
	ListByOrg(ctx context.Context, orgID string) ([]*domain.Invitation, error)
	Create(ctx context.Context, inv *domain.Invitation) error
	// DeleteByEmailAndOrg removes any invitation for the pair and returns how many rows went away.
	DeleteByEmailAndOrg(ctx context.Context, email, orgID string) (int64, error)
	// ClaimByTokenHash deletes the invitation with the hash and returns it, or nil when no row matched.
	// Of two concurrent claimers in separate transactions only one gets the row.
	ClaimByTokenHash(ctx context.Context, tokenHash string) (*domain.Invitation, error)
	Delete(ctx context.Context, id string) error
}
