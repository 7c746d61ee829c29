package repository

import (
	"context"

	"teamos/backend/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	// ListByOrg returns the newest entries first, joined with actor name and email.
	ListByOrg(ctx context.Context, orgID string, limit int) ([]*domain.AuditLog, error)
	Create(ctx context.Context, a *domain.AuditLog) error
}
