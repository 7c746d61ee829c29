package repository

import (
	"context"
	"database/sql"
	"errors"

	"teamos/backend/internal/db"
	"teamos/backend/internal/identity/domain"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an identity repository that uses the given db (or tx) for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByUserAndProvider returns the user's identity for provider, or nil if not found.
func (r *PostgresRepository) GetByUserAndProvider(ctx context.Context, userID string, provider domain.IdentityProvider) (*domain.Identity, error) {
	var i domain.Identity
	var p string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, provider, provider_id, password_hash, created_at
		   FROM identities WHERE user_id = $1 AND provider = $2`,
		userID, string(provider),
	).Scan(&i.ID, &i.UserID, &p, &i.ProviderID, &i.PasswordHash, &i.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	i.Provider = domain.IdentityProvider(p)
	return &i, nil
}

// Create persists the identity. The identity must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (id, user_id, provider, provider_id, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		i.ID, i.UserID, string(i.Provider), i.ProviderID, i.PasswordHash, i.CreatedAt)
	return db.MapError(err)
}

// SetPasswordHash overwrites the password hash of the identity with id.
func (r *PostgresRepository) SetPasswordHash(ctx context.Context, id, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE identities SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	return db.MapError(err)
}
