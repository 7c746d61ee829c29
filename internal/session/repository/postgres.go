package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"teamos/backend/internal/db"
	"teamos/backend/internal/session/domain"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a session repository that uses the given db (or tx) for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var s domain.Session
	var revokedAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, expires_at, revoked_at, created_at FROM sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.ExpiresAt, &revokedAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		s.RevokedAt = &t
	}
	return &s, nil
}

// Create persists the session to the database. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, revoked_at, created_at) VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.UserID, s.ExpiresAt, timeToNullTime(s.RevokedAt), s.CreatedAt)
	return err
}

// Revoke marks the session revoked. Revoking an already revoked session keeps the first timestamp.
func (r *PostgresRepository) Revoke(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`, id, time.Now().UTC())
	return err
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
