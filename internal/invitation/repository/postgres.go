package repository

import (
	"context"
	"database/sql"
	"errors"

	"teamos/backend/internal/db"
	"teamos/backend/internal/invitation/domain"
	membershipdomain "teamos/backend/internal/membership/domain"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an invitation repository that uses the given db (or tx) for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

const invitationColumns = `id, email, org_id, role, token_hash, invited_by_id, expires_at, created_at`

// GetByID returns the invitation for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	return scanInvitation(r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = $1`, id))
}

// GetByTokenHash returns the invitation for the token hash, or nil if not found.
func (r *PostgresRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Invitation, error) {
	return scanInvitation(r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE token_hash = $1`, tokenHash))
}

// ListByOrg returns the org's invitations, newest first. Expired rows are included.
func (r *PostgresRepository) ListByOrg(ctx context.Context, orgID string) ([]*domain.Invitation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE org_id = $1 ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Invitation
	for rows.Next() {
		inv, err := scanInvitationRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// Create persists the invitation. A live invitation for the same (email, org) returns db.ErrDuplicate.
func (r *PostgresRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invitations (`+invitationColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		inv.ID, inv.Email, inv.OrgID, string(inv.Role), inv.TokenHash, inv.InvitedByID, inv.ExpiresAt, inv.CreatedAt)
	return db.MapError(err)
}

// DeleteByEmailAndOrg removes any invitation for (email, org).
func (r *PostgresRepository) DeleteByEmailAndOrg(ctx context.Context, email, orgID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invitations WHERE email = $1 AND org_id = $2`, email, orgID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClaimByTokenHash deletes the invitation with the hash and returns the deleted row.
// A concurrent claimer blocks on the row lock and then sees no row.
func (r *PostgresRepository) ClaimByTokenHash(ctx context.Context, tokenHash string) (*domain.Invitation, error) {
	return scanInvitation(r.db.QueryRowContext(ctx,
		`DELETE FROM invitations WHERE token_hash = $1 RETURNING `+invitationColumns, tokenHash))
}

// Delete removes the invitation. Missing rows are not an error.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM invitations WHERE id = $1`, id)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvitationRow(s scanner) (*domain.Invitation, error) {
	var inv domain.Invitation
	var role string
	if err := s.Scan(&inv.ID, &inv.Email, &inv.OrgID, &role, &inv.TokenHash, &inv.InvitedByID, &inv.ExpiresAt, &inv.CreatedAt); err != nil {
		return nil, err
	}
	inv.Role = membershipdomain.Role(role)
	return &inv, nil
}

func scanInvitation(row *sql.Row) (*domain.Invitation, error) {
	inv, err := scanInvitationRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return inv, nil
}
