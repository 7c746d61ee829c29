package repository

import (
	"context"
	"database/sql"
	"errors"

	"teamos/backend/internal/db"
	"teamos/backend/internal/membership/domain"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a membership repository that uses the given db (or tx) for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetMembershipByID returns the membership for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetMembershipByID(ctx context.Context, id string) (*domain.Membership, error) {
	return scanMembership(r.db.QueryRowContext(ctx,
		`SELECT id, user_id, org_id, role, created_at FROM memberships WHERE id = $1`, id))
}

// GetMembershipByUserAndOrg returns the membership for the given user and org, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	return scanMembership(r.db.QueryRowContext(ctx,
		`SELECT id, user_id, org_id, role, created_at FROM memberships WHERE user_id = $1 AND org_id = $2`,
		userID, orgID))
}

// ListMembersByOrg returns all members of the org with their user's email and name.
func (r *PostgresRepository) ListMembersByOrg(ctx context.Context, orgID string) ([]*domain.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.user_id, m.org_id, m.role, m.created_at, u.email, u.name
		   FROM memberships m JOIN users u ON u.id = m.user_id
		  WHERE m.org_id = $1
		  ORDER BY m.created_at ASC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Member
	for rows.Next() {
		var m domain.Member
		var role string
		if err := rows.Scan(&m.ID, &m.UserID, &m.OrgID, &role, &m.CreatedAt, &m.Email, &m.Name); err != nil {
			return nil, err
		}
		m.Role = domain.Role(role)
		out = append(out, &m)
	}
	return out, rows.Err()
}

// ListOrganizationsByUser returns the user's memberships with organization name and slug, newest first.
func (r *PostgresRepository) ListOrganizationsByUser(ctx context.Context, userID string) ([]*domain.OrgMembership, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.user_id, m.org_id, m.role, m.created_at, o.name, o.slug
		   FROM memberships m JOIN organizations o ON o.id = m.org_id
		  WHERE m.user_id = $1
		  ORDER BY m.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.OrgMembership
	for rows.Next() {
		var m domain.OrgMembership
		var role string
		if err := rows.Scan(&m.ID, &m.UserID, &m.OrgID, &role, &m.CreatedAt, &m.OrgName, &m.OrgSlug); err != nil {
			return nil, err
		}
		m.Role = domain.Role(role)
		out = append(out, &m)
	}
	return out, rows.Err()
}

// CreateMembership persists the membership to the database. The membership must have ID set.
// An existing (user, org) pair returns db.ErrDuplicate.
func (r *PostgresRepository) CreateMembership(ctx context.Context, m *domain.Membership) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO memberships (id, user_id, org_id, role, created_at) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.UserID, m.OrgID, string(m.Role), m.CreatedAt)
	return db.MapError(err)
}

// UpdateRole sets the role of the membership.
func (r *PostgresRepository) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	_, err := r.db.ExecContext(ctx, `UPDATE memberships SET role = $2 WHERE id = $1`, id, string(role))
	return err
}

// DeleteMembership removes the membership. Missing rows are not an error.
func (r *PostgresRepository) DeleteMembership(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM memberships WHERE id = $1`, id)
	return err
}

// LockOwnersByOrg takes row locks on the org's OWNER memberships and returns their count.
// Must run inside a transaction for the locks to matter.
func (r *PostgresRepository) LockOwnersByOrg(ctx context.Context, orgID string) (int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM memberships WHERE org_id = $1 AND role = 'OWNER' FOR UPDATE`, orgID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		n++
	}
	return n, rows.Err()
}

func scanMembership(row *sql.Row) (*domain.Membership, error) {
	var m domain.Membership
	var role string
	if err := row.Scan(&m.ID, &m.UserID, &m.OrgID, &role, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m.Role = domain.Role(role)
	return &m, nil
}
