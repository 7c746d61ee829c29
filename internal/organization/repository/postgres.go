package repository

import (
	"context"
	"database/sql"
	"errors"

	"teamos/backend/internal/db"
	"teamos/backend/internal/organization/domain"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an organization repository that uses the given db (or tx) for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetOrganizationByID returns the organization for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error) {
	return scanOrg(r.db.QueryRowContext(ctx, `SELECT id, slug, name, created_at FROM organizations WHERE id = $1`, id))
}

// GetOrganizationBySlug returns the organization for slug, or nil if not found.
func (r *PostgresRepository) GetOrganizationBySlug(ctx context.Context, slug string) (*domain.Org, error) {
	return scanOrg(r.db.QueryRowContext(ctx, `SELECT id, slug, name, created_at FROM organizations WHERE slug = $1`, slug))
}

// CreateOrganization persists the organization. A taken slug returns db.ErrDuplicate.
func (r *PostgresRepository) CreateOrganization(ctx context.Context, o *domain.Org) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO organizations (id, slug, name, created_at) VALUES ($1, $2, $3, $4)`,
		o.ID, o.Slug, o.Name, o.CreatedAt)
	return db.MapError(err)
}

// UpdateOrganization writes name and slug. A taken slug returns db.ErrDuplicate.
func (r *PostgresRepository) UpdateOrganization(ctx context.Context, o *domain.Org) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE organizations SET slug = $2, name = $3 WHERE id = $1`,
		o.ID, o.Slug, o.Name)
	return db.MapError(err)
}

func scanOrg(row *sql.Row) (*domain.Org, error) {
	var o domain.Org
	if err := row.Scan(&o.ID, &o.Slug, &o.Name, &o.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}
