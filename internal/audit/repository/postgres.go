package repository

import (
	"context"
	"database/sql"

	"teamos/backend/internal/audit/domain"
	"teamos/backend/internal/db"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an audit log repository that uses the given db (or tx) for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// ListByOrg returns up to limit entries for the org, newest first, with actor name and email.
func (r *PostgresRepository) ListByOrg(ctx context.Context, orgID string, limit int) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.org_id, a.actor_id, a.action, a.metadata, a.ip, a.created_at, u.name, u.email
		   FROM audit_logs a LEFT JOIN users u ON u.id = a.actor_id
		  WHERE a.org_id = $1
		  ORDER BY a.created_at DESC
		  LIMIT $2`, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		var a domain.AuditLog
		var actorID, name, email sql.NullString
		if err := rows.Scan(&a.ID, &a.OrgID, &actorID, &a.Action, &a.Metadata, &a.IP, &a.CreatedAt, &name, &email); err != nil {
			return nil, err
		}
		a.ActorID = actorID.String
		a.ActorName = name.String
		a.ActorEmail = email.String
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Create persists the audit log entry. Re-delivered entries with a known ID are ignored.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, org_id, actor_id, action, metadata, ip, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO NOTHING`,
		a.ID, a.OrgID, nullString(a.ActorID), a.Action, a.Metadata, a.IP, a.CreatedAt)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
