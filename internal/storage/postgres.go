package storage

import (
	"context"
	"database/sql"
	"fmt"

	auditrepo "teamos/backend/internal/audit/repository"
	"teamos/backend/internal/db"
	identityrepo "teamos/backend/internal/identity/repository"
	invitationrepo "teamos/backend/internal/invitation/repository"
	membershiprepo "teamos/backend/internal/membership/repository"
	organizationrepo "teamos/backend/internal/organization/repository"
	projectrepo "teamos/backend/internal/project/repository"
	sessionrepo "teamos/backend/internal/session/repository"
	userrepo "teamos/backend/internal/user/repository"
)

// Postgres implements Store on database/sql with the pgx driver.
type Postgres struct {
	conn *sql.DB
	pgRepos
}

// NewPostgres returns a Store backed by conn.
func NewPostgres(conn *sql.DB) *Postgres {
	return &Postgres{conn: conn, pgRepos: pgRepos{q: conn}}
}

// Ping reports database reachability for health checks.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.conn.PingContext(ctx)
}

// InTx runs fn inside a READ COMMITTED transaction. Row locks taken by repositories
// (invitation claim, owner count) serialize competing writers.
func (p *Postgres) InTx(ctx context.Context, fn func(tx Repos) error) error {
	tx, err := p.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(pgRepos{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type pgRepos struct {
	q db.DBTX
}

func (r pgRepos) Users() userrepo.Repository { return userrepo.NewPostgresRepository(r.q) }
func (r pgRepos) Identities() identityrepo.Repository {
	return identityrepo.NewPostgresRepository(r.q)
}
func (r pgRepos) Organizations() organizationrepo.Repository {
	return organizationrepo.NewPostgresRepository(r.q)
}
func (r pgRepos) Memberships() membershiprepo.Repository {
	return membershiprepo.NewPostgresRepository(r.q)
}
func (r pgRepos) Invitations() invitationrepo.Repository {
	return invitationrepo.NewPostgresRepository(r.q)
}
func (r pgRepos) Sessions() sessionrepo.Repository { return sessionrepo.NewPostgresRepository(r.q) }
func (r pgRepos) AuditLogs() auditrepo.Repository  { return auditrepo.NewPostgresRepository(r.q) }
func (r pgRepos) Projects() projectrepo.Repository { return projectrepo.NewPostgresRepository(r.q) }
