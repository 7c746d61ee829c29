package repository

import (
	"context"
	"database/sql"
	"errors"

	"teamos/backend/internal/db"
	"teamos/backend/internal/project/domain"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a project repository that uses the given db (or tx) for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetProject returns the project for id, or nil if not found.
func (r *PostgresRepository) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	var p domain.Project
	err := r.db.QueryRowContext(ctx,
		`SELECT id, org_id, name, description, created_at FROM projects WHERE id = $1`, id,
	).Scan(&p.ID, &p.OrgID, &p.Name, &p.Description, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// ListProjectsByOrg returns the org's projects, newest first.
func (r *PostgresRepository) ListProjectsByOrg(ctx context.Context, orgID string) ([]*domain.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, org_id, name, description, created_at FROM projects WHERE org_id = $1 ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.OrgID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// CreateProject persists the project. The project must have ID set.
func (r *PostgresRepository) CreateProject(ctx context.Context, p *domain.Project) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (id, org_id, name, description, created_at) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.OrgID, p.Name, p.Description, p.CreatedAt)
	return err
}

// DeleteProject removes the project; its tasks cascade.
func (r *PostgresRepository) DeleteProject(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	return err
}

const taskColumns = `id, org_id, project_id, title, description, status, priority, created_by_id, assigned_to_id, created_at, updated_at`

// GetTask returns the task for id, or nil if not found.
func (r *PostgresRepository) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// ListTasksByProject returns the project's tasks, newest first.
func (r *PostgresRepository) ListTasksByProject(ctx context.Context, projectID string) ([]*domain.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE project_id = $1 ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTask persists the task. The task must have ID set.
func (r *PostgresRepository) CreateTask(ctx context.Context, t *domain.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.OrgID, t.ProjectID, t.Title, t.Description, string(t.Status), string(t.Priority),
		t.CreatedByID, sql.NullString{String: t.AssignedToID, Valid: t.AssignedToID != ""}, t.CreatedAt, t.UpdatedAt)
	return err
}

// UpdateTaskStatus sets the status and bumps updated_at.
func (r *PostgresRepository) UpdateTaskStatus(ctx context.Context, id string, status domain.TaskStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE tasks SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*domain.Task, error) {
	var t domain.Task
	var status, priority string
	var assignee sql.NullString
	if err := s.Scan(&t.ID, &t.OrgID, &t.ProjectID, &t.Title, &t.Description, &status, &priority,
		&t.CreatedByID, &assignee, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = domain.TaskStatus(status)
	t.Priority = domain.TaskPriority(priority)
	t.AssignedToID = assignee.String
	return &t, nil
}
