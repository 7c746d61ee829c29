package repository

import (
	"context"

	"teamos/backend/internal/project/domain"
)

// Repository defines persistence for projects and their tasks.
type Repository interface {
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	ListProjectsByOrg(ctx context.Context, orgID string) ([]*domain.Project, error)
	CreateProject(ctx context.Context, p *domain.Project) error
	DeleteProject(ctx context.Context, id string) error

	GetTask(ctx context.Context, id string) (*domain.Task, error)
	ListTasksByProject(ctx context.Context, projectID string) ([]*domain.Task, error)
	CreateTask(ctx context.Context, t *domain.Task) error
	UpdateTaskStatus(ctx context.Context, id string, status domain.TaskStatus) error
}
