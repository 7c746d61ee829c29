// Package service implements projects and their tasks inside the actor's organization.
package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"teamos/backend/internal/audit"
	"teamos/backend/internal/platform/apperr"
	"teamos/backend/internal/platform/rbac"
	"teamos/backend/internal/project/domain"
	"teamos/backend/internal/storage"
	"teamos/backend/internal/tenant"
)

// NewTask is the input of CreateTask.
type NewTask struct {
	ProjectID    string
	Title        string
	Description  string
	Priority     domain.TaskPriority // empty means MEDIUM
	AssignedToID string
}

// Service manages projects and tasks. Resources of other organizations are reported as not found.
type Service struct {
	store storage.Store
	audit audit.EventSink
	now   func() time.Time
}

// New returns a Service. A nil sink discards audit events.
func New(store storage.Store, sink audit.EventSink) *Service {
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &Service{store: store, audit: sink, now: func() time.Time { return time.Now().UTC() }}
}

func between(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(s)
	return n >= lo && n <= hi
}

// CreateProject adds a project. Any member may create one.
func (s *Service) CreateProject(ctx context.Context, actor *tenant.Context, name, description string) (*domain.Project, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	name, description = strings.TrimSpace(name), strings.TrimSpace(description)
	if !between(name, 2, 100) {
		return nil, apperr.InvalidArgument("project name must be between 2 and 100 characters")
	}
	if utf8.RuneCountInString(description) > 500 {
		return nil, apperr.InvalidArgument("description must be less than 500 characters")
	}
	p := &domain.Project{
		ID:          uuid.New().String(),
		OrgID:       actor.OrgID(),
		Name:        name,
		Description: description,
		CreatedAt:   s.now(),
	}
	if err := s.store.Projects().CreateProject(ctx, p); err != nil {
		return nil, apperr.Internal(err)
	}
	s.audit.Record(ctx, audit.Event{
		OrgID:    p.OrgID,
		ActorID:  actor.PrincipalID,
		Action:   audit.ActionProjectCreated,
		Metadata: map[string]any{"projectId": p.ID, "name": p.Name},
	})
	return p, nil
}

// ListProjects returns the organization's projects, newest first.
func (s *Service) ListProjects(ctx context.Context, actor *tenant.Context) ([]*domain.Project, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	out, err := s.store.Projects().ListProjectsByOrg(ctx, actor.OrgID())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// DeleteProject removes a project and its tasks. Owners and admins only.
func (s *Service) DeleteProject(ctx context.Context, actor *tenant.Context, projectID string) error {
	if actor == nil {
		return apperr.ErrUnauthenticated
	}
	if err := rbac.RequireOrgAdmin(actor.Role); err != nil {
		return err
	}
	p, err := s.project(ctx, actor, projectID)
	if err != nil {
		return err
	}
	if err := s.store.Projects().DeleteProject(ctx, p.ID); err != nil {
		return apperr.Internal(err)
	}
	s.audit.Record(ctx, audit.Event{
		OrgID:    p.OrgID,
		ActorID:  actor.PrincipalID,
		Action:   audit.ActionProjectDeleted,
		Metadata: map[string]any{"projectId": p.ID, "name": p.Name},
	})
	return nil
}

func (s *Service) project(ctx context.Context, actor *tenant.Context, id string) (*domain.Project, error) {
	p, err := s.store.Projects().GetProject(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if p == nil || p.OrgID != actor.OrgID() {
		return nil, apperr.NotFound("project not found")
	}
	return p, nil
}

// CreateTask adds a TODO task to a project of the organization. The assignee, when set, must be
// a member of the organization.
func (s *Service) CreateTask(ctx context.Context, actor *tenant.Context, in NewTask) (*domain.Task, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	title, description := strings.TrimSpace(in.Title), strings.TrimSpace(in.Description)
	if !between(title, 2, 200) {
		return nil, apperr.InvalidArgument("task title must be between 2 and 200 characters")
	}
	if utf8.RuneCountInString(description) > 2000 {
		return nil, apperr.InvalidArgument("description must be less than 2000 characters")
	}
	priority := in.Priority
	if priority == "" {
		priority = domain.TaskPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperr.InvalidArgument("priority must be one of LOW, MEDIUM, HIGH, URGENT")
	}
	p, err := s.project(ctx, actor, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if in.AssignedToID != "" {
		m, err := s.store.Memberships().GetMembershipByUserAndOrg(ctx, in.AssignedToID, p.OrgID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if m == nil {
			return nil, apperr.InvalidArgument("assignee is not a member of this organization")
		}
	}
	now := s.now()
	task := &domain.Task{
		ID:           uuid.New().String(),
		OrgID:        p.OrgID,
		ProjectID:    p.ID,
		Title:        title,
		Description:  description,
		Status:       domain.TaskStatusTodo,
		Priority:     priority,
		CreatedByID:  actor.PrincipalID,
		AssignedToID: in.AssignedToID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Projects().CreateTask(ctx, task); err != nil {
		return nil, apperr.Internal(err)
	}
	s.audit.Record(ctx, audit.Event{
		OrgID:    task.OrgID,
		ActorID:  actor.PrincipalID,
		Action:   audit.ActionTaskCreated,
		Metadata: map[string]any{"taskId": task.ID, "title": task.Title, "projectId": p.ID},
	})
	return task, nil
}

// ListTasks returns the tasks of a project of the organization, newest first.
func (s *Service) ListTasks(ctx context.Context, actor *tenant.Context, projectID string) ([]*domain.Task, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	p, err := s.project(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}
	out, err := s.store.Projects().ListTasksByProject(ctx, p.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// UpdateTaskStatus moves a task of the organization to status. Any member may do so.
func (s *Service) UpdateTaskStatus(ctx context.Context, actor *tenant.Context, taskID string, status domain.TaskStatus) (*domain.Task, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	if !status.Valid() {
		return nil, apperr.InvalidArgument("status must be one of TODO, IN_PROGRESS, DONE")
	}
	task, err := s.store.Projects().GetTask(ctx, taskID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if task == nil || task.OrgID != actor.OrgID() {
		return nil, apperr.NotFound("task not found")
	}
	old := task.Status
	if old == status {
		return task, nil
	}
	if err := s.store.Projects().UpdateTaskStatus(ctx, task.ID, status); err != nil {
		return nil, apperr.Internal(err)
	}
	task.Status = status
	task.UpdatedAt = s.now()
	s.audit.Record(ctx, audit.Event{
		OrgID:    task.OrgID,
		ActorID:  actor.PrincipalID,
		Action:   audit.ActionTaskUpdated,
		Metadata: map[string]any{"taskId": task.ID, "status": string(status), "oldStatus": string(old)},
	})
	return task, nil
}
