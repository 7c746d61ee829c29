// Package handler serves projects and their tasks inside the current organization.
package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"teamos/backend/internal/platform/httpx"
	"teamos/backend/internal/project/domain"
	"teamos/backend/internal/project/service"
)

// Handler serves /api/projects and /api/tasks.
type Handler struct {
	projects *service.Service
}

// New returns a Handler.
func New(projects *service.Service) *Handler {
	return &Handler{projects: projects}
}

type projectResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

type taskResponse struct {
	ID           string              `json:"id"`
	ProjectID    string              `json:"projectId"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Status       domain.TaskStatus   `json:"status"`
	Priority     domain.TaskPriority `json:"priority"`
	CreatedByID  string              `json:"createdById"`
	AssignedToID string              `json:"assignedToId,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

func toProject(p *domain.Project) projectResponse {
	return projectResponse{ID: p.ID, Name: p.Name, Description: p.Description, CreatedAt: p.CreatedAt}
}

func toTask(t *domain.Task) taskResponse {
	return taskResponse{
		ID:           t.ID,
		ProjectID:    t.ProjectID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       t.Status,
		Priority:     t.Priority,
		CreatedByID:  t.CreatedByID,
		AssignedToID: t.AssignedToID,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type createTaskRequest struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Priority     domain.TaskPriority `json:"priority"`
	AssignedToID string              `json:"assignedToId"`
}

type statusRequest struct {
	Status domain.TaskStatus `json:"status"`
}

func (h *Handler) ListProjects(c *fiber.Ctx) error {
	ps, err := h.projects.ListProjects(c.UserContext(), httpx.Tenant(c))
	if err != nil {
		return err
	}
	out := make([]projectResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProject(p))
	}
	return httpx.OK(c, out)
}

func (h *Handler) CreateProject(c *fiber.Ctx) error {
	var req createProjectRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	p, err := h.projects.CreateProject(c.UserContext(), httpx.Tenant(c), req.Name, req.Description)
	if err != nil {
		return err
	}
	return httpx.Created(c, toProject(p))
}

func (h *Handler) DeleteProject(c *fiber.Ctx) error {
	if err := h.projects.DeleteProject(c.UserContext(), httpx.Tenant(c), c.Params("id")); err != nil {
		return err
	}
	return httpx.OK(c, nil)
}

func (h *Handler) ListTasks(c *fiber.Ctx) error {
	ts, err := h.projects.ListTasks(c.UserContext(), httpx.Tenant(c), c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]taskResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTask(t))
	}
	return httpx.OK(c, out)
}

func (h *Handler) CreateTask(c *fiber.Ctx) error {
	var req createTaskRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	t, err := h.projects.CreateTask(c.UserContext(), httpx.Tenant(c), service.NewTask{
		ProjectID:    c.Params("id"),
		Title:        req.Title,
		Description:  req.Description,
		Priority:     req.Priority,
		AssignedToID: req.AssignedToID,
	})
	if err != nil {
		return err
	}
	return httpx.Created(c, toTask(t))
}

// UpdateTaskStatus moves task :id to the requested status.
func (h *Handler) UpdateTaskStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	t, err := h.projects.UpdateTaskStatus(c.UserContext(), httpx.Tenant(c), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return httpx.OK(c, toTask(t))
}
