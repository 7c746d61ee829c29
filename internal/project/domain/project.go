package domain

import "time"

// Project groups tasks inside an organization.
type Project struct {
	ID          string
	OrgID       string
	Name        string
	Description string
	CreatedAt   time.Time
}

// Task is a unit of work inside a project.
type Task struct {
	ID           string
	OrgID        string
	ProjectID    string
	Title        string
	Description  string
	Status       TaskStatus
	Priority     TaskPriority
	CreatedByID  string
	AssignedToID string // empty when unassigned
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
	TaskPriorityUrgent TaskPriority = "URGENT"
)

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}
