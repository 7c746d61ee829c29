// Package audit records organization events and serves them back as an activity feed.
// Recording is fire-and-forget: an EventSink never fails the operation that produced the event.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"teamos/backend/internal/audit/domain"
)

// Actions recorded by the services.
const (
	ActionOrganizationCreated = "organization_created"
	ActionOrganizationUpdated = "organization_updated"
	ActionMemberInvited       = "member_invited"
	ActionInvitationRevoked   = "invitation_revoked"
	ActionInvitationAccepted  = "invitation_accepted"
	ActionMemberRoleChanged   = "member_role_changed"
	ActionMemberRemoved       = "member_removed"
	ActionProjectCreated      = "project_created"
	ActionProjectDeleted      = "project_deleted"
	ActionTaskCreated         = "task_created"
	ActionTaskUpdated         = "task_updated"
)

// Event is one audit record as published by services and carried over Kafka.
type Event struct {
	ID        string         `json:"id"`
	OrgID     string         `json:"org_id"`
	ActorID   string         `json:"actor_id,omitempty"`
	Action    string         `json:"action"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IP        string         `json:"ip,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// EventSink receives audit events. Record must not block the caller for long and must not panic;
// implementations log their own failures.
type EventSink interface {
	Record(ctx context.Context, e Event)
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Record(context.Context, Event) {}

type ipKey struct{}

// WithClientIP stores the request's client IP for events recorded under ctx.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipKey{}, ip)
}

// ClientIP returns the IP stored by WithClientIP, or "unknown".
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ipKey{}).(string); ok && ip != "" {
		return ip
	}
	return "unknown"
}

// Stamp fills in ID, CreatedAt and IP when unset. Fan-out sinks stamp once so every
// destination sees the same ID.
func Stamp(ctx context.Context, e Event) Event {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.IP == "" {
		e.IP = ClientIP(ctx)
	}
	return e
}

// ToAuditLog converts the event to its storage row.
func (e Event) ToAuditLog() (*domain.AuditLog, error) {
	meta := "{}"
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return nil, err
		}
		meta = string(b)
	}
	return &domain.AuditLog{
		ID:        e.ID,
		OrgID:     e.OrgID,
		ActorID:   e.ActorID,
		Action:    e.Action,
		Metadata:  meta,
		IP:        e.IP,
		CreatedAt: e.CreatedAt,
	}, nil
}
