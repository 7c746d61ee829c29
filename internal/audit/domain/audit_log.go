package domain

import "time"

// AuditLog represents an audit event within an organization.
type AuditLog struct {
	ID        string
	OrgID     string
	ActorID   string // empty for system events
	Action    string
	Metadata  string // JSON object
	IP        string
	CreatedAt time.Time

	// Populated by list queries only.
	ActorName  string
	ActorEmail string
}
