package audit

import (
	"context"
	"encoding/json"
	"time"

	auditrepo "teamos/backend/internal/audit/repository"
	"teamos/backend/internal/platform/apperr"
	"teamos/backend/internal/platform/rbac"
	"teamos/backend/internal/tenant"
)

// Feed limits.
const (
	DefaultFeedLimit = 10
	MaxFeedLimit     = 50
)

// FeedEntry is one line of the activity feed.
type FeedEntry struct {
	ID          string         `json:"id"`
	Action      string         `json:"action"`
	Description string         `json:"description"`
	Actor       string         `json:"actor"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Feed reads the organization's audit log for the dashboard.
type Feed struct {
	repo  auditrepo.Repository
	authz rbac.Checker
}

// NewFeed returns a Feed over repo gated by authz.
func NewFeed(repo auditrepo.Repository, authz rbac.Checker) *Feed {
	return &Feed{repo: repo, authz: authz}
}

// List returns the latest entries of the actor's organization. limit <= 0 means DefaultFeedLimit;
// larger values are capped at MaxFeedLimit.
func (f *Feed) List(ctx context.Context, actor *tenant.Context, limit int) ([]FeedEntry, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	if err := rbac.Require(ctx, f.authz, actor.Role, rbac.PermViewAuditLogs); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = DefaultFeedLimit
	case limit > MaxFeedLimit:
		limit = MaxFeedLimit
	}
	logs, err := f.repo.ListByOrg(ctx, actor.OrgID(), limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	out := make([]FeedEntry, 0, len(logs))
	for _, l := range logs {
		entry := FeedEntry{
			ID:          l.ID,
			Action:      l.Action,
			Description: Describe(l.Action),
			Actor:       actorLabel(l.ActorName, l.ActorEmail),
			Timestamp:   l.CreatedAt,
		}
		if l.Metadata != "" && l.Metadata != "{}" {
			var meta map[string]any
			if json.Unmarshal([]byte(l.Metadata), &meta) == nil {
				entry.Metadata = meta
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

func actorLabel(name, email string) string {
	switch {
	case name != "":
		return name
	case email != "":
		return email
	default:
		return "System"
	}
}
