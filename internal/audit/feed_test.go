package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"teamos/backend/internal/audit/domain"
	membershipdomain "teamos/backend/internal/membership/domain"
	organizationdomain "teamos/backend/internal/organization/domain"
	"teamos/backend/internal/platform/apperr"
	"teamos/backend/internal/policy/engine"
	"teamos/backend/internal/storage/memstore"
	"teamos/backend/internal/tenant"
	userdomain "teamos/backend/internal/user/domain"
)

func actorWithRole(role membershipdomain.Role) *tenant.Context {
	return &tenant.Context{
		PrincipalID:  "alice",
		Organization: &organizationdomain.Org{ID: "org-1", Slug: "acme", Name: "Acme"},
		Membership:   &membershipdomain.Membership{ID: "m1", UserID: "alice", OrgID: "org-1", Role: role},
		Role:         role,
	}
}

func newFeed(t *testing.T) (*Feed, *memstore.Store) {
	t.Helper()
	authz, err := engine.NewOPAEvaluator(context.Background())
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	s := memstore.New()
	now := time.Now().UTC()
	if err := s.Users().Create(context.Background(), &userdomain.User{ID: "alice", Email: "alice@example.com", Name: "Alice", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := s.Users().Create(context.Background(), &userdomain.User{ID: "bob", Email: "bob@example.com", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return NewFeed(s.AuditLogs(), authz), s
}

func TestFeed_List(t *testing.T) {
	feed, s := newFeed(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []*domain.AuditLog{
		{ID: "a1", OrgID: "org-1", ActorID: "alice", Action: ActionOrganizationCreated, Metadata: "{}", CreatedAt: base},
		{ID: "a2", OrgID: "org-1", ActorID: "bob", Action: ActionMemberInvited, Metadata: `{"email":"carol@example.com"}`, CreatedAt: base.Add(time.Minute)},
		{ID: "a3", OrgID: "org-1", Action: "custom_event", Metadata: "{}", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "x1", OrgID: "org-2", ActorID: "alice", Action: ActionProjectCreated, Metadata: "{}", CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, r := range rows {
		if err := s.AuditLogs().Create(context.Background(), r); err != nil {
			t.Fatalf("create audit log: %v", err)
		}
	}

	entries, err := feed.List(context.Background(), actorWithRole(membershipdomain.RoleAdmin), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3 (other orgs excluded)", len(entries))
	}
	if entries[0].ID != "a3" || entries[0].Actor != "System" || entries[0].Description != "custom_event" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].Actor != "bob@example.com" || entries[1].Description != "Invited member" {
		t.Errorf("entries[1] = %+v", entries[1])
	}
	if entries[1].Metadata["email"] != "carol@example.com" {
		t.Errorf("entries[1].Metadata = %v", entries[1].Metadata)
	}
	if entries[2].Actor != "Alice" {
		t.Errorf("entries[2].Actor = %q, want Alice", entries[2].Actor)
	}
}

func TestFeed_Limits(t *testing.T) {
	feed, s := newFeed(t)
	base := time.Now().UTC()
	for i := 0; i < 60; i++ {
		r := &domain.AuditLog{ID: "e" + string(rune('A'+i)), OrgID: "org-1", Action: ActionTaskUpdated, Metadata: "{}", CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := s.AuditLogs().Create(context.Background(), r); err != nil {
			t.Fatalf("create audit log: %v", err)
		}
	}
	tests := []struct {
		limit, want int
	}{
		{0, DefaultFeedLimit},
		{-3, DefaultFeedLimit},
		{5, 5},
		{500, MaxFeedLimit},
	}
	for _, tt := range tests {
		entries, err := feed.List(context.Background(), actorWithRole(membershipdomain.RoleOwner), tt.limit)
		if err != nil {
			t.Fatalf("List(%d): %v", tt.limit, err)
		}
		if len(entries) != tt.want {
			t.Errorf("List(%d) returned %d entries, want %d", tt.limit, len(entries), tt.want)
		}
	}
}

func TestFeed_RequiresViewAuditLogs(t *testing.T) {
	feed, _ := newFeed(t)
	if _, err := feed.List(context.Background(), actorWithRole(membershipdomain.RoleMember), 10); !errors.Is(err, apperr.ErrInsufficientRole) {
		t.Errorf("member: error = %v, want InsufficientRole", err)
	}
	if _, err := feed.List(context.Background(), nil, 10); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("nil actor: error = %v, want Unauthenticated", err)
	}
}

func TestFeed_RepositoryError(t *testing.T) {
	feed, s := newFeed(t)
	s.SetError("auditLogs.ListByOrg", errors.New("timeout"))
	if _, err := feed.List(context.Background(), actorWithRole(membershipdomain.RoleOwner), 10); apperr.CodeOf(err) != apperr.CodeInternal {
		t.Errorf("code = %s, want INTERNAL", apperr.CodeOf(err))
	}
}
