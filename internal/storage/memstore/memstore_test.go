package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"teamos/backend/internal/db"
	invitationdomain "teamos/backend/internal/invitation/domain"
	membershipdomain "teamos/backend/internal/membership/domain"
	organizationdomain "teamos/backend/internal/organization/domain"
	sessiondomain "teamos/backend/internal/session/domain"
	"teamos/backend/internal/storage"
	userdomain "teamos/backend/internal/user/domain"
)

func TestInTx_RollbackRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Users().Create(ctx, &userdomain.User{ID: "u1", Email: "a@example.com"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx storage.Repos) error {
		if err := tx.Users().Create(ctx, &userdomain.User{ID: "u2", Email: "b@example.com"}); err != nil {
			return err
		}
		if err := tx.Organizations().CreateOrganization(ctx, &organizationdomain.Org{ID: "o1", Slug: "acme", Name: "Acme"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx err = %v, want boom", err)
	}
	c := s.Counts()
	if c["users"] != 1 || c["orgs"] != 0 {
		t.Errorf("counts after rollback = %v", c)
	}
}

func TestInTx_Commit(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.InTx(ctx, func(tx storage.Repos) error {
		return tx.Users().Create(ctx, &userdomain.User{ID: "u1", Email: "a@example.com"})
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if u, _ := s.Users().GetByID(ctx, "u1"); u == nil {
		t.Fatal("committed user not visible")
	}
}

func TestInTx_SharesLiveData(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.InTx(ctx, func(tx storage.Repos) error {
		if err := tx.Users().Create(ctx, &userdomain.User{ID: "u1", Email: "a@example.com"}); err != nil {
			return err
		}
		if u, _ := s.Users().GetByID(ctx, "u1"); u == nil {
			t.Error("non-transactional reader should see the uncommitted user")
		}
		// A write made outside the transaction is discarded by its rollback.
		if err := s.Users().Create(ctx, &userdomain.User{ID: "u2", Email: "b@example.com"}); err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("InTx should return fn's error")
	}
	if c := s.Counts(); c["users"] != 0 {
		t.Errorf("users after rollback = %d, want 0", c["users"])
	}
}

func TestInTx_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := New().InTx(ctx, func(storage.Repos) error { called = true; return nil })
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("InTx err = %v called = %v", err, called)
	}
}

func TestUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.Users().Create(ctx, &userdomain.User{ID: "u1", Email: "a@example.com"})
	_ = s.Organizations().CreateOrganization(ctx, &organizationdomain.Org{ID: "o1", Slug: "acme", Name: "Acme"})
	_ = s.Memberships().CreateMembership(ctx, &membershipdomain.Membership{ID: "m1", UserID: "u1", OrgID: "o1", Role: membershipdomain.RoleOwner})
	_ = s.Invitations().Create(ctx, &invitationdomain.Invitation{ID: "i1", Email: "b@example.com", OrgID: "o1", TokenHash: "h1"})

	tests := []struct {
		name string
		op   func() error
	}{
		{"user email", func() error {
			return s.Users().Create(ctx, &userdomain.User{ID: "u2", Email: "a@example.com"})
		}},
		{"org slug", func() error {
			return s.Organizations().CreateOrganization(ctx, &organizationdomain.Org{ID: "o2", Slug: "acme", Name: "Other"})
		}},
		{"membership pair", func() error {
			return s.Memberships().CreateMembership(ctx, &membershipdomain.Membership{ID: "m2", UserID: "u1", OrgID: "o1"})
		}},
		{"invitation email and org", func() error {
			return s.Invitations().Create(ctx, &invitationdomain.Invitation{ID: "i2", Email: "b@example.com", OrgID: "o1", TokenHash: "h2"})
		}},
		{"invitation token hash", func() error {
			return s.Invitations().Create(ctx, &invitationdomain.Invitation{ID: "i3", Email: "c@example.com", OrgID: "o1", TokenHash: "h1"})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.op(); !errors.Is(err, db.ErrDuplicate) {
				t.Errorf("err = %v, want db.ErrDuplicate", err)
			}
		})
	}
}

func TestClaimByTokenHash_SingleWinner(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.Invitations().Create(ctx, &invitationdomain.Invitation{ID: "i1", Email: "b@example.com", OrgID: "o1", TokenHash: "h1"})

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.InTx(ctx, func(tx storage.Repos) error {
				inv, err := tx.Invitations().ClaimByTokenHash(ctx, "h1")
				if err != nil {
					return err
				}
				if inv != nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
				return nil
			})
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("claims won = %d, want 1", wins)
	}
	if s.Counts()["invitations"] != 0 {
		t.Error("claimed invitation should be deleted")
	}
}

func TestOrdering(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"u1", "u2", "u3"} {
		_ = s.Users().Create(ctx, &userdomain.User{ID: id, Email: id + "@example.com"})
	}
	for _, id := range []string{"o1", "o2"} {
		_ = s.Organizations().CreateOrganization(ctx, &organizationdomain.Org{ID: id, Slug: id + "-slug", Name: id})
	}
	_ = s.Memberships().CreateMembership(ctx, &membershipdomain.Membership{ID: "m1", UserID: "u1", OrgID: "o1", Role: membershipdomain.RoleOwner})
	_ = s.Memberships().CreateMembership(ctx, &membershipdomain.Membership{ID: "m2", UserID: "u2", OrgID: "o1", Role: membershipdomain.RoleMember})
	_ = s.Memberships().CreateMembership(ctx, &membershipdomain.Membership{ID: "m3", UserID: "u1", OrgID: "o2", Role: membershipdomain.RoleAdmin})

	members, err := s.Memberships().ListMembersByOrg(ctx, "o1")
	if err != nil || len(members) != 2 || members[0].ID != "m1" || members[1].Email != "u2@example.com" {
		t.Fatalf("ListMembersByOrg = %+v, %v", members, err)
	}
	orgs, err := s.Memberships().ListOrganizationsByUser(ctx, "u1")
	if err != nil || len(orgs) != 2 || orgs[0].OrgID != "o2" || orgs[0].OrgSlug != "o2-slug" {
		t.Fatalf("ListOrganizationsByUser = %+v, %v", orgs, err)
	}
	owners, _ := s.Memberships().LockOwnersByOrg(ctx, "o1")
	if owners != 1 {
		t.Errorf("LockOwnersByOrg = %d, want 1", owners)
	}
}

func TestSetError(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("db down")
	s.SetError("Users.GetByEmail", boom)
	if _, err := s.Users().GetByEmail(ctx, "a@example.com"); !errors.Is(err, boom) {
		t.Fatalf("GetByEmail err = %v, want injected", err)
	}
	if _, err := s.Users().GetByID(ctx, "u1"); err != nil {
		t.Fatalf("other ops should be unaffected: %v", err)
	}
	s.SetError("users.GetByEmail", nil)
	if _, err := s.Users().GetByEmail(ctx, "a@example.com"); err != nil {
		t.Fatalf("cleared error still returned: %v", err)
	}
}

func TestSessionRevoke(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.Sessions().Create(ctx, &sessiondomain.Session{ID: "s1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)})
	if err := s.Sessions().Revoke(ctx, "s1"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	got, _ := s.Sessions().GetByID(ctx, "s1")
	if got == nil || got.RevokedAt == nil {
		t.Fatalf("session not revoked: %+v", got)
	}
	if got.Active(time.Now()) {
		t.Error("revoked session should be inactive")
	}
}
