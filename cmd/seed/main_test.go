package main

import (
	"context"
	"testing"
	"time"

	membershipdomain "teamos/backend/internal/membership/domain"
	"teamos/backend/internal/security"
	"teamos/backend/internal/storage/memstore"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	hasher := security.NewHasher(4)

	applied, err := seed(ctx, store, hasher, time.Now().UTC())
	if err != nil || !applied {
		t.Fatalf("seed = %v, %v", applied, err)
	}
	want := map[string]int{"users": 2, "identities": 2, "orgs": 1, "memberships": 2, "projects": 1, "tasks": 1}
	counts := store.Counts()
	for k, v := range want {
		if counts[k] != v {
			t.Errorf("%s = %d, want %d", k, counts[k], v)
		}
	}
	members, err := store.Memberships().ListMembersByOrg(ctx, devOrgID)
	if err != nil {
		t.Fatalf("ListMembersByOrg: %v", err)
	}
	roles := map[string]membershipdomain.Role{}
	for _, m := range members {
		roles[m.Email] = m.Role
	}
	if roles[devUserEmail] != membershipdomain.RoleOwner || roles[memberEmail] != membershipdomain.RoleMember {
		t.Errorf("roles = %v", roles)
	}

	applied, err = seed(ctx, store, hasher, time.Now().UTC())
	if err != nil || applied {
		t.Errorf("second seed = %v, %v; want skipped", applied, err)
	}
}
