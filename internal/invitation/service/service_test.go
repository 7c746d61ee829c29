package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"teamos/backend/internal/audit"
	"teamos/backend/internal/db"
	"teamos/backend/internal/email"
	identitydomain "teamos/backend/internal/identity/domain"
	identityservice "teamos/backend/internal/identity/service"
	invitationdomain "teamos/backend/internal/invitation/domain"
	membershipdomain "teamos/backend/internal/membership/domain"
	organizationdomain "teamos/backend/internal/organization/domain"
	"teamos/backend/internal/platform/apperr"
	"teamos/backend/internal/security"
	"teamos/backend/internal/storage/memstore"
	"teamos/backend/internal/tenant"
	userdomain "teamos/backend/internal/user/domain"
)

type fakeAuth struct {
	mu    sync.Mutex
	users []string
}

func (f *fakeAuth) EstablishSession(_ context.Context, userID string) (*identityservice.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	return &identityservice.Session{ID: fmt.Sprintf("sess-%d", len(f.users)), UserID: userID, Token: "token"}, nil
}

type sentInvite struct {
	to   string
	data email.InvitationData
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentInvite
}

func (f *fakeMailer) SendInvitation(_ context.Context, to string, data email.InvitationData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentInvite{to, data})
}

type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingSink) Record(_ context.Context, e audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Action
	}
	return out
}

type countingMetrics struct {
	mu               sync.Mutex
	issued, redeemed int
	rejected         map[string]int
}

func (m *countingMetrics) Issued(context.Context, string)   { m.mu.Lock(); m.issued++; m.mu.Unlock() }
func (m *countingMetrics) Redeemed(context.Context, string) { m.mu.Lock(); m.redeemed++; m.mu.Unlock() }
func (m *countingMetrics) Rejected(_ context.Context, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rejected == nil {
		m.rejected = map[string]int{}
	}
	m.rejected[reason]++
}

type fixture struct {
	svc     *Service
	store   *memstore.Store
	auth    *fakeAuth
	mailer  *fakeMailer
	sink    *recordingSink
	metrics *countingMetrics
	org     *organizationdomain.Org
	owner   *tenant.Context
	admin   *tenant.Context
	member  *tenant.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	org := &organizationdomain.Org{ID: "org-1", Slug: "acme", Name: "Acme", CreatedAt: time.Now()}
	if err := store.Organizations().CreateOrganization(ctx, org); err != nil {
		t.Fatalf("create org: %v", err)
	}
	mk := func(id string, role membershipdomain.Role) *tenant.Context {
		u := &userdomain.User{ID: id, Email: id + "@example.com"}
		m := &membershipdomain.Membership{ID: "m-" + id, UserID: id, OrgID: org.ID, Role: role}
		if err := store.Users().Create(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
		if err := store.Memberships().CreateMembership(ctx, m); err != nil {
			t.Fatalf("create membership: %v", err)
		}
		return &tenant.Context{PrincipalID: id, Organization: org, Membership: m, Role: role}
	}
	f := &fixture{
		store:   store,
		auth:    &fakeAuth{},
		mailer:  &fakeMailer{},
		sink:    &recordingSink{},
		metrics: &countingMetrics{},
		org:     org,
	}
	f.owner = mk("owner", membershipdomain.RoleOwner)
	f.admin = mk("admin", membershipdomain.RoleAdmin)
	f.member = mk("member", membershipdomain.RoleMember)
	f.svc = New(Config{
		Store:     store,
		Hasher:    security.NewHasher(4),
		Auth:      f.auth,
		Mailer:    f.mailer,
		Audit:     f.sink,
		Metrics:   f.metrics,
		AppOrigin: "https://app.example.com/",
	})
	return f
}

func TestInvite_AdminScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.svc.Invite(ctx, f.admin, "BOB@Example.com", membershipdomain.RoleOwner); !errors.Is(err, apperr.ErrInsufficientRole) {
		t.Fatalf("ADMIN inviting OWNER err = %v, want INSUFFICIENT_ROLE", err)
	}
	if f.store.Counts()["invitations"] != 0 {
		t.Fatal("rejected invite must not persist")
	}

	issued, err := f.svc.Invite(ctx, f.admin, "BOB@Example.com", membershipdomain.RoleMember)
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	inv := issued.Invitation
	if inv.Email != "bob@example.com" || inv.Role != membershipdomain.RoleMember || inv.InvitedByID != "admin" {
		t.Errorf("invitation = %+v", inv)
	}
	if len(issued.Token) != 64 {
		t.Errorf("raw token length = %d, want 64 hex chars", len(issued.Token))
	}
	if inv.TokenHash != security.HashInviteToken(issued.Token) || inv.TokenHash == issued.Token {
		t.Error("only the SHA-256 hash of the token may be stored")
	}
	if d := inv.ExpiresAt.Sub(inv.CreatedAt); d != 48*time.Hour {
		t.Errorf("expiry window = %v, want 48h", d)
	}
	wantURL := "https://app.example.com/accept-invite?token=" + issued.Token
	if issued.AcceptURL != wantURL {
		t.Errorf("AcceptURL = %q, want %q", issued.AcceptURL, wantURL)
	}
	if len(f.mailer.sent) != 1 || f.mailer.sent[0].to != "bob@example.com" || f.mailer.sent[0].data.AcceptURL != wantURL {
		t.Errorf("mail = %+v", f.mailer.sent)
	}
	if got := f.sink.actions(); len(got) != 1 || got[0] != audit.ActionMemberInvited {
		t.Errorf("audit = %v", got)
	}
	if f.metrics.issued != 1 {
		t.Errorf("issued metric = %d", f.metrics.issued)
	}
}

func TestInvite_Authorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tests := []struct {
		name  string
		actor *tenant.Context
		role  membershipdomain.Role
		want  error
	}{
		{"nil actor", nil, membershipdomain.RoleMember, apperr.ErrUnauthenticated},
		{"member cannot invite", f.member, membershipdomain.RoleMember, apperr.ErrInsufficientRole},
		{"admin cannot invite owner", f.admin, membershipdomain.RoleOwner, apperr.ErrInsufficientRole},
		{"owner invites owner", f.owner, membershipdomain.RoleOwner, nil},
		{"admin invites admin", f.admin, membershipdomain.RoleAdmin, nil},
		{"unknown role", f.owner, membershipdomain.Role("owner"), apperr.ErrInvalidArgument},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Invite(ctx, tt.actor, fmt.Sprintf("new%d@example.com", i), tt.role)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Invite: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestInvite_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.svc.Invite(ctx, f.owner, "not-an-email", membershipdomain.RoleMember); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("bad email err = %v", err)
	}
	if _, err := f.svc.Invite(ctx, f.owner, " Member@example.com", membershipdomain.RoleMember); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("existing member err = %v, want CONFLICT", err)
	}
}

func TestInvite_EmailFailureDoesNotFailCall(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	bg := newFailingDispatcher(t)
	f.svc.mailer = bg
	if _, err := f.svc.Invite(ctx, f.owner, "bob@example.com", membershipdomain.RoleMember); err != nil {
		t.Fatalf("Invite should succeed when email delivery fails: %v", err)
	}
}

func TestInvite_SupersedesPrevious(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first, err := f.svc.Invite(ctx, f.owner, "bob@example.com", membershipdomain.RoleMember)
	if err != nil {
		t.Fatalf("first Invite: %v", err)
	}
	second, err := f.svc.Invite(ctx, f.owner, "BOB@example.com ", membershipdomain.RoleAdmin)
	if err != nil {
		t.Fatalf("second Invite: %v", err)
	}
	if f.store.Counts()["invitations"] != 1 {
		t.Fatalf("invitations = %d, want 1", f.store.Counts()["invitations"])
	}
	if _, err := f.svc.Accept(ctx, first.Token, "Bob", "password123"); !errors.Is(err, apperr.ErrInvalidOrExpiredToken) {
		t.Fatalf("old token err = %v, want INVALID_OR_EXPIRED_TOKEN", err)
	}
	acc, err := f.svc.Accept(ctx, second.Token, "Bob", "password123")
	if err != nil {
		t.Fatalf("new token Accept: %v", err)
	}
	if acc.Role != membershipdomain.RoleAdmin {
		t.Errorf("role = %v, want ADMIN from the newer invitation", acc.Role)
	}
}

func TestInvite_ConcurrentDuplicateRetries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	calls := 0
	f.withStore(&hookedStore{Store: f.store, beforeCreate: func() error {
		calls++
		if calls == 1 {
			return fmt.Errorf("insert invitation: %w", db.ErrDuplicate)
		}
		return nil
	}})

	issued, err := f.svc.Invite(ctx, f.owner, "bob@example.com", membershipdomain.RoleMember)
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if calls != 2 || f.store.Counts()["invitations"] != 1 {
		t.Fatalf("calls = %d, invitations = %d", calls, f.store.Counts()["invitations"])
	}
	if _, err := f.svc.Lookup(ctx, issued.Token); err != nil {
		t.Errorf("retried invitation not redeemable: %v", err)
	}

	f.store.SetError("invitations.Create", db.ErrDuplicate)
	if _, err := f.svc.Invite(ctx, f.owner, "carol@example.com", membershipdomain.RoleMember); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("persistent duplicate err = %v, want CONFLICT", err)
	}
}

func TestInvite_RepositoryFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.svc.Invite(ctx, f.owner, "bob@example.com", membershipdomain.RoleMember); err != nil {
		t.Fatalf("Invite: %v", err)
	}
	f.store.SetError("invitations.Create", errors.New("db down"))
	if _, err := f.svc.Invite(ctx, f.owner, "bob@example.com", membershipdomain.RoleAdmin); apperr.CodeOf(err) != apperr.CodeInternal {
		t.Fatalf("err = %v, want INTERNAL", err)
	}
	if f.store.Counts()["invitations"] != 1 {
		t.Error("failed re-invite must keep the previous invitation")
	}
}

func TestAccept_NewUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued, _ := f.svc.Invite(ctx, f.owner, "bob@example.com", membershipdomain.RoleMember)

	acc, err := f.svc.Accept(ctx, issued.Token, "Bob", "password123")
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if acc.OrganizationID != f.org.ID || acc.Session == nil {
		t.Fatalf("Accept = %+v", acc)
	}
	u, _ := f.store.Users().GetByEmail(ctx, "bob@example.com")
	if u == nil || u.Name != "Bob" || acc.Session.UserID != u.ID {
		t.Fatalf("user = %+v", u)
	}
	ident, _ := f.store.Identities().GetByUserAndProvider(ctx, u.ID, identitydomain.IdentityProviderLocal)
	if ident == nil || security.NewHasher(4).Compare(ident.PasswordHash, []byte("password123")) != nil {
		t.Error("credential not created from the supplied password")
	}
	m, _ := f.store.Memberships().GetMembershipByUserAndOrg(ctx, u.ID, f.org.ID)
	if m == nil || m.Role != membershipdomain.RoleMember {
		t.Errorf("membership = %+v", m)
	}
	if f.store.Counts()["invitations"] != 0 {
		t.Error("redeemed invitation should be deleted")
	}
	actions := f.sink.actions()
	if actions[len(actions)-1] != audit.ActionInvitationAccepted || f.metrics.redeemed != 1 {
		t.Errorf("audit = %v redeemed = %d", actions, f.metrics.redeemed)
	}
}

func TestAccept_ExistingUserKeepsCredential(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	hash, _ := security.NewHasher(4).Hash([]byte("original-pass"))
	_ = f.store.Users().Create(ctx, &userdomain.User{ID: "carol", Email: "carol@example.com"})
	_ = f.store.Identities().Create(ctx, &identitydomain.Identity{ID: "i-carol", UserID: "carol", Provider: identitydomain.IdentityProviderLocal, PasswordHash: hash})
	issued, _ := f.svc.Invite(ctx, f.owner, "carol@example.com", membershipdomain.RoleAdmin)

	preview, err := f.svc.Lookup(ctx, issued.Token)
	if err != nil || !preview.HasAccount || preview.OrganizationName != "Acme" {
		t.Fatalf("Lookup = %+v, %v", preview, err)
	}
	// Password is ignored for users who already have one, even when it is invalid.
	acc, err := f.svc.Accept(ctx, issued.Token, "", "x")
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if acc.Session.UserID != "carol" {
		t.Errorf("session user = %q", acc.Session.UserID)
	}
	ident, _ := f.store.Identities().GetByUserAndProvider(ctx, "carol", identitydomain.IdentityProviderLocal)
	if ident.PasswordHash != hash {
		t.Error("existing credential must not change")
	}
	if f.store.Counts()["identities"] != 1 {
		t.Error("no second identity may be created")
	}
}

func TestAccept_InvalidPasswordKeepsInvitation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued, _ := f.svc.Invite(ctx, f.owner, "bob@example.com", membershipdomain.RoleMember)
	if _, err := f.svc.Accept(ctx, issued.Token, "Bob", "short"); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("err = %v, want INVALID_ARGUMENT", err)
	}
	if _, err := f.svc.Accept(ctx, issued.Token, "Bob", strings.Repeat("p", 101)); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("long password err = %v, want INVALID_ARGUMENT", err)
	}
	if f.store.Counts()["invitations"] != 1 {
		t.Error("a rejected password must not consume the invitation")
	}
}

func TestAccept_Twice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued, _ := f.svc.Invite(ctx, f.owner, "bob@example.com", membershipdomain.RoleMember)
	if _, err := f.svc.Accept(ctx, issued.Token, "Bob", "password123"); err != nil {
		t.Fatalf("first Accept: %v", err)
	}
	before := f.store.Counts()["memberships"]
	if _, err := f.svc.Accept(ctx, issued.Token, "Bob", "password123"); !errors.Is(err, apperr.ErrInvalidOrExpiredToken) {
		t.Fatalf("second Accept err = %v, want INVALID_OR_EXPIRED_TOKEN", err)
	}
	if f.store.Counts()["memberships"] != before {
		t.Error("second redemption must not create a membership")
	}
	if f.metrics.rejected[RejectNotFound] != 1 {
		t.Errorf("rejected = %v", f.metrics.rejected)
	}
}

func TestAccept_ConcurrentRedeem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued, _ := f.svc.Invite(ctx, f.owner, "bob@example.com", membershipdomain.RoleMember)
	before := f.store.Counts()["memberships"]

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Accept(ctx, issued.Token, "Bob", "password123")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	ok := 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, apperr.ErrInvalidOrExpiredToken):
			t.Errorf("unexpected err: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("successful redemptions = %d, want 1", ok)
	}
	if got := f.store.Counts()["memberships"]; got != before+1 {
		t.Errorf("memberships = %d, want %d", got, before+1)
	}
}

func TestAccept_Expired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued, _ := f.svc.Invite(ctx, f.owner, "bob@example.com", membershipdomain.RoleMember)
	f.svc.now = func() time.Time { return time.Now().UTC().Add(49 * time.Hour) }

	if _, err := f.svc.Lookup(ctx, issued.Token); !errors.Is(err, apperr.ErrInvalidOrExpiredToken) {
		t.Errorf("Lookup err = %v", err)
	}
	if _, err := f.svc.Accept(ctx, issued.Token, "Bob", "password123"); !errors.Is(err, apperr.ErrInvalidOrExpiredToken) {
		t.Fatalf("Accept err = %v, want INVALID_OR_EXPIRED_TOKEN", err)
	}
	c := f.store.Counts()
	if c["invitations"] != 1 || c["users"] != 3 {
		t.Errorf("expired redemption must roll back: %v", c)
	}
	if f.metrics.rejected[RejectExpired] != 1 {
		t.Errorf("rejected = %v", f.metrics.rejected)
	}
}

func TestAccept_ExpiredIgnoresInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued, _ := f.svc.Invite(ctx, f.owner, "bob@example.com", membershipdomain.RoleMember)
	f.svc.now = func() time.Time { return time.Now().UTC().Add(49 * time.Hour) }

	for _, password := range []string{"", "short", strings.Repeat("p", 101)} {
		if _, err := f.svc.Accept(ctx, issued.Token, "Bob", password); !errors.Is(err, apperr.ErrInvalidOrExpiredToken) {
			t.Errorf("Accept(password %q) err = %v, want INVALID_OR_EXPIRED_TOKEN", password, err)
		}
	}
	if f.metrics.rejected[RejectExpired] != 3 {
		t.Errorf("rejected = %v", f.metrics.rejected)
	}
	if f.store.Counts()["invitations"] != 1 {
		t.Error("expired invitation must stay in place")
	}
}

func TestAccept_ClaimedHashMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued, _ := f.svc.Invite(ctx, f.owner, "bob@example.com", membershipdomain.RoleMember)
	f.withStore(&hookedStore{
		Store:      f.store,
		afterClaim: func(inv *invitationdomain.Invitation) { inv.TokenHash = security.HashInviteToken("someone-else") },
	})
	before := f.store.Counts()

	if _, err := f.svc.Accept(ctx, issued.Token, "Bob", "password123"); !errors.Is(err, apperr.ErrInvalidOrExpiredToken) {
		t.Fatalf("err = %v, want INVALID_OR_EXPIRED_TOKEN", err)
	}
	after := f.store.Counts()
	if after["memberships"] != before["memberships"] || after["invitations"] != 1 {
		t.Errorf("mismatched claim must roll back: before %v after %v", before, after)
	}
}

func TestAccept_IdentityWithoutPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	bob := &userdomain.User{ID: "bob", Email: "bob@example.com", Name: "Bob"}
	if err := f.store.Users().Create(ctx, bob); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := f.store.Identities().Create(ctx, &identitydomain.Identity{
		ID: "ident-bob", UserID: bob.ID, Provider: identitydomain.IdentityProviderLocal, ProviderID: bob.Email,
	}); err != nil {
		t.Fatalf("create identity: %v", err)
	}
	issued, _ := f.svc.Invite(ctx, f.owner, "bob@example.com", membershipdomain.RoleMember)

	if p, err := f.svc.Lookup(ctx, issued.Token); err != nil || p.HasAccount {
		t.Fatalf("Lookup = %+v, %v; want HasAccount false", p, err)
	}
	if _, err := f.svc.Accept(ctx, issued.Token, "", "password123"); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	ident, _ := f.store.Identities().GetByUserAndProvider(ctx, bob.ID, identitydomain.IdentityProviderLocal)
	if ident == nil || ident.ID != "ident-bob" || security.NewHasher(4).Compare(ident.PasswordHash, []byte("password123")) != nil {
		t.Fatalf("identity = %+v, want the existing row with the new password", ident)
	}
	if f.store.Counts()["identities"] != 1 {
		t.Error("no second identity may be created")
	}
}

func TestAccept_UnknownToken(t *testing.T) {
	f := newFixture(t)
	for _, tok := range []string{"", "deadbeef"} {
		if _, err := f.svc.Accept(context.Background(), tok, "", "password123"); !errors.Is(err, apperr.ErrInvalidOrExpiredToken) {
			t.Errorf("Accept(%q) err = %v", tok, err)
		}
		if _, err := f.svc.Lookup(context.Background(), tok); !errors.Is(err, apperr.ErrInvalidOrExpiredToken) {
			t.Errorf("Lookup(%q) err = %v", tok, err)
		}
	}
}

func TestListPendingAndRevoke(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ownerInv, _ := f.svc.Invite(ctx, f.owner, "boss@example.com", membershipdomain.RoleOwner)
	memberInv, _ := f.svc.Invite(ctx, f.admin, "bob@example.com", membershipdomain.RoleMember)

	if _, err := f.svc.ListPending(ctx, f.member); !errors.Is(err, apperr.ErrInsufficientRole) {
		t.Errorf("member ListPending err = %v", err)
	}
	list, err := f.svc.ListPending(ctx, f.admin)
	if err != nil || len(list) != 2 || list[0].ID != memberInv.Invitation.ID {
		t.Fatalf("ListPending = %+v, %v", list, err)
	}

	if err := f.svc.Revoke(ctx, f.admin, ownerInv.Invitation.ID); !errors.Is(err, apperr.ErrInsufficientRole) {
		t.Errorf("admin revoking owner invite err = %v", err)
	}
	if err := f.svc.Revoke(ctx, f.admin, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing invite err = %v", err)
	}
	other := &tenant.Context{PrincipalID: "x", Organization: &organizationdomain.Org{ID: "org-2"}, Role: membershipdomain.RoleOwner}
	if err := f.svc.Revoke(ctx, other, memberInv.Invitation.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("cross-org revoke err = %v", err)
	}
	if err := f.svc.Revoke(ctx, f.admin, memberInv.Invitation.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := f.svc.Accept(ctx, memberInv.Token, "Bob", "password123"); !errors.Is(err, apperr.ErrInvalidOrExpiredToken) {
		t.Errorf("revoked token err = %v", err)
	}
	if err := f.svc.Revoke(ctx, f.owner, ownerInv.Invitation.ID); err != nil {
		t.Fatalf("owner Revoke: %v", err)
	}
}
