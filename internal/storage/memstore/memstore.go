// Package memstore is an in-memory storage.Store for tests and local runs without Postgres.
// Transactions are serialized and roll back by restoring a snapshot, so concurrent InTx callers
// observe each other's committed writes the way Postgres row locks would make them.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	auditdomain "teamos/backend/internal/audit/domain"
	auditrepo "teamos/backend/internal/audit/repository"
	"teamos/backend/internal/db"
	identitydomain "teamos/backend/internal/identity/domain"
	identityrepo "teamos/backend/internal/identity/repository"
	invitationdomain "teamos/backend/internal/invitation/domain"
	invitationrepo "teamos/backend/internal/invitation/repository"
	membershipdomain "teamos/backend/internal/membership/domain"
	membershiprepo "teamos/backend/internal/membership/repository"
	organizationdomain "teamos/backend/internal/organization/domain"
	organizationrepo "teamos/backend/internal/organization/repository"
	projectdomain "teamos/backend/internal/project/domain"
	projectrepo "teamos/backend/internal/project/repository"
	sessiondomain "teamos/backend/internal/session/domain"
	sessionrepo "teamos/backend/internal/session/repository"
	"teamos/backend/internal/storage"
	userdomain "teamos/backend/internal/user/domain"
	userrepo "teamos/backend/internal/user/repository"
)

type state struct {
	seq         int64
	order       map[string]int64
	users       map[string]userdomain.User
	identities  map[string]identitydomain.Identity
	orgs        map[string]organizationdomain.Org
	memberships map[string]membershipdomain.Membership
	invitations map[string]invitationdomain.Invitation
	sessions    map[string]sessiondomain.Session
	auditLogs   map[string]auditdomain.AuditLog
	projects    map[string]projectdomain.Project
	tasks       map[string]projectdomain.Task
}

func newState() *state {
	return &state{
		order:       map[string]int64{},
		users:       map[string]userdomain.User{},
		identities:  map[string]identitydomain.Identity{},
		orgs:        map[string]organizationdomain.Org{},
		memberships: map[string]membershipdomain.Membership{},
		invitations: map[string]invitationdomain.Invitation{},
		sessions:    map[string]sessiondomain.Session{},
		auditLogs:   map[string]auditdomain.AuditLog{},
		projects:    map[string]projectdomain.Project{},
		tasks:       map[string]projectdomain.Task{},
	}
}

func (s *state) clone() *state {
	c := newState()
	c.seq = s.seq
	copyMap(c.order, s.order)
	copyMap(c.users, s.users)
	copyMap(c.identities, s.identities)
	copyMap(c.orgs, s.orgs)
	copyMap(c.memberships, s.memberships)
	copyMap(c.invitations, s.invitations)
	copyMap(c.sessions, s.sessions)
	copyMap(c.auditLogs, s.auditLogs)
	copyMap(c.projects, s.projects)
	copyMap(c.tasks, s.tasks)
	return c
}

func copyMap[V any](dst, src map[string]V) {
	for k, v := range src {
		dst[k] = v
	}
}

func (s *state) track(id string) {
	s.seq++
	s.order[id] = s.seq
}

// Store implements storage.Store in memory. The zero value is not usable; call New.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data *state
	errs map[string]error
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: newState(), errs: map[string]error{}}
}

// SetError makes every call to op (e.g. "invitations.Create") fail with err until cleared with a nil err.
func (s *Store) SetError(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op = normalizeOp(op)
	if err == nil {
		delete(s.errs, op)
		return
	}
	s.errs[op] = err
}

// InTx serializes transactions and restores the pre-transaction snapshot when fn fails.
// fn writes to the live data: calls made outside InTx while fn runs see its uncommitted
// writes, and a rollback also discards anything they wrote in the meantime. Tests that
// depend on isolation from non-transactional callers need Postgres.
func (s *Store) InTx(ctx context.Context, fn func(tx storage.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// with runs f under the data lock after checking injected errors for op.
func (s *Store) with(op string, f func(d *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[op]; err != nil {
		return err
	}
	return f(s.data)
}

func (s *Store) Users() userrepo.Repository                 { return users{s} }
func (s *Store) Identities() identityrepo.Repository        { return identities{s} }
func (s *Store) Organizations() organizationrepo.Repository { return organizations{s} }
func (s *Store) Memberships() membershiprepo.Repository     { return memberships{s} }
func (s *Store) Invitations() invitationrepo.Repository     { return invitations{s} }
func (s *Store) Sessions() sessionrepo.Repository           { return sessions{s} }
func (s *Store) AuditLogs() auditrepo.Repository            { return auditLogs{s} }
func (s *Store) Projects() projectrepo.Repository           { return projects{s} }

var _ storage.Store = (*Store)(nil)

func duplicate(what string) error {
	return fmt.Errorf("%w: %s", db.ErrDuplicate, what)
}

// ---- users ----

type users struct{ s *Store }

func (r users) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	var out *userdomain.User
	err := r.s.with("users.GetByID", func(d *state) error {
		if u, ok := d.users[id]; ok {
			out = &u
		}
		return nil
	})
	return out, err
}

func (r users) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	var out *userdomain.User
	err := r.s.with("users.GetByEmail", func(d *state) error {
		for _, u := range d.users {
			if u.Email == email {
				u := u
				out = &u
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r users) Create(ctx context.Context, u *userdomain.User) error {
	return r.s.with("users.Create", func(d *state) error {
		if _, ok := d.users[u.ID]; ok {
			return duplicate("users_pkey")
		}
		for _, existing := range d.users {
			if existing.Email == u.Email {
				return duplicate("users_email_key")
			}
		}
		d.users[u.ID] = *u
		d.track(u.ID)
		return nil
	})
}

// ---- identities ----

type identities struct{ s *Store }

func (r identities) GetByUserAndProvider(ctx context.Context, userID string, provider identitydomain.IdentityProvider) (*identitydomain.Identity, error) {
	var out *identitydomain.Identity
	err := r.s.with("identities.GetByUserAndProvider", func(d *state) error {
		for _, i := range d.identities {
			if i.UserID == userID && i.Provider == provider {
				i := i
				out = &i
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r identities) Create(ctx context.Context, i *identitydomain.Identity) error {
	return r.s.with("identities.Create", func(d *state) error {
		for _, existing := range d.identities {
			if existing.UserID == i.UserID && existing.Provider == i.Provider {
				return duplicate("identities_user_id_provider_key")
			}
		}
		d.identities[i.ID] = *i
		d.track(i.ID)
		return nil
	})
}

func (r identities) SetPasswordHash(ctx context.Context, id, passwordHash string) error {
	return r.s.with("identities.SetPasswordHash", func(d *state) error {
		i, ok := d.identities[id]
		if !ok {
			return nil
		}
		i.PasswordHash = passwordHash
		d.identities[id] = i
		return nil
	})
}

// ---- organizations ----

type organizations struct{ s *Store }

func (r organizations) GetOrganizationByID(ctx context.Context, id string) (*organizationdomain.Org, error) {
	var out *organizationdomain.Org
	err := r.s.with("organizations.GetOrganizationByID", func(d *state) error {
		if o, ok := d.orgs[id]; ok {
			out = &o
		}
		return nil
	})
	return out, err
}

func (r organizations) GetOrganizationBySlug(ctx context.Context, slug string) (*organizationdomain.Org, error) {
	var out *organizationdomain.Org
	err := r.s.with("organizations.GetOrganizationBySlug", func(d *state) error {
		for _, o := range d.orgs {
			if o.Slug == slug {
				o := o
				out = &o
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r organizations) CreateOrganization(ctx context.Context, o *organizationdomain.Org) error {
	return r.s.with("organizations.CreateOrganization", func(d *state) error {
		for _, existing := range d.orgs {
			if existing.Slug == o.Slug {
				return duplicate("organizations_slug_key")
			}
		}
		d.orgs[o.ID] = *o
		d.track(o.ID)
		return nil
	})
}

func (r organizations) UpdateOrganization(ctx context.Context, o *organizationdomain.Org) error {
	return r.s.with("organizations.UpdateOrganization", func(d *state) error {
		for _, existing := range d.orgs {
			if existing.Slug == o.Slug && existing.ID != o.ID {
				return duplicate("organizations_slug_key")
			}
		}
		cur, ok := d.orgs[o.ID]
		if !ok {
			return nil
		}
		cur.Name, cur.Slug = o.Name, o.Slug
		d.orgs[o.ID] = cur
		return nil
	})
}

// ---- memberships ----

type memberships struct{ s *Store }

func (r memberships) GetMembershipByID(ctx context.Context, id string) (*membershipdomain.Membership, error) {
	var out *membershipdomain.Membership
	err := r.s.with("memberships.GetMembershipByID", func(d *state) error {
		if m, ok := d.memberships[id]; ok {
			out = &m
		}
		return nil
	})
	return out, err
}

func (r memberships) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*membershipdomain.Membership, error) {
	var out *membershipdomain.Membership
	err := r.s.with("memberships.GetMembershipByUserAndOrg", func(d *state) error {
		for _, m := range d.memberships {
			if m.UserID == userID && m.OrgID == orgID {
				m := m
				out = &m
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r memberships) ListMembersByOrg(ctx context.Context, orgID string) ([]*membershipdomain.Member, error) {
	var out []*membershipdomain.Member
	err := r.s.with("memberships.ListMembersByOrg", func(d *state) error {
		for _, m := range d.memberships {
			if m.OrgID != orgID {
				continue
			}
			u := d.users[m.UserID]
			out = append(out, &membershipdomain.Member{Membership: m, Email: u.Email, Name: u.Name})
		}
		sort.Slice(out, func(i, j int) bool { return d.order[out[i].ID] < d.order[out[j].ID] })
		return nil
	})
	return out, err
}

func (r memberships) ListOrganizationsByUser(ctx context.Context, userID string) ([]*membershipdomain.OrgMembership, error) {
	var out []*membershipdomain.OrgMembership
	err := r.s.with("memberships.ListOrganizationsByUser", func(d *state) error {
		for _, m := range d.memberships {
			if m.UserID != userID {
				continue
			}
			o := d.orgs[m.OrgID]
			out = append(out, &membershipdomain.OrgMembership{Membership: m, OrgName: o.Name, OrgSlug: o.Slug})
		}
		sort.Slice(out, func(i, j int) bool { return d.order[out[i].ID] > d.order[out[j].ID] })
		return nil
	})
	return out, err
}

func (r memberships) CreateMembership(ctx context.Context, m *membershipdomain.Membership) error {
	return r.s.with("memberships.CreateMembership", func(d *state) error {
		for _, existing := range d.memberships {
			if existing.UserID == m.UserID && existing.OrgID == m.OrgID {
				return duplicate("memberships_user_id_org_id_key")
			}
		}
		d.memberships[m.ID] = *m
		d.track(m.ID)
		return nil
	})
}

func (r memberships) UpdateRole(ctx context.Context, id string, role membershipdomain.Role) error {
	return r.s.with("memberships.UpdateRole", func(d *state) error {
		if m, ok := d.memberships[id]; ok {
			m.Role = role
			d.memberships[id] = m
		}
		return nil
	})
}

func (r memberships) DeleteMembership(ctx context.Context, id string) error {
	return r.s.with("memberships.DeleteMembership", func(d *state) error {
		delete(d.memberships, id)
		return nil
	})
}

func (r memberships) LockOwnersByOrg(ctx context.Context, orgID string) (int, error) {
	n := 0
	err := r.s.with("memberships.LockOwnersByOrg", func(d *state) error {
		for _, m := range d.memberships {
			if m.OrgID == orgID && m.Role == membershipdomain.RoleOwner {
				n++
			}
		}
		return nil
	})
	return n, err
}

// ---- invitations ----

type invitations struct{ s *Store }

func (r invitations) GetByID(ctx context.Context, id string) (*invitationdomain.Invitation, error) {
	var out *invitationdomain.Invitation
	err := r.s.with("invitations.GetByID", func(d *state) error {
		if inv, ok := d.invitations[id]; ok {
			out = &inv
		}
		return nil
	})
	return out, err
}

func (r invitations) GetByTokenHash(ctx context.Context, tokenHash string) (*invitationdomain.Invitation, error) {
	var out *invitationdomain.Invitation
	err := r.s.with("invitations.GetByTokenHash", func(d *state) error {
		for _, inv := range d.invitations {
			if inv.TokenHash == tokenHash {
				inv := inv
				out = &inv
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r invitations) ListByOrg(ctx context.Context, orgID string) ([]*invitationdomain.Invitation, error) {
	var out []*invitationdomain.Invitation
	err := r.s.with("invitations.ListByOrg", func(d *state) error {
		for _, inv := range d.invitations {
			if inv.OrgID == orgID {
				inv := inv
				out = append(out, &inv)
			}
		}
		sort.Slice(out, func(i, j int) bool { return d.order[out[i].ID] > d.order[out[j].ID] })
		return nil
	})
	return out, err
}

func (r invitations) Create(ctx context.Context, inv *invitationdomain.Invitation) error {
	return r.s.with("invitations.Create", func(d *state) error {
		for _, existing := range d.invitations {
			if existing.Email == inv.Email && existing.OrgID == inv.OrgID {
				return duplicate("invitations_email_org_id_key")
			}
			if existing.TokenHash == inv.TokenHash {
				return duplicate("invitations_token_hash_key")
			}
		}
		d.invitations[inv.ID] = *inv
		d.track(inv.ID)
		return nil
	})
}

func (r invitations) DeleteByEmailAndOrg(ctx context.Context, email, orgID string) (int64, error) {
	var n int64
	err := r.s.with("invitations.DeleteByEmailAndOrg", func(d *state) error {
		for id, inv := range d.invitations {
			if inv.Email == email && inv.OrgID == orgID {
				delete(d.invitations, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r invitations) ClaimByTokenHash(ctx context.Context, tokenHash string) (*invitationdomain.Invitation, error) {
	var out *invitationdomain.Invitation
	err := r.s.with("invitations.ClaimByTokenHash", func(d *state) error {
		for id, inv := range d.invitations {
			if inv.TokenHash == tokenHash {
				inv := inv
				out = &inv
				delete(d.invitations, id)
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r invitations) Delete(ctx context.Context, id string) error {
	return r.s.with("invitations.Delete", func(d *state) error {
		delete(d.invitations, id)
		return nil
	})
}

// ---- sessions ----

type sessions struct{ s *Store }

func (r sessions) GetByID(ctx context.Context, id string) (*sessiondomain.Session, error) {
	var out *sessiondomain.Session
	err := r.s.with("sessions.GetByID", func(d *state) error {
		if sess, ok := d.sessions[id]; ok {
			out = &sess
		}
		return nil
	})
	return out, err
}

func (r sessions) Create(ctx context.Context, sess *sessiondomain.Session) error {
	return r.s.with("sessions.Create", func(d *state) error {
		d.sessions[sess.ID] = *sess
		d.track(sess.ID)
		return nil
	})
}

func (r sessions) Revoke(ctx context.Context, id string) error {
	return r.s.with("sessions.Revoke", func(d *state) error {
		sess, ok := d.sessions[id]
		if !ok || sess.RevokedAt != nil {
			return nil
		}
		now := time.Now().UTC()
		sess.RevokedAt = &now
		d.sessions[id] = sess
		return nil
	})
}

// ---- audit logs ----

type auditLogs struct{ s *Store }

func (r auditLogs) ListByOrg(ctx context.Context, orgID string, limit int) ([]*auditdomain.AuditLog, error) {
	var out []*auditdomain.AuditLog
	err := r.s.with("auditLogs.ListByOrg", func(d *state) error {
		for _, a := range d.auditLogs {
			if a.OrgID != orgID {
				continue
			}
			a := a
			if u, ok := d.users[a.ActorID]; ok {
				a.ActorName, a.ActorEmail = u.Name, u.Email
			}
			out = append(out, &a)
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return d.order[out[i].ID] > d.order[out[j].ID]
		})
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

func (r auditLogs) Create(ctx context.Context, a *auditdomain.AuditLog) error {
	return r.s.with("auditLogs.Create", func(d *state) error {
		if _, ok := d.auditLogs[a.ID]; ok {
			return nil
		}
		d.auditLogs[a.ID] = *a
		d.track(a.ID)
		return nil
	})
}

// ---- projects and tasks ----

type projects struct{ s *Store }

func (r projects) GetProject(ctx context.Context, id string) (*projectdomain.Project, error) {
	var out *projectdomain.Project
	err := r.s.with("projects.GetProject", func(d *state) error {
		if p, ok := d.projects[id]; ok {
			out = &p
		}
		return nil
	})
	return out, err
}

func (r projects) ListProjectsByOrg(ctx context.Context, orgID string) ([]*projectdomain.Project, error) {
	var out []*projectdomain.Project
	err := r.s.with("projects.ListProjectsByOrg", func(d *state) error {
		for _, p := range d.projects {
			if p.OrgID == orgID {
				p := p
				out = append(out, &p)
			}
		}
		sort.Slice(out, func(i, j int) bool { return d.order[out[i].ID] > d.order[out[j].ID] })
		return nil
	})
	return out, err
}

func (r projects) CreateProject(ctx context.Context, p *projectdomain.Project) error {
	return r.s.with("projects.CreateProject", func(d *state) error {
		d.projects[p.ID] = *p
		d.track(p.ID)
		return nil
	})
}

func (r projects) DeleteProject(ctx context.Context, id string) error {
	return r.s.with("projects.DeleteProject", func(d *state) error {
		delete(d.projects, id)
		for tid, t := range d.tasks {
			if t.ProjectID == id {
				delete(d.tasks, tid)
			}
		}
		return nil
	})
}

func (r projects) GetTask(ctx context.Context, id string) (*projectdomain.Task, error) {
	var out *projectdomain.Task
	err := r.s.with("projects.GetTask", func(d *state) error {
		if t, ok := d.tasks[id]; ok {
			out = &t
		}
		return nil
	})
	return out, err
}

func (r projects) ListTasksByProject(ctx context.Context, projectID string) ([]*projectdomain.Task, error) {
	var out []*projectdomain.Task
	err := r.s.with("projects.ListTasksByProject", func(d *state) error {
		for _, t := range d.tasks {
			if t.ProjectID == projectID {
				t := t
				out = append(out, &t)
			}
		}
		sort.Slice(out, func(i, j int) bool { return d.order[out[i].ID] > d.order[out[j].ID] })
		return nil
	})
	return out, err
}

func (r projects) CreateTask(ctx context.Context, t *projectdomain.Task) error {
	return r.s.with("projects.CreateTask", func(d *state) error {
		if _, ok := d.projects[t.ProjectID]; !ok {
			return errors.New("memstore: tasks_project_id_fkey violated")
		}
		d.tasks[t.ID] = *t
		d.track(t.ID)
		return nil
	})
}

func (r projects) UpdateTaskStatus(ctx context.Context, id string, status projectdomain.TaskStatus) error {
	return r.s.with("projects.UpdateTaskStatus", func(d *state) error {
		if t, ok := d.tasks[id]; ok {
			t.Status = status
			t.UpdatedAt = time.Now().UTC()
			d.tasks[id] = t
		}
		return nil
	})
}

// Counts returns row counts per table, for assertions in tests.
func (s *Store) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]int{
		"users":       len(s.data.users),
		"identities":  len(s.data.identities),
		"orgs":        len(s.data.orgs),
		"memberships": len(s.data.memberships),
		"invitations": len(s.data.invitations),
		"sessions":    len(s.data.sessions),
		"audit_logs":  len(s.data.auditLogs),
		"projects":    len(s.data.projects),
		"tasks":       len(s.data.tasks),
	}
}

// normalizeOp lowercases the first letter so SetError("Invitations.Create", ...) also works.
func normalizeOp(op string) string {
	if op == "" {
		return op
	}
	return strings.ToLower(op[:1]) + op[1:]
}
