// Package service manages the invitation lifecycle: issue (superseding any older invite for the
// same address), list, revoke, look up and single-use redemption.
package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"teamos/backend/internal/audit"
	"teamos/backend/internal/db"
	"teamos/backend/internal/email"
	identitydomain "teamos/backend/internal/identity/domain"
	identityservice "teamos/backend/internal/identity/service"
	"teamos/backend/internal/invitation/domain"
	membershipdomain "teamos/backend/internal/membership/domain"
	"teamos/backend/internal/platform/apperr"
	"teamos/backend/internal/platform/rbac"
	"teamos/backend/internal/security"
	"teamos/backend/internal/storage"
	"teamos/backend/internal/tenant"
	userdomain "teamos/backend/internal/user/domain"
)

// Rejection reasons reported to Metrics.
const (
	RejectNotFound = "not_found"
	RejectExpired  = "expired"
)

// Authenticator opens a session for a user who just joined.
type Authenticator interface {
	EstablishSession(ctx context.Context, userID string) (*identityservice.Session, error)
}

// Mailer delivers invitation emails without failing the caller.
type Mailer interface {
	SendInvitation(ctx context.Context, to string, data email.InvitationData)
}

// Metrics counts lifecycle transitions.
type Metrics interface {
	Issued(ctx context.Context, role string)
	Redeemed(ctx context.Context, role string)
	Rejected(ctx context.Context, reason string)
}

type nopMetrics struct{}

func (nopMetrics) Issued(context.Context, string)   {}
func (nopMetrics) Redeemed(context.Context, string) {}
func (nopMetrics) Rejected(context.Context, string) {}

// Issued is the result of Invite. Token is the raw invitation token; it exists only here.
type Issued struct {
	Invitation *domain.Invitation
	Token      string
	AcceptURL  string
}

// Preview describes a pending invitation for the accept page.
type Preview struct {
	Email            string
	OrganizationName string
	Role             membershipdomain.Role
	ExpiresAt        time.Time
	// HasAccount is true when the invited email already has a password, so no password is needed to accept.
	HasAccount bool
}

// Accepted is the result of Accept.
type Accepted struct {
	Session        *identityservice.Session
	OrganizationID string
	Role           membershipdomain.Role
}

// Config wires a Service.
type Config struct {
	Store     storage.Store
	Hasher    *security.Hasher
	Auth      Authenticator
	Mailer    Mailer
	Audit     audit.EventSink
	Metrics   Metrics
	AppOrigin string
	Log       *zap.Logger
}

// Service is the invitation lifecycle manager.
type Service struct {
	store     storage.Store
	hasher    *security.Hasher
	auth      Authenticator
	mailer    Mailer
	audit     audit.EventSink
	metrics   Metrics
	appOrigin string
	log       *zap.Logger
	now       func() time.Time
	newToken  func() (raw, hash string, err error)
}

// New returns a Service. Nil Audit and Metrics are replaced by no-ops.
func New(cfg Config) *Service {
	s := &Service{
		store:     cfg.Store,
		hasher:    cfg.Hasher,
		auth:      cfg.Auth,
		mailer:    cfg.Mailer,
		audit:     cfg.Audit,
		metrics:   cfg.Metrics,
		appOrigin: strings.TrimSuffix(cfg.AppOrigin, "/"),
		log:       cfg.Log,
		now:       func() time.Time { return time.Now().UTC() },
		newToken:  security.GenerateInviteToken,
	}
	if s.audit == nil {
		s.audit = audit.NopSink{}
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// AcceptURL builds the link sent to the invitee.
func (s *Service) AcceptURL(rawToken string) string {
	return s.appOrigin + "/accept-invite?token=" + url.QueryEscape(rawToken)
}

// Invite issues an invitation for email into the actor's organization. Only owners and admins
// invite, and only owners invite owners. An existing invitation for the same address is replaced.
func (s *Service) Invite(ctx context.Context, actor *tenant.Context, emailAddr string, role membershipdomain.Role) (*Issued, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	if err := rbac.RequireOrgAdmin(actor.Role); err != nil {
		return nil, err
	}
	if !rbac.Valid(role) {
		return nil, apperr.InvalidArgument("role must be one of OWNER, ADMIN, MEMBER")
	}
	if role == membershipdomain.RoleOwner && actor.Role != membershipdomain.RoleOwner {
		return nil, apperr.InsufficientRole("only owners can invite owners")
	}
	emailAddr = userdomain.NormalizeEmail(emailAddr)
	if err := userdomain.ValidateEmail(emailAddr); err != nil {
		return nil, apperr.InvalidArgument(err.Error())
	}
	orgID := actor.OrgID()

	existing, err := s.store.Users().GetByEmail(ctx, emailAddr)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if existing != nil {
		m, err := s.store.Memberships().GetMembershipByUserAndOrg(ctx, existing.ID, orgID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if m != nil {
			return nil, apperr.Conflict("user is already a member of this organization")
		}
	}

	raw, hash, err := s.newToken()
	if err != nil {
		return nil, apperr.Internal(err)
	}
	now := s.now()
	inv := &domain.Invitation{
		ID:          uuid.New().String(),
		Email:       emailAddr,
		OrgID:       orgID,
		Role:        role,
		TokenHash:   hash,
		InvitedByID: actor.PrincipalID,
		ExpiresAt:   now.Add(domain.TTL),
		CreatedAt:   now,
	}
	supersede := func(tx storage.Repos) error {
		if _, err := tx.Invitations().DeleteByEmailAndOrg(ctx, emailAddr, orgID); err != nil {
			return err
		}
		return tx.Invitations().Create(ctx, inv)
	}
	err = s.store.InTx(ctx, supersede)
	if errors.Is(err, db.ErrDuplicate) {
		// A concurrent invite for the same address committed first; replace it.
		err = s.store.InTx(ctx, supersede)
	}
	if errors.Is(err, db.ErrDuplicate) {
		return nil, apperr.Conflict("an invitation for this email was just issued")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	acceptURL := s.AcceptURL(raw)
	orgName := ""
	if actor.Organization != nil {
		orgName = actor.Organization.Name
	}
	if s.mailer != nil {
		s.mailer.SendInvitation(ctx, emailAddr, email.InvitationData{
			OrgName:   orgName,
			Role:      rbac.DisplayName(role),
			AcceptURL: acceptURL,
		})
	}
	s.audit.Record(ctx, audit.Event{
		OrgID:    orgID,
		ActorID:  actor.PrincipalID,
		Action:   audit.ActionMemberInvited,
		Metadata: map[string]any{"email": emailAddr, "role": string(role)},
	})
	s.metrics.Issued(ctx, string(role))
	s.log.Info("invitation issued", zap.String("org_id", orgID), zap.String("invitation_id", inv.ID), zap.String("role", string(role)))
	return &Issued{Invitation: inv, Token: raw, AcceptURL: acceptURL}, nil
}

// ListPending returns the organization's invitations, newest first.
func (s *Service) ListPending(ctx context.Context, actor *tenant.Context) ([]*domain.Invitation, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	if err := rbac.RequireOrgAdmin(actor.Role); err != nil {
		return nil, err
	}
	invs, err := s.store.Invitations().ListByOrg(ctx, actor.OrgID())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return invs, nil
}

// Revoke deletes a pending invitation of the actor's organization. Invitations of other
// organizations are reported as not found.
func (s *Service) Revoke(ctx context.Context, actor *tenant.Context, invitationID string) error {
	if actor == nil {
		return apperr.ErrUnauthenticated
	}
	if err := rbac.RequireOrgAdmin(actor.Role); err != nil {
		return err
	}
	inv, err := s.store.Invitations().GetByID(ctx, invitationID)
	if err != nil {
		return apperr.Internal(err)
	}
	if inv == nil || inv.OrgID != actor.OrgID() {
		return apperr.NotFound("invitation not found")
	}
	if inv.Role == membershipdomain.RoleOwner && actor.Role != membershipdomain.RoleOwner {
		return apperr.InsufficientRole("only owners can revoke owner invitations")
	}
	if err := s.store.Invitations().Delete(ctx, inv.ID); err != nil {
		return apperr.Internal(err)
	}
	s.audit.Record(ctx, audit.Event{
		OrgID:    inv.OrgID,
		ActorID:  actor.PrincipalID,
		Action:   audit.ActionInvitationRevoked,
		Metadata: map[string]any{"email": inv.Email, "role": string(inv.Role)},
	})
	return nil
}

// Lookup returns what the accept page shows for rawToken. Unknown and expired tokens are
// indistinguishable to the caller.
func (s *Service) Lookup(ctx context.Context, rawToken string) (*Preview, error) {
	if rawToken == "" {
		return nil, apperr.ErrInvalidOrExpiredToken
	}
	inv, err := s.store.Invitations().GetByTokenHash(ctx, security.HashInviteToken(rawToken))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if inv == nil || inv.Expired(s.now()) {
		return nil, apperr.ErrInvalidOrExpiredToken
	}
	org, err := s.store.Organizations().GetOrganizationByID(ctx, inv.OrgID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if org == nil {
		return nil, apperr.ErrInvalidOrExpiredToken
	}
	hasAccount, err := s.hasCredential(ctx, inv.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &Preview{
		Email:            inv.Email,
		OrganizationName: org.Name,
		Role:             inv.Role,
		ExpiresAt:        inv.ExpiresAt,
		HasAccount:       hasAccount,
	}, nil
}

func (s *Service) hasCredential(ctx context.Context, emailAddr string) (bool, error) {
	u, err := s.store.Users().GetByEmail(ctx, emailAddr)
	if err != nil || u == nil {
		return false, err
	}
	ident, err := s.store.Identities().GetByUserAndProvider(ctx, u.ID, identitydomain.IdentityProviderLocal)
	if err != nil {
		return false, err
	}
	return ident.HasPassword(), nil
}

// Accept redeems rawToken. The invitation row is claimed (deleted) inside the transaction that
// creates the membership, so two concurrent redemptions of one token produce one membership.
// name and password are used only when the invitee has no credential yet.
func (s *Service) Accept(ctx context.Context, rawToken, name, password string) (*Accepted, error) {
	if rawToken == "" {
		s.metrics.Rejected(ctx, RejectNotFound)
		return nil, apperr.ErrInvalidOrExpiredToken
	}
	hash := security.HashInviteToken(rawToken)

	// Decide outside the transaction whether a password hash is needed so bcrypt never runs
	// while row locks are held.
	preview, err := s.store.Invitations().GetByTokenHash(ctx, hash)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if preview == nil {
		s.metrics.Rejected(ctx, RejectNotFound)
		return nil, apperr.ErrInvalidOrExpiredToken
	}
	if preview.Expired(s.now()) {
		s.metrics.Rejected(ctx, RejectExpired)
		return nil, apperr.ErrInvalidOrExpiredToken
	}
	hasCredential, err := s.hasCredential(ctx, preview.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	var passwordHash string
	if !hasCredential {
		if err := security.ValidatePassword(password); err != nil {
			return nil, apperr.InvalidArgument(err.Error())
		}
		if passwordHash, err = s.hasher.Hash([]byte(password)); err != nil {
			return nil, apperr.Internal(err)
		}
	}

	var (
		userID string
		inv    *domain.Invitation
		reason string
	)
	err = s.store.InTx(ctx, func(tx storage.Repos) error {
		claimed, err := tx.Invitations().ClaimByTokenHash(ctx, hash)
		if err != nil {
			return err
		}
		if claimed == nil || !security.InviteTokenHashEqual(rawToken, claimed.TokenHash) {
			reason = RejectNotFound
			return apperr.ErrInvalidOrExpiredToken
		}
		if claimed.Expired(s.now()) {
			// Rolling back leaves the expired row in place; it can never be redeemed.
			reason = RejectExpired
			return apperr.ErrInvalidOrExpiredToken
		}
		inv = claimed
		now := s.now()

		user, err := tx.Users().GetByEmail(ctx, claimed.Email)
		if err != nil {
			return err
		}
		if user == nil {
			user = &userdomain.User{
				ID:        uuid.New().String(),
				Email:     claimed.Email,
				Name:      strings.TrimSpace(name),
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := user.Validate(); err != nil {
				return apperr.InvalidArgument(err.Error())
			}
			if err := tx.Users().Create(ctx, user); err != nil {
				return err
			}
		}
		userID = user.ID

		ident, err := tx.Identities().GetByUserAndProvider(ctx, user.ID, identitydomain.IdentityProviderLocal)
		if err != nil {
			return err
		}
		if !ident.HasPassword() {
			if passwordHash == "" {
				// A credential appeared or vanished between the pre-read and the claim.
				return apperr.InvalidArgument("password is required")
			}
			if ident != nil {
				if err := tx.Identities().SetPasswordHash(ctx, ident.ID, passwordHash); err != nil {
					return err
				}
			} else if err := tx.Identities().Create(ctx, &identitydomain.Identity{
				ID:           uuid.New().String(),
				UserID:       user.ID,
				Provider:     identitydomain.IdentityProviderLocal,
				ProviderID:   user.Email,
				PasswordHash: passwordHash,
				CreatedAt:    now,
			}); err != nil {
				return err
			}
		}

		existing, err := tx.Memberships().GetMembershipByUserAndOrg(ctx, user.ID, claimed.OrgID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.Conflict("already a member of this organization")
		}
		return tx.Memberships().CreateMembership(ctx, &membershipdomain.Membership{
			ID:        uuid.New().String(),
			UserID:    user.ID,
			OrgID:     claimed.OrgID,
			Role:      claimed.Role,
			CreatedAt: now,
		})
	})
	if err != nil {
		if reason != "" {
			s.metrics.Rejected(ctx, reason)
		}
		var appErr *apperr.Error
		switch {
		case errors.As(err, &appErr):
			return nil, appErr
		case errors.Is(err, db.ErrDuplicate):
			return nil, apperr.Conflict("already a member of this organization")
		}
		return nil, apperr.Internal(err)
	}

	sess, err := s.auth.EstablishSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Event{
		OrgID:    inv.OrgID,
		ActorID:  userID,
		Action:   audit.ActionInvitationAccepted,
		Metadata: map[string]any{"email": inv.Email, "role": string(inv.Role)},
	})
	s.metrics.Redeemed(ctx, string(inv.Role))
	return &Accepted{Session: sess, OrganizationID: inv.OrgID, Role: inv.Role}, nil
}
