// Package service implements membership listing, role changes and removal. Every organization
// keeps at least one OWNER: changes that would drop the last one are refused inside the same
// transaction that locks the owner rows.
package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"teamos/backend/internal/audit"
	"teamos/backend/internal/membership/domain"
	"teamos/backend/internal/platform/apperr"
	"teamos/backend/internal/platform/rbac"
	"teamos/backend/internal/storage"
	"teamos/backend/internal/tenant"
)

// Service manages the memberships of the actor's organization.
type Service struct {
	store storage.Store
	audit audit.EventSink
	log   *zap.Logger
}

// New returns a Service. A nil sink discards audit events.
func New(store storage.Store, sink audit.EventSink, log *zap.Logger) *Service {
	if sink == nil {
		sink = audit.NopSink{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, audit: sink, log: log}
}

// List returns the organization's members, oldest first. Any member may list.
func (s *Service) List(ctx context.Context, actor *tenant.Context) ([]*domain.Member, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	members, err := s.store.Memberships().ListMembersByOrg(ctx, actor.OrgID())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return members, nil
}

// ChangeRole sets the role of membershipID. Owners and admins change roles of members they
// outrank, to roles below their own; owners may also grant OWNER. A member changing their own
// role may only lower it.
func (s *Service) ChangeRole(ctx context.Context, actor *tenant.Context, membershipID string, newRole domain.Role) (*domain.Membership, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	if err := rbac.RequireOrgAdmin(actor.Role); err != nil {
		return nil, err
	}
	if !rbac.Valid(newRole) {
		return nil, apperr.InvalidArgument("role must be one of OWNER, ADMIN, MEMBER")
	}

	var (
		target  *domain.Membership
		oldRole domain.Role
	)
	err := s.store.InTx(ctx, func(tx storage.Repos) error {
		owners, err := tx.Memberships().LockOwnersByOrg(ctx, actor.OrgID())
		if err != nil {
			return err
		}
		m, err := loadTarget(ctx, tx, actor, membershipID)
		if err != nil {
			return err
		}
		target, oldRole = m, m.Role
		if m.UserID == actor.PrincipalID {
			if rbac.Rank(newRole) >= rbac.Rank(m.Role) {
				return apperr.InsufficientRole("you can only lower your own role")
			}
		} else if err := checkGrant(actor.Role, m.Role, newRole); err != nil {
			return err
		}
		if newRole == m.Role {
			return nil
		}
		if m.Role == domain.RoleOwner && newRole != domain.RoleOwner && owners <= 1 {
			return apperr.ErrLastOwnerProtection
		}
		if err := tx.Memberships().UpdateRole(ctx, m.ID, newRole); err != nil {
			return err
		}
		m.Role = newRole
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	if oldRole != newRole {
		s.audit.Record(ctx, audit.Event{
			OrgID:    actor.OrgID(),
			ActorID:  actor.PrincipalID,
			Action:   audit.ActionMemberRoleChanged,
			Metadata: map[string]any{"memberId": target.ID, "oldRole": string(oldRole), "newRole": string(newRole)},
		})
	}
	return target, nil
}

func checkGrant(actor, current, next domain.Role) error {
	if !rbac.CanManageRole(actor, current) {
		return apperr.InsufficientRole("cannot change the role of an equal or higher role")
	}
	if next == domain.RoleOwner && actor == domain.RoleOwner {
		return nil
	}
	for _, r := range rbac.AssignableRoles(actor) {
		if r == next {
			return nil
		}
	}
	return apperr.InsufficientRole("cannot assign a role equal to or above your own")
}

// Remove deletes membershipID from the organization. Anyone may leave; removing someone else
// requires OWNER or ADMIN and a strictly higher role.
func (s *Service) Remove(ctx context.Context, actor *tenant.Context, membershipID string) error {
	if actor == nil {
		return apperr.ErrUnauthenticated
	}
	var (
		target *domain.Membership
		email  string
	)
	err := s.store.InTx(ctx, func(tx storage.Repos) error {
		owners, err := tx.Memberships().LockOwnersByOrg(ctx, actor.OrgID())
		if err != nil {
			return err
		}
		m, err := loadTarget(ctx, tx, actor, membershipID)
		if err != nil {
			return err
		}
		target = m
		if m.UserID != actor.PrincipalID {
			if err := rbac.RequireOrgAdmin(actor.Role); err != nil {
				return err
			}
			if !rbac.CanManageRole(actor.Role, m.Role) {
				return apperr.InsufficientRole("cannot remove a member with an equal or higher role")
			}
		}
		if m.Role == domain.RoleOwner && owners <= 1 {
			return apperr.ErrLastOwnerProtection
		}
		if u, err := tx.Users().GetByID(ctx, m.UserID); err != nil {
			return err
		} else if u != nil {
			email = u.Email
		}
		return tx.Memberships().DeleteMembership(ctx, m.ID)
	})
	if err != nil {
		return mapError(err)
	}
	s.audit.Record(ctx, audit.Event{
		OrgID:    actor.OrgID(),
		ActorID:  actor.PrincipalID,
		Action:   audit.ActionMemberRemoved,
		Metadata: map[string]any{"email": email, "role": string(target.Role), "self": target.UserID == actor.PrincipalID},
	})
	return nil
}

// loadTarget returns the membership if it belongs to the actor's organization.
func loadTarget(ctx context.Context, tx storage.Repos, actor *tenant.Context, membershipID string) (*domain.Membership, error) {
	if membershipID == "" {
		return nil, apperr.InvalidArgument("membership id is required")
	}
	m, err := tx.Memberships().GetMembershipByID(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if m == nil || m.OrgID != actor.OrgID() {
		return nil, apperr.NotFound("member not found")
	}
	return m, nil
}

func mapError(err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperr.Internal(err)
}
