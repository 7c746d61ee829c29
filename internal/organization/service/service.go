// Package service creates and updates organizations.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"teamos/backend/internal/audit"
	"teamos/backend/internal/db"
	membershipdomain "teamos/backend/internal/membership/domain"
	"teamos/backend/internal/organization/domain"
	"teamos/backend/internal/platform/apperr"
	"teamos/backend/internal/platform/rbac"
	"teamos/backend/internal/storage"
	"teamos/backend/internal/tenant"
)

const slugTaken = "this slug is already taken"

// Service manages organizations.
type Service struct {
	store storage.Store
	authz rbac.Checker
	audit audit.EventSink
	now   func() time.Time
}

// New returns a Service. A nil sink discards audit events.
func New(store storage.Store, authz rbac.Checker, sink audit.EventSink) *Service {
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &Service{store: store, authz: authz, audit: sink, now: func() time.Time { return time.Now().UTC() }}
}

// Create makes a new organization owned by principalID. slugInput is slugified before validation;
// a blank slugInput derives the slug from name.
func (s *Service) Create(ctx context.Context, principalID, name, slugInput string) (*domain.Org, error) {
	if principalID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	if strings.TrimSpace(slugInput) == "" {
		slugInput = name
	}
	now := s.now()
	org := &domain.Org{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		Slug:      domain.Slugify(slugInput),
		CreatedAt: now,
	}
	if err := org.Validate(); err != nil {
		return nil, apperr.InvalidArgument(err.Error())
	}
	err := s.store.InTx(ctx, func(tx storage.Repos) error {
		existing, err := tx.Organizations().GetOrganizationBySlug(ctx, org.Slug)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.Conflict(slugTaken)
		}
		if err := tx.Organizations().CreateOrganization(ctx, org); err != nil {
			return err
		}
		return tx.Memberships().CreateMembership(ctx, &membershipdomain.Membership{
			ID:        uuid.New().String(),
			UserID:    principalID,
			OrgID:     org.ID,
			Role:      membershipdomain.RoleOwner,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, mapError(err)
	}
	s.audit.Record(ctx, audit.Event{
		OrgID:    org.ID,
		ActorID:  principalID,
		Action:   audit.ActionOrganizationCreated,
		Metadata: map[string]any{"name": org.Name, "slug": org.Slug},
	})
	return org, nil
}

// Update changes the name and/or slug of the actor's organization. Nil fields are left as they are.
func (s *Service) Update(ctx context.Context, actor *tenant.Context, name, slug *string) (*domain.Org, error) {
	if actor == nil || actor.Organization == nil {
		return nil, apperr.ErrUnauthenticated
	}
	if err := rbac.Require(ctx, s.authz, actor.Role, rbac.PermManageSettings); err != nil {
		return nil, err
	}
	org := *actor.Organization
	changes := map[string]any{}
	if name != nil {
		org.Name = strings.TrimSpace(*name)
		changes["name"] = org.Name
	}
	if slug != nil {
		org.Slug = domain.Slugify(*slug)
		changes["slug"] = org.Slug
	}
	if len(changes) == 0 {
		return &org, nil
	}
	if err := org.Validate(); err != nil {
		return nil, apperr.InvalidArgument(err.Error())
	}
	err := s.store.InTx(ctx, func(tx storage.Repos) error {
		if slug != nil {
			existing, err := tx.Organizations().GetOrganizationBySlug(ctx, org.Slug)
			if err != nil {
				return err
			}
			if existing != nil && existing.ID != org.ID {
				return apperr.Conflict(slugTaken)
			}
		}
		return tx.Organizations().UpdateOrganization(ctx, &org)
	})
	if err != nil {
		return nil, mapError(err)
	}
	s.audit.Record(ctx, audit.Event{
		OrgID:    org.ID,
		ActorID:  actor.PrincipalID,
		Action:   audit.ActionOrganizationUpdated,
		Metadata: changes,
	})
	return &org, nil
}

func mapError(err error) error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, db.ErrDuplicate):
		return apperr.Conflict(slugTaken)
	default:
		return apperr.Internal(err)
	}
}
