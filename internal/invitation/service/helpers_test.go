package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"teamos/backend/internal/email"
	"teamos/backend/internal/invitation/domain"
	invitationrepo "teamos/backend/internal/invitation/repository"
	"teamos/backend/internal/security"
	"teamos/backend/internal/storage"
	"teamos/backend/internal/storage/memstore"
	"teamos/backend/internal/telemetry"
)

type failingSender struct{}

func (failingSender) Send(context.Context, email.Message) error { return errors.New("provider down") }

// newFailingDispatcher returns a real Dispatcher whose sender always fails, drained at cleanup.
func newFailingDispatcher(t *testing.T) *email.Dispatcher {
	t.Helper()
	bg := telemetry.NewBackground(zap.NewNop())
	t.Cleanup(func() { _ = bg.Wait(context.Background()) })
	return email.NewDispatcher(failingSender{}, bg, nil)
}

// hookedStore is a memstore whose transactional invitation calls can be intercepted.
type hookedStore struct {
	*memstore.Store
	// beforeCreate runs before each transactional invitations.Create; an error replaces the insert.
	beforeCreate func() error
	// afterClaim may alter the row returned by invitations.ClaimByTokenHash.
	afterClaim func(*domain.Invitation)
}

func (s *hookedStore) InTx(ctx context.Context, fn func(tx storage.Repos) error) error {
	return s.Store.InTx(ctx, func(tx storage.Repos) error {
		return fn(hookedRepos{Repos: tx, s: s})
	})
}

type hookedRepos struct {
	storage.Repos
	s *hookedStore
}

func (r hookedRepos) Invitations() invitationrepo.Repository {
	return hookedInvitations{Repository: r.Repos.Invitations(), s: r.s}
}

type hookedInvitations struct {
	invitationrepo.Repository
	s *hookedStore
}

func (r hookedInvitations) Create(ctx context.Context, inv *domain.Invitation) error {
	if r.s.beforeCreate != nil {
		if err := r.s.beforeCreate(); err != nil {
			return err
		}
	}
	return r.Repository.Create(ctx, inv)
}

func (r hookedInvitations) ClaimByTokenHash(ctx context.Context, tokenHash string) (*domain.Invitation, error) {
	inv, err := r.Repository.ClaimByTokenHash(ctx, tokenHash)
	if inv != nil && r.s.afterClaim != nil {
		r.s.afterClaim(inv)
	}
	return inv, err
}

// withStore rebuilds f.svc on top of store, keeping the fixture's collaborators.
func (f *fixture) withStore(store storage.Store) {
	f.svc = New(Config{
		Store:     store,
		Hasher:    security.NewHasher(4),
		Auth:      f.auth,
		Mailer:    f.mailer,
		Audit:     f.sink,
		Metrics:   f.metrics,
		AppOrigin: "https://app.example.com/",
	})
}
