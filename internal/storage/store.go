// Package storage bundles the per-feature repositories behind one injectable Store with a
// transaction runner, so services can group writes without knowing the backend.
package storage

import (
	"context"

	auditrepo "teamos/backend/internal/audit/repository"
	identityrepo "teamos/backend/internal/identity/repository"
	invitationrepo "teamos/backend/internal/invitation/repository"
	membershiprepo "teamos/backend/internal/membership/repository"
	organizationrepo "teamos/backend/internal/organization/repository"
	projectrepo "teamos/backend/internal/project/repository"
	sessionrepo "teamos/backend/internal/session/repository"
	userrepo "teamos/backend/internal/user/repository"
)

// Repos exposes every repository. Inside InTx the same accessors are bound to the transaction.
type Repos interface {
	Users() userrepo.Repository
	Identities() identityrepo.Repository
	Organizations() organizationrepo.Repository
	Memberships() membershiprepo.Repository
	Invitations() invitationrepo.Repository
	Sessions() sessionrepo.Repository
	AuditLogs() auditrepo.Repository
	Projects() projectrepo.Repository
}

// Store is Repos plus a transaction runner.
type Store interface {
	Repos
	// InTx runs fn in one transaction. fn returning an error rolls everything back and the error is returned as is.
	InTx(ctx context.Context, fn func(tx Repos) error) error
}
