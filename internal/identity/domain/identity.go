package domain

import "time"

// IdentityProvider names where a credential comes from. Only local passwords exist today.
type IdentityProvider string

const IdentityProviderLocal IdentityProvider = "local"

// Identity is a user's credential for a provider. Invited users get theirs when they accept;
// until then they exist as users without one.
type Identity struct {
	ID           string
	UserID       string
	Provider     IdentityProvider
	ProviderID   string // normalized email for local identities
	PasswordHash string
	CreatedAt    time.Time
}

// HasPassword reports whether the identity can be used for password login.
func (i *Identity) HasPassword() bool {
	return i != nil && i.PasswordHash != ""
}
