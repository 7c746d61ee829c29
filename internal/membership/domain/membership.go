package domain

import (
	"time"
)

// Membership links a user to an organization with a role. Unique per (UserID, OrgID).
type Membership struct {
	ID        string
	UserID    string
	OrgID     string
	Role      Role
	CreatedAt time.Time
}

// Role is the wire and storage representation of a membership role.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// AllRoles lists every valid role from highest to lowest rank.
var AllRoles = []Role{RoleOwner, RoleAdmin, RoleMember}

// Member is a membership joined with the user it belongs to, for listing.
type Member struct {
	Membership
	Email string
	Name  string
}

// OrgMembership is a membership joined with its organization, for the organization switcher.
type OrgMembership struct {
	Membership
	OrgName string
	OrgSlug string
}
