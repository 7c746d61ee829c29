package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// User is the core user entity. Users are never deleted.
type User struct {
	ID        string
	Email     string // normalized: trimmed, lowercase
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if len(u.Name) > 50 {
		return errors.New("name must be less than 50 characters")
	}
	return nil
}

// DisplayName returns the name when set, otherwise the email.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// NormalizeEmail trims and lowercases an address. Every lookup and write keys users and
// invitations by the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the shape of a normalized address.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}
