package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Org represents an organization/tenant.
type Org struct {
	ID        string
	Slug      string
	Name      string
	CreatedAt time.Time
}

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Validate validates the organization for persistence. Returns an error describing the first validation failure.
func (o *Org) Validate() error {
	if n := len([]rune(o.Name)); n < 2 || n > 100 {
		return errors.New("organization name must be between 2 and 100 characters")
	}
	return ValidateSlug(o.Slug)
}

// ValidateSlug checks length (3..50) and the lowercase/digit/hyphen alphabet.
func ValidateSlug(slug string) error {
	if len(slug) < 3 || len(slug) > 50 {
		return errors.New("slug must be between 3 and 50 characters")
	}
	if !slugPattern.MatchString(slug) {
		return errors.New("slug can only contain lowercase letters, numbers, and hyphens")
	}
	return nil
}

var (
	slugStrip  = regexp.MustCompile(`[^a-z0-9\s_-]`)
	slugSpaces = regexp.MustCompile(`[\s_-]+`)
)

// Slugify turns free text into a URL-safe slug: accents are folded ("Café" -> "cafe"), other
// symbols dropped, and runs of whitespace, underscores and hyphens become a single hyphen.
// The result may still fail ValidateSlug (e.g. too short).
func Slugify(text string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), text)
	if err != nil {
		folded = text
	}
	s := strings.ToLower(strings.TrimSpace(folded))
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
