package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// InviteTokenBytes is the entropy of an invitation token (256 bits).
const InviteTokenBytes = 32

// GenerateInviteToken returns a random hex token and its SHA-256 hash. Only the hash may be stored;
// the raw token goes into the invitation URL and nowhere else.
func GenerateInviteToken() (raw, hash string, err error) {
	b := make([]byte, InviteTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	return raw, HashInviteToken(raw), nil
}

// HashInviteToken returns the hex-encoded SHA-256 of the raw token, the lookup key for invitations.
func HashInviteToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// InviteTokenHashEqual performs constant-time comparison of the provided token's hash
// with the stored hash.
func InviteTokenHashEqual(providedToken, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashInviteToken(providedToken)), []byte(storedHash)) == 1
}
