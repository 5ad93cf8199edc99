package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Single-use token lifetimes.
const (
	EmailVerificationTTL = time.Hour
	PasswordResetTTL     = 10 * time.Minute
)

// SingleUseToken is a random value proving possession.  Raw goes to the
// user (by email); only Hash and Exp are persisted.
type SingleUseToken struct {
	Raw  string
	Hash string
	Exp  time.Time
}

// NewSingleUseToken returns 32 random bytes hex encoded, their SHA-256
// digest and an expiry ttl after now.
func NewSingleUseToken(ttl time.Duration, now time.Time) (SingleUseToken, error) {
	raw, err := randomHex(32)
	if err != nil {
		return SingleUseToken{}, err
	}
	return SingleUseToken{
		Raw:  raw,
		Hash: HashToken(raw),
		Exp:  now.UTC().Add(ttl),
	}, nil
}

// HashToken returns the SHA-256 hash of a raw token as a hex string.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
