package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ResetTokenTTL bounds how long a password-reset token stays usable.
const ResetTokenTTL = 10 * time.Minute

// NewResetToken draws a random bearer token. The plaintext is delivered to
// the user exactly once and never persisted; only the verifier is stored,
// paired with the expiry.
func NewResetToken(now time.Time) (plaintext, verifier string, expires time.Time, err error) {
	raw := make([]byte, 32)
	if _, err = rand.Read(raw); err != nil {
		return "", "", time.Time{}, err
	}
	plaintext = hex.EncodeToString(raw)
	return plaintext, HashResetToken(plaintext), now.Add(ResetTokenTTL), nil
}

// HashResetToken derives the stored verifier from a token plaintext. The
// derivation is deterministic and unsalted so the server can look records up
// by verifier; pre-image resistance comes from sha256 and the 256-bit input.
func HashResetToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// MatchResetToken reports whether a submitted plaintext matches the stored
// verifier and the expiry is still in the future. A missing verifier never
// matches.
func MatchResetToken(plaintext, verifier string, expires, now time.Time) bool {
	if verifier == "" || !expires.After(now) {
		return false
	}
	return HashResetToken(plaintext) == verifier
}
