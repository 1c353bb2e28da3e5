package auth

import (
	"testing"
	"time"
)

func TestNewResetToken(t *testing.T) {
	now := time.Now()
	plaintext, verifier, expires, err := NewResetToken(now)
	if err != nil {
		t.Fatalf("issue: unexpected error: %v", err)
	}
	if plaintext == "" || verifier == "" {
		t.Fatal("expected non-empty plaintext and verifier")
	}
	if plaintext == verifier {
		t.Fatal("verifier must not equal the plaintext")
	}
	if got, want := expires, now.Add(10*time.Minute); !got.Equal(want) {
		t.Fatalf("expected expiry %v got %v", want, got)
	}
	if HashResetToken(plaintext) != verifier {
		t.Fatal("verifier must be the derivation of the plaintext")
	}
}

func TestNewResetTokenUniquePerCall(t *testing.T) {
	now := time.Now()
	first, _, _, err := NewResetToken(now)
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	second, _, _, err := NewResetToken(now)
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct tokens per issue")
	}
}

func TestMatchResetTokenExpiryBoundary(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	plaintext, verifier, expires, err := NewResetToken(issued)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	justBefore := issued.Add(10*time.Minute - time.Second)
	if !MatchResetToken(plaintext, verifier, expires, justBefore) {
		t.Fatal("token must match one second before expiry")
	}

	justAfter := issued.Add(10*time.Minute + time.Second)
	if MatchResetToken(plaintext, verifier, expires, justAfter) {
		t.Fatal("token must not match one second after expiry")
	}

	// Expiry itself is exclusive: at exactly T+10:00 the token is spent.
	if MatchResetToken(plaintext, verifier, expires, expires) {
		t.Fatal("token must not match exactly at expiry")
	}
}

func TestMatchResetTokenRejections(t *testing.T) {
	now := time.Now()
	plaintext, verifier, expires, err := NewResetToken(now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if MatchResetToken("not-the-token", verifier, expires, now) {
		t.Fatal("wrong plaintext must not match")
	}
	if MatchResetToken(plaintext, "", expires, now) {
		t.Fatal("missing verifier must never match")
	}
}
