package auth

import (
	"strings"
	"testing"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("hash: unexpected error: %v", err)
	}
	if hash == "password123" || strings.Contains(hash, "password123") {
		t.Fatal("hash must not contain the plaintext")
	}
	if !CheckPassword("password123", hash) {
		t.Fatal("expected the original plaintext to verify")
	}
	if CheckPassword("password124", hash) {
		t.Fatal("expected a different plaintext to fail")
	}
}

func TestHashPasswordSaltedPerCall(t *testing.T) {
	first, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("first hash: %v", err)
	}
	second, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("second hash: %v", err)
	}
	if first == second {
		t.Fatal("expected per-call salts to produce distinct hashes")
	}
	if !CheckPassword("password123", first) || !CheckPassword("password123", second) {
		t.Fatal("both hashes must verify the plaintext")
	}
}
