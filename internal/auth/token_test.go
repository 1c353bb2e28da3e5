package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenIssueVerify(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")

	token, err := issuer.Issue("64f1c0ffee", "Client")
	if err != nil {
		t.Fatalf("issue: unexpected error: %v", err)
	}

	subject, role, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: unexpected error: %v", err)
	}
	if subject != "64f1c0ffee" {
		t.Fatalf("expected subject %q got %q", "64f1c0ffee", subject)
	}
	if role != "Client" {
		t.Fatalf("expected role %q got %q", "Client", role)
	}
}

func TestTokenVerifyWrongSecret(t *testing.T) {
	token, err := NewTokenIssuer("secret-a").Issue("abc", "Supplier")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, _, err = NewTokenIssuer("secret-b").Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenVerifyTampered(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")
	token, err := issuer.Issue("abc", "Supplier")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, _, err := issuer.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	if _, _, err := issuer.Verify("not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestTokenVerifyExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")
	issuer.ttl = -time.Minute

	token, err := issuer.Issue("abc", "Client")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}
