package auth

import (
	"strings"
	"testing"
	"time"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	ts := NewTokenService([]byte("test-secret"), 7*24*time.Hour)

	token, expiresAt, err := ts.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	remaining := time.Until(expiresAt)
	if remaining < 6*24*time.Hour || remaining > 7*24*time.Hour {
		t.Errorf("expected ~7 day validity, got %v", remaining)
	}

	claims, err := ts.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "admin" {
		t.Errorf("expected subject admin, got %q", claims.Subject)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	ts := NewTokenService([]byte("secret-a"), time.Hour)
	other := NewTokenService([]byte("secret-b"), time.Hour)

	token, _, err := ts.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := other.Verify(token); err == nil {
		t.Fatal("expected verification failure with wrong secret")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	ts := NewTokenService([]byte("secret"), -time.Minute)

	token, _, err := ts.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := ts.Verify(token); err == nil {
		t.Fatal("expected verification failure for expired token")
	}
}

func TestVerifyRejectsTampered(t *testing.T) {
	ts := NewTokenService([]byte("secret"), time.Hour)

	token, _, err := ts.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tampered := strings.TrimSuffix(token, token[len(token)-2:]) + "xx"
	if _, err := ts.Verify(tampered); err == nil {
		t.Fatal("expected verification failure for tampered token")
	}
}
