package auth

import (
	"testing"
	"time"
)

func newTestService(ttl time.Duration) *Service {
	return NewService(nil, "marginfx-test", []byte("test-secret"), ttl)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestService(time.Hour)
	token, err := svc.signToken("user-1")
	if err != nil {
		t.Fatalf("signToken error: %v", err)
	}
	userID, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken error: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("subject got=%q want=%q", userID, "user-1")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	svc := newTestService(-time.Minute)
	token, err := svc.signToken("user-1")
	if err != nil {
		t.Fatalf("signToken error: %v", err)
	}
	if _, err := svc.ParseToken(token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := newTestService(time.Hour).signToken("user-1")
	if err != nil {
		t.Fatalf("signToken error: %v", err)
	}
	other := NewService(nil, "marginfx-test", []byte("other-secret"), time.Hour)
	if _, err := other.ParseToken(token); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestParseTokenRejectsWrongIssuer(t *testing.T) {
	token, err := NewService(nil, "someone-else", []byte("test-secret"), time.Hour).signToken("user-1")
	if err != nil {
		t.Fatalf("signToken error: %v", err)
	}
	if _, err := newTestService(time.Hour).ParseToken(token); err == nil {
		t.Fatal("expected error for wrong issuer")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	if _, err := newTestService(time.Hour).ParseToken("not-a-token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}
