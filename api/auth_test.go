package api

import (
	"strings"
	"testing"
	"time"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	auth := NewAuth([]byte("secret"), time.Hour)
	token, err := auth.Issue("a@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	email, err := auth.UserIDFromAuthHeader("Bearer " + token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if email != "a@example.com" {
		t.Fatalf("expected a@example.com, got %s", email)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	auth := NewAuth([]byte("secret"), -time.Hour)
	// NewAuth clamps non-positive TTLs, so craft expiry through a short-lived one.
	short := &Auth{secret: []byte("secret"), ttl: time.Millisecond}
	token, err := short.Issue("a@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := auth.Verify(token); err == nil {
		t.Fatal("expected expired token error")
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewAuth([]byte("secret"), time.Hour)
	verifier := NewAuth([]byte("other"), time.Hour)
	token, err := issuer.Issue("a@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestUserIDFromAuthHeaderRejectsGarbage(t *testing.T) {
	auth := NewAuth([]byte("secret"), time.Hour)
	cases := []string{
		"",
		"Bearer",
		"Basic abc.def.ghi",
		"Bearer " + strings.Repeat(".", 10000),
		"Bearer notatoken",
	}
	for _, h := range cases {
		if _, err := auth.UserIDFromAuthHeader(h); err == nil {
			t.Fatalf("expected error for header %q", h)
		}
	}
}
