package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenCodec_IssueAndVerify(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	codec := NewTokenCodec([]byte(strings.Repeat("k", 32)), time.Hour)

	tok, expiresAt, err := codec.Issue("user-1", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !expiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry: %s", expiresAt)
	}

	id, err := codec.Verify(tok, now.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id != "user-1" {
		t.Fatalf("unexpected subject: %s", id)
	}
}

func TestTokenCodec_RejectsExpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	codec := NewTokenCodec([]byte(strings.Repeat("k", 32)), time.Hour)

	tok, _, err := codec.Issue("user-1", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := codec.Verify(tok, now.Add(2*time.Hour)); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenCodec_RejectsOtherSecret(t *testing.T) {
	now := time.Now()
	a := NewTokenCodec([]byte(strings.Repeat("a", 32)), time.Hour)
	b := NewTokenCodec([]byte(strings.Repeat("b", 32)), time.Hour)

	tok, _, err := a.Issue("user-1", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := b.Verify(tok, now); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := a.Verify(tok+"x", now); err != ErrInvalidToken {
		t.Fatalf("expected tampered token to fail")
	}
}

func TestTokenCodec_RejectsNoneAlgorithm(t *testing.T) {
	now := time.Now()
	codec := NewTokenCodec([]byte(strings.Repeat("k", 32)), time.Hour)

	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := codec.Verify(tok, now); err != ErrInvalidToken {
		t.Fatalf("expected none-signed token to fail")
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer  abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := BearerToken(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("BearerToken(%q) = %q, %v", tc.in, got, ok)
		}
	}
}
