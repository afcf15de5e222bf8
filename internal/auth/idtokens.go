package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendrickPhan/go-verify-apple-id-token/validator"
	"google.golang.org/api/idtoken"
)

const (
	ProviderGoogle = "google"
	ProviderApple  = "apple"
)

// ExternalTokenClaims is the part of a provider id token the server keeps.
type ExternalTokenClaims struct {
	Issuer  string
	Subject string
	Email   string
	Name    string
}

// IDTokenVerifier checks a provider id token against the expected audience.
type IDTokenVerifier func(ctx context.Context, token, audience string) (*ExternalTokenClaims, error)

func VerifyGoogleIDToken(ctx context.Context, token, audience string) (*ExternalTokenClaims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("missing id token")
	}
	if strings.TrimSpace(audience) == "" {
		return nil, errors.New("missing google client id")
	}

	payload, err := idtoken.Validate(ctx, token, audience)
	if err != nil {
		return nil, err
	}
	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return nil, fmt.Errorf("unexpected issuer: %s", payload.Issuer)
	}

	return &ExternalTokenClaims{
		Issuer:  payload.Issuer,
		Subject: payload.Subject,
		Email:   strings.ToLower(strings.TrimSpace(claimString(payload.Claims, "email"))),
		Name:    strings.TrimSpace(claimString(payload.Claims, "name")),
	}, nil
}

// VerifyAppleIDToken fetches Apple's signing keys on every call; the
// validator client has no context support.
func VerifyAppleIDToken(_ context.Context, token, audience string) (*ExternalTokenClaims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("missing id token")
	}
	if strings.TrimSpace(audience) == "" {
		return nil, errors.New("missing apple service id")
	}

	client := validator.NewClient()
	tok, err := client.VerifyIdToken(audience, token)
	if err != nil {
		return nil, err
	}
	if tok.Iss != "https://appleid.apple.com" {
		return nil, fmt.Errorf("unexpected issuer: %s", tok.Iss)
	}

	return &ExternalTokenClaims{
		Issuer:  tok.Iss,
		Subject: tok.Sub,
		Email:   strings.ToLower(strings.TrimSpace(tok.Email)),
	}, nil
}

func claimString(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
