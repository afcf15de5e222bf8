package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"MentorMatchserver/internal/auth"
	"MentorMatchserver/internal/domain"
)

type UsersStore interface {
	CreateUser(ctx context.Context, email, name string, role domain.Role, passwordHash string) (domain.User, error)
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error)
	GetUserByExternalAccount(ctx context.Context, provider, providerID string) (domain.User, error)
	CreateUserWithExternalAccount(ctx context.Context, acct domain.ExternalAccount, name string, role domain.Role, passwordHash string) (domain.User, error)
	LinkExternalAccount(ctx context.Context, acct domain.ExternalAccount) error
}

type IssuedToken struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthService is the reference identity provider: it turns credentials into
// bearer tokens and bearer tokens back into users.
type AuthService struct {
	Users  UsersStore
	Tokens *auth.TokenCodec
	Now    func() time.Time

	GoogleClientID      string
	VerifyGoogleIDToken auth.IDTokenVerifier
	AppleServiceID      string
	VerifyAppleIDToken  auth.IDTokenVerifier
}

func (s *AuthService) Register(ctx context.Context, email, password, name, role string) (domain.User, IssuedToken, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)

	fields := map[string]string{}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		fields["email"] = "must be a valid email address"
	}
	if len(password) < 8 {
		fields["password"] = "must be at least 8 characters"
	}
	if name == "" {
		fields["name"] = "required"
	}
	r, ok := domain.ParseRole(role)
	if !ok {
		fields["role"] = "must be mentor, mentee or both"
	}
	if len(fields) > 0 {
		return domain.User{}, IssuedToken{}, domain.NewValidationError(fields)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, IssuedToken{}, err
	}

	u, err := s.Users.CreateUser(ctx, email, name, r, hash)
	if err != nil {
		return domain.User{}, IssuedToken{}, err
	}

	tok, err := s.issue(u.ID)
	if err != nil {
		return domain.User{}, IssuedToken{}, err
	}
	return u, tok, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, IssuedToken, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	u, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, IssuedToken{}, domain.ErrInvalidCredentials
		}
		return domain.User{}, IssuedToken{}, err
	}

	ok, err := auth.VerifyPassword(u.PasswordHash, password)
	if err != nil {
		return domain.User{}, IssuedToken{}, err
	}
	if !ok {
		return domain.User{}, IssuedToken{}, domain.ErrInvalidCredentials
	}

	tok, err := s.issue(u.ID)
	if err != nil {
		return domain.User{}, IssuedToken{}, err
	}
	return u.User, tok, nil
}

func (s *AuthService) GoogleEnabled() bool {
	return s.GoogleClientID != "" && s.VerifyGoogleIDToken != nil
}

func (s *AuthService) AppleEnabled() bool {
	return s.AppleServiceID != "" && s.VerifyAppleIDToken != nil
}

// LoginWithGoogle signs in with a Google id token. role is only used when the
// sign-in creates a new user and defaults to mentee.
func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken, role string) (domain.User, IssuedToken, error) {
	return s.loginExternal(ctx, auth.ProviderGoogle, s.GoogleClientID, s.VerifyGoogleIDToken, idToken, role)
}

func (s *AuthService) LoginWithApple(ctx context.Context, idToken, role string) (domain.User, IssuedToken, error) {
	return s.loginExternal(ctx, auth.ProviderApple, s.AppleServiceID, s.VerifyAppleIDToken, idToken, role)
}

// loginExternal resolves a provider identity to a user. A known identity logs
// in directly; an unknown one is linked to the user owning the same email, or
// creates a new user when nobody does.
func (s *AuthService) loginExternal(ctx context.Context, provider, audience string, verify auth.IDTokenVerifier, idToken, role string) (domain.User, IssuedToken, error) {
	if verify == nil || audience == "" {
		return domain.User{}, IssuedToken{}, domain.ErrInvalidCredentials
	}
	claims, err := verify(ctx, idToken, audience)
	if err != nil || claims == nil || claims.Subject == "" {
		return domain.User{}, IssuedToken{}, domain.ErrInvalidCredentials
	}

	u, err := s.Users.GetUserByExternalAccount(ctx, provider, claims.Subject)
	if err == nil {
		tok, err := s.issue(u.ID)
		return u, tok, err
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, IssuedToken{}, err
	}

	email := strings.TrimSpace(strings.ToLower(claims.Email))
	if email == "" {
		return domain.User{}, IssuedToken{}, domain.NewValidationError(map[string]string{"email": "provider did not share an email address"})
	}
	acct := domain.ExternalAccount{Provider: provider, ProviderID: claims.Subject, Email: email}

	existing, err := s.Users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		acct.UserID = existing.ID
		if err := s.Users.LinkExternalAccount(ctx, acct); err != nil {
			return domain.User{}, IssuedToken{}, err
		}
		u = existing.User
	case errors.Is(err, domain.ErrNotFound):
		u, err = s.createExternalUser(ctx, acct, claims.Name, role)
		if err != nil {
			return domain.User{}, IssuedToken{}, err
		}
	default:
		return domain.User{}, IssuedToken{}, err
	}

	tok, err := s.issue(u.ID)
	if err != nil {
		return domain.User{}, IssuedToken{}, err
	}
	return u, tok, nil
}

func (s *AuthService) createExternalUser(ctx context.Context, acct domain.ExternalAccount, name, role string) (domain.User, error) {
	r := domain.RoleMentee
	if strings.TrimSpace(role) != "" {
		var ok bool
		if r, ok = domain.ParseRole(role); !ok {
			return domain.User{}, domain.NewValidationError(map[string]string{"role": "must be mentor, mentee or both"})
		}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name, _, _ = strings.Cut(acct.Email, "@")
	}

	password, err := auth.RandomPassword()
	if err != nil {
		return domain.User{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}
	return s.Users.CreateUserWithExternalAccount(ctx, acct, name, r, hash)
}

// Authenticate resolves a bearer token to a user that still exists.
func (s *AuthService) Authenticate(ctx context.Context, bearer string) (domain.User, error) {
	userID, err := s.Tokens.Verify(bearer, s.now())
	if err != nil {
		return domain.User{}, domain.ErrUnauthorized
	}

	u, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}
	return u, nil
}

func (s *AuthService) issue(userID string) (IssuedToken, error) {
	tok, expiresAt, err := s.Tokens.Issue(userID, s.now())
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: tok, UserID: userID, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
