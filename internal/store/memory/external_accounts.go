package memory

import (
	"context"
	"strings"

	"MentorMatchserver/internal/domain"
)

func (s *Store) GetUserByExternalAccount(ctx context.Context, provider, providerID string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.external {
		if a.Provider == provider && a.ProviderID == providerID {
			if row, ok := s.byID[a.UserID]; ok {
				return row.User, nil
			}
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (s *Store) CreateUserWithExternalAccount(ctx context.Context, acct domain.ExternalAccount, name string, role domain.Role, passwordHash string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.externalTaken(acct) {
		return domain.User{}, domain.ErrExternalAccountExists
	}
	u, err := s.insertUserLocked(acct.Email, name, role, passwordHash)
	if err != nil {
		return domain.User{}, err
	}
	acct.UserID = u.ID
	acct.CreatedAt = u.CreatedAt
	s.external = append(s.external, acct)
	return u, nil
}

func (s *Store) LinkExternalAccount(ctx context.Context, acct domain.ExternalAccount) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[acct.UserID]; !ok {
		return domain.ErrNotFound
	}
	if s.externalTaken(acct) {
		return domain.ErrExternalAccountExists
	}
	acct.Email = strings.ToLower(acct.Email)
	acct.CreatedAt = s.now().UTC()
	s.external = append(s.external, acct)
	return nil
}

// externalTaken reports whether the provider identity is linked anywhere, or
// the user already has a link for that provider.
func (s *Store) externalTaken(acct domain.ExternalAccount) bool {
	for _, a := range s.external {
		if a.Provider != acct.Provider {
			continue
		}
		if a.ProviderID == acct.ProviderID || (acct.UserID != "" && a.UserID == acct.UserID) {
			return true
		}
	}
	return false
}
