package postgres

import (
	"context"
	"errors"

	"MentorMatchserver/internal/domain"

	"github.com/jackc/pgx/v5"
)

func (s *UsersStore) GetUserByExternalAccount(ctx context.Context, provider, providerID string) (domain.User, error) {
	const q = `
		SELECT u.id, u.email, u.name, u.role, u.title, u.bio, u.created_at, u.updated_at
		FROM external_accounts ea
		JOIN users u ON u.id = ea.user_id
		WHERE ea.provider = $1 AND ea.provider_id = $2
	`

	u, err := scanUser(s.pool.QueryRow(ctx, q, provider, providerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, domain.Unavailable("get user by external account", err)
	}
	return u, nil
}

// CreateUserWithExternalAccount inserts the user and its provider link in one
// transaction.
func (s *UsersStore) CreateUserWithExternalAccount(ctx context.Context, acct domain.ExternalAccount, name string, role domain.Role, passwordHash string) (domain.User, error) {
	const insertUser = `
		INSERT INTO users (email, name, role, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns
	const insertAccount = `
		INSERT INTO external_accounts (user_id, provider, provider_id, email)
		VALUES ($1, $2, $3, $4)
	`

	var u domain.User
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		u, err = scanUser(tx.QueryRow(ctx, insertUser, acct.Email, name, string(role), passwordHash))
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, insertAccount, u.ID, acct.Provider, acct.ProviderID, acct.Email)
		return err
	})
	if err != nil {
		return domain.User{}, storeError("create user with external account", err)
	}
	return u, nil
}

func (s *UsersStore) LinkExternalAccount(ctx context.Context, acct domain.ExternalAccount) error {
	const q = `
		INSERT INTO external_accounts (user_id, provider, provider_id, email)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := s.pool.Exec(ctx, q, acct.UserID, acct.Provider, acct.ProviderID, acct.Email); err != nil {
		return storeError("link external account", err)
	}
	return nil
}
