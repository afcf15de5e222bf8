package postgres

import (
	"context"
	"errors"
	"fmt"

	"MentorMatchserver/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersStore struct {
	pool *pgxpool.Pool
}

func NewUsersStore(pool *pgxpool.Pool) *UsersStore {
	return &UsersStore{pool: pool}
}

const userColumns = `id, email, name, role, title, bio, created_at, updated_at`

func (s *UsersStore) CreateUser(ctx context.Context, email, name string, role domain.Role, passwordHash string) (domain.User, error) {
	const q = `
		INSERT INTO users (email, name, role, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	u, err := scanUser(s.pool.QueryRow(ctx, q, email, name, string(role), passwordHash))
	if err != nil {
		if name, ok := uniqueViolation(err); ok && name == "users_email_uq" {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, domain.Unavailable("create user", err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, domain.Unavailable("get user by id", err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error) {
	const q = `
		SELECT id, email, name, role, title, bio, created_at, updated_at, password_hash
		FROM users
		WHERE lower(email) = lower($1)
		LIMIT 1
	`

	var (
		u      domain.UserWithPassword
		idUUID pgtype.UUID
		role   string
	)
	err := s.pool.QueryRow(ctx, q, email).Scan(
		&idUUID,
		&u.Email,
		&u.Name,
		&role,
		&u.Title,
		&u.Bio,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.PasswordHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		}
		return domain.UserWithPassword{}, domain.Unavailable("get user by email", err)
	}

	u.ID = uuidOrEmpty(idUUID)
	u.Role = domain.Role(role)
	return u, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u      domain.User
		idUUID pgtype.UUID
		role   string
	)
	if err := row.Scan(&idUUID, &u.Email, &u.Name, &role, &u.Title, &u.Bio, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return domain.User{}, err
	}
	u.ID = uuidOrEmpty(idUUID)
	u.Role = domain.Role(role)
	return u, nil
}

// Ping backs the health check.
func (s *UsersStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}
