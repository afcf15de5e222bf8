package postgres

import (
	"context"
	"time"

	"MentorMatchserver/internal/domain"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationTokensStore struct {
	pool *pgxpool.Pool
}

func NewNotificationTokensStore(pool *pgxpool.Pool) *NotificationTokensStore {
	return &NotificationTokensStore{pool: pool}
}

func (s *NotificationTokensStore) UpsertToken(ctx context.Context, userID, token string, platform domain.Platform, when time.Time) (domain.NotificationToken, error) {
	const q = `
		INSERT INTO notification_tokens (user_id, token, platform, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (token)
		DO UPDATE SET
			user_id = EXCLUDED.user_id,
			platform = EXCLUDED.platform,
			updated_at = EXCLUDED.updated_at
		RETURNING id, user_id, token, platform, created_at, updated_at
	`

	var (
		t        domain.NotificationToken
		idUUID   pgtype.UUID
		userUUID pgtype.UUID
		plat     string
	)
	err := s.pool.QueryRow(ctx, q, userID, token, string(platform), when).Scan(
		&idUUID,
		&userUUID,
		&t.Token,
		&plat,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return domain.NotificationToken{}, domain.Unavailable("upsert notification token", err)
	}

	t.ID = uuidOrEmpty(idUUID)
	t.UserID = uuidOrEmpty(userUUID)
	t.Platform = domain.Platform(plat)
	return t, nil
}

func (s *NotificationTokensStore) DeleteToken(ctx context.Context, userID, token string) error {
	const q = `
		DELETE FROM notification_tokens
		WHERE user_id = $1 AND token = $2
	`
	if _, err := s.pool.Exec(ctx, q, userID, token); err != nil {
		return domain.Unavailable("delete notification token", err)
	}
	return nil
}

func (s *NotificationTokensStore) ListTokens(ctx context.Context, userID string) ([]domain.NotificationToken, error) {
	const q = `
		SELECT id, user_id, token, platform, created_at, updated_at
		FROM notification_tokens
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, domain.Unavailable("list notification tokens", err)
	}
	defer rows.Close()

	var out []domain.NotificationToken
	for rows.Next() {
		var (
			t        domain.NotificationToken
			idUUID   pgtype.UUID
			userUUID pgtype.UUID
			plat     string
		)
		if err := rows.Scan(&idUUID, &userUUID, &t.Token, &plat, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, domain.Unavailable("scan notification token", err)
		}
		t.ID = uuidOrEmpty(idUUID)
		t.UserID = uuidOrEmpty(userUUID)
		t.Platform = domain.Platform(plat)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("list notification tokens", err)
	}
	return out, nil
}
