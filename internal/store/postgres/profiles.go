package postgres

import (
	"context"
	"errors"

	"MentorMatchserver/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfilesStore struct {
	pool *pgxpool.Pool
}

func NewProfilesStore(pool *pgxpool.Pool) *ProfilesStore {
	return &ProfilesStore{pool: pool}
}

func (s *ProfilesStore) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	const q = `
		SELECT id, name, role, title, bio, updated_at
		FROM users
		WHERE id = $1
	`

	var (
		p      domain.Profile
		idUUID pgtype.UUID
		role   string
	)
	err := s.pool.QueryRow(ctx, q, userID).Scan(&idUUID, &p.Name, &role, &p.Title, &p.Bio, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Profile{}, domain.ErrNotFound
		}
		return domain.Profile{}, domain.Unavailable("get profile", err)
	}
	p.ID = uuidOrEmpty(idUUID)
	p.Role = domain.Role(role)

	if p.Skills, err = s.listEntries(ctx, "user_skills", userID); err != nil {
		return domain.Profile{}, err
	}
	if p.Interests, err = s.listEntries(ctx, "user_interests", userID); err != nil {
		return domain.Profile{}, err
	}

	rows, err := s.pool.Query(ctx, `SELECT slot FROM user_availability WHERE user_id = $1 ORDER BY position`, userID)
	if err != nil {
		return domain.Profile{}, domain.Unavailable("list availability", err)
	}
	p.Availability, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return domain.Profile{}, domain.Unavailable("list availability", err)
	}
	return p, nil
}

// table is one of the two fixed entry tables, never user input.
func (s *ProfilesStore) listEntries(ctx context.Context, table, userID string) ([]domain.ProfileEntry, error) {
	q := `SELECT name, level FROM ` + table + ` WHERE user_id = $1 ORDER BY position`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, domain.Unavailable("list "+table, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ProfileEntry, error) {
		var e domain.ProfileEntry
		err := row.Scan(&e.Name, &e.Level)
		return e, err
	})
	if err != nil {
		return nil, domain.Unavailable("list "+table, err)
	}
	return out, nil
}

// UpdateProfile rewrites the user row and all three lists in one transaction.
func (s *ProfilesStore) UpdateProfile(ctx context.Context, userID string, p domain.ProfileUpdate) error {
	uid, err := pgUUID(userID)
	if err != nil {
		return domain.ErrNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Unavailable("begin profile update", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const q = `
		UPDATE users
		SET name = $2, role = $3, title = $4, bio = $5, updated_at = now()
		WHERE id = $1
	`
	ct, err := tx.Exec(ctx, q, userID, p.Name, string(p.Role), p.Title, p.Bio)
	if err != nil {
		return domain.Unavailable("update profile", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	for _, table := range []string{"user_skills", "user_interests", "user_availability"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE user_id = $1`, userID); err != nil {
			return domain.Unavailable("clear "+table, err)
		}
	}

	if err := copyEntries(ctx, tx, "user_skills", uid, p.Skills); err != nil {
		return err
	}
	if err := copyEntries(ctx, tx, "user_interests", uid, p.Interests); err != nil {
		return err
	}
	if len(p.Availability) > 0 {
		rows := make([][]any, len(p.Availability))
		for i, slot := range p.Availability {
			rows[i] = []any{uid, int32(i), slot}
		}
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"user_availability"}, []string{"user_id", "position", "slot"}, pgx.CopyFromRows(rows))
		if err != nil {
			return domain.Unavailable("copy user_availability", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Unavailable("commit profile update", err)
	}
	return nil
}

func copyEntries(ctx context.Context, tx pgx.Tx, table string, userID pgtype.UUID, entries []domain.ProfileEntry) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{table},
		[]string{"user_id", "position", "name", "level"},
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			return []any{userID, int32(i), entries[i].Name, entries[i].Level}, nil
		}),
	)
	if err != nil {
		return domain.Unavailable("copy "+table, err)
	}
	return nil
}

// ListCandidates returns every other user with aggregated profile lists, in
// signup order.
func (s *ProfilesStore) ListCandidates(ctx context.Context, excludeUserID string) ([]domain.CandidateProfile, error) {
	const q = `
		SELECT
			u.id, u.name, u.role, u.title, u.bio,
			COALESCE((SELECT array_agg(s.name ORDER BY s.position) FROM user_skills s WHERE s.user_id = u.id), '{}'),
			COALESCE((SELECT array_agg(i.name ORDER BY i.position) FROM user_interests i WHERE i.user_id = u.id), '{}'),
			COALESCE((SELECT array_agg(a.slot ORDER BY a.position) FROM user_availability a WHERE a.user_id = u.id), '{}')
		FROM users u
		WHERE u.id <> $1
		ORDER BY u.created_at, u.id
	`

	rows, err := s.pool.Query(ctx, q, excludeUserID)
	if err != nil {
		return nil, domain.Unavailable("list candidates", err)
	}
	defer rows.Close()

	var out []domain.CandidateProfile
	for rows.Next() {
		var (
			c                             domain.CandidateProfile
			idUUID                        pgtype.UUID
			role                          string
			skills, interests, availSlots pgtype.FlatArray[string]
		)
		if err := rows.Scan(&idUUID, &c.Name, &role, &c.Title, &c.Bio, &skills, &interests, &availSlots); err != nil {
			return nil, domain.Unavailable("scan candidate", err)
		}
		c.ID = uuidOrEmpty(idUUID)
		c.Role = domain.Role(role)
		c.Skills = textArrayOrEmpty(skills)
		c.Interests = textArrayOrEmpty(interests)
		c.Availability = textArrayOrEmpty(availSlots)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("list candidates", err)
	}
	return out, nil
}
