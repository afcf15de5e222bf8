package memory

import (
	"context"
	"time"

	"MentorMatchserver/internal/domain"

	"github.com/google/uuid"
)

// UpsertToken registers token for userID. A token belongs to one user at a
// time; registering it again moves it.
func (s *Store) UpsertToken(ctx context.Context, userID, token string, platform domain.Platform, when time.Time) (domain.NotificationToken, error) {
	if err := ctx.Err(); err != nil {
		return domain.NotificationToken{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.tokens {
		if t.Token != token {
			continue
		}
		t.UserID = userID
		t.Platform = platform
		t.UpdatedAt = when
		s.tokens[i] = t
		return t, nil
	}

	t := domain.NotificationToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		Platform:  platform,
		CreatedAt: when,
		UpdatedAt: when,
	}
	s.tokens = append(s.tokens, t)
	return t, nil
}

func (s *Store) DeleteToken(ctx context.Context, userID, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.tokens {
		if t.UserID == userID && t.Token == token {
			s.tokens = append(s.tokens[:i:i], s.tokens[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) ListTokens(ctx context.Context, userID string) ([]domain.NotificationToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.NotificationToken
	for _, t := range s.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}
