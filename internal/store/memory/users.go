package memory

import (
	"context"
	"strings"

	"MentorMatchserver/internal/domain"

	"github.com/google/uuid"
)

func (s *Store) CreateUser(ctx context.Context, email, name string, role domain.Role, passwordHash string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertUserLocked(email, name, role, passwordHash)
}

func (s *Store) insertUserLocked(email, name string, role domain.Role, passwordHash string) (domain.User, error) {
	key := strings.ToLower(email)
	if _, ok := s.byEmail[key]; ok {
		return domain.User{}, domain.ErrEmailTaken
	}

	now := s.now().UTC()
	row := &userRow{UserWithPassword: domain.UserWithPassword{
		User: domain.User{
			ID:        uuid.NewString(),
			Email:     key,
			Name:      name,
			Role:      role,
			CreatedAt: now,
			UpdatedAt: now,
		},
		PasswordHash: passwordHash,
	}}
	s.users = append(s.users, row)
	s.byID[row.ID] = row
	s.byEmail[key] = row
	return row.User, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.byID[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return row.User, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error) {
	if err := ctx.Err(); err != nil {
		return domain.UserWithPassword{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return domain.UserWithPassword{}, domain.ErrNotFound
	}
	return row.UserWithPassword, nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return domain.Profile{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.byID[userID]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	return domain.Profile{
		ProfileSummary: row.Summary(),
		Skills:         append([]domain.ProfileEntry(nil), row.skills...),
		Interests:      append([]domain.ProfileEntry(nil), row.interests...),
		Availability:   append([]string(nil), row.availability...),
		UpdatedAt:      row.UpdatedAt,
	}, nil
}

func (s *Store) UpdateProfile(ctx context.Context, userID string, p domain.ProfileUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	row.Name = p.Name
	row.Role = p.Role
	row.Title = p.Title
	row.Bio = p.Bio
	row.skills = append([]domain.ProfileEntry(nil), p.Skills...)
	row.interests = append([]domain.ProfileEntry(nil), p.Interests...)
	row.availability = append([]string(nil), p.Availability...)
	row.UpdatedAt = s.now().UTC()
	return nil
}

func (s *Store) ListCandidates(ctx context.Context, excludeUserID string) ([]domain.CandidateProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CandidateProfile, 0, len(s.users))
	for _, row := range s.users {
		if row.ID == excludeUserID {
			continue
		}
		out = append(out, domain.CandidateProfile{
			ProfileSummary: row.Summary(),
			Skills:         entryNames(row.skills),
			Interests:      entryNames(row.interests),
			Availability:   append([]string(nil), row.availability...),
		})
	}
	return out, nil
}

func entryNames(entries []domain.ProfileEntry) []string {
	if len(entries) == 0 {
		return nil
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}
