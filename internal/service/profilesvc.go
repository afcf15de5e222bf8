package service

import (
	"context"
	"strings"

	"MentorMatchserver/internal/domain"
)

type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
	UpdateProfile(ctx context.Context, userID string, p domain.ProfileUpdate) error
}

type ProfileService struct {
	Store ProfileStore
}

func (s *ProfileService) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	userID, err := parseID("user_id", userID)
	if err != nil {
		return domain.Profile{}, err
	}
	p, err := s.Store.GetProfile(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	if p.Skills == nil {
		p.Skills = []domain.ProfileEntry{}
	}
	if p.Interests == nil {
		p.Interests = []domain.ProfileEntry{}
	}
	if p.Availability == nil {
		p.Availability = []string{}
	}
	return p, nil
}

// UpdateProfile replaces the caller's profile, including all three lists.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, p domain.ProfileUpdate) error {
	fields := map[string]string{}

	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		fields["name"] = "required"
	} else if len(p.Name) > 80 {
		fields["name"] = "must be 80 characters or less"
	}
	role, ok := domain.ParseRole(string(p.Role))
	if !ok {
		fields["role"] = "must be mentor, mentee or both"
	}
	p.Role = role
	p.Title = strings.TrimSpace(p.Title)
	if len(p.Title) > 120 {
		fields["title"] = "must be 120 characters or less"
	}
	p.Bio = strings.TrimSpace(p.Bio)
	if len(p.Bio) > 2000 {
		fields["bio"] = "must be 2000 characters or less"
	}

	var bad bool
	p.Skills, bad = cleanEntries(p.Skills)
	if bad {
		fields["skills"] = "names must not contain commas"
	}
	p.Interests, bad = cleanEntries(p.Interests)
	if bad {
		fields["interests"] = "names must not contain commas"
	}
	p.Availability, bad = cleanSlots(p.Availability)
	if bad {
		fields["availability"] = "slots must not contain commas"
	}

	if len(fields) > 0 {
		return domain.NewValidationError(fields)
	}
	return s.Store.UpdateProfile(ctx, userID, p)
}

// Lists are matched as comma-joined aggregates, so commas inside a single
// entry are rejected.
func cleanEntries(in []domain.ProfileEntry) ([]domain.ProfileEntry, bool) {
	out := make([]domain.ProfileEntry, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, e := range in {
		e.Name = strings.TrimSpace(e.Name)
		e.Level = strings.TrimSpace(e.Level)
		if e.Name == "" {
			continue
		}
		if strings.Contains(e.Name, ",") {
			return nil, true
		}
		key := strings.ToLower(e.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out, false
}

func cleanSlots(in []string) ([]string, bool) {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToLower(s)] {
			continue
		}
		if strings.Contains(s, ",") {
			return nil, true
		}
		seen[strings.ToLower(s)] = true
		out = append(out, s)
	}
	return out, false
}
