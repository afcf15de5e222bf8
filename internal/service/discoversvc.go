package service

import (
	"context"
	"strings"

	"MentorMatchserver/internal/domain"
)

type CandidatesStore interface {
	// ListCandidates returns every user except excludeUserID in storage order.
	ListCandidates(ctx context.Context, excludeUserID string) ([]domain.CandidateProfile, error)
}

type DiscoverService struct {
	Candidates CandidatesStore
	Ledger     *LedgerService
}

// ParseCriteria normalizes raw query values. "all" and "any" are the
// unfiltered choices offered by the discovery page.
func ParseCriteria(role, skills, availability string) (domain.DiscoverCriteria, error) {
	var c domain.DiscoverCriteria

	role = strings.TrimSpace(role)
	if role != "" && !strings.EqualFold(role, "all") {
		r, ok := domain.ParseRole(role)
		if !ok {
			return domain.DiscoverCriteria{}, domain.NewValidationError(map[string]string{"role": "must be mentor, mentee or both"})
		}
		c.Role = r
	}

	c.Skills = strings.TrimSpace(skills)

	availability = strings.TrimSpace(availability)
	if !strings.EqualFold(availability, "any") {
		c.Availability = availability
	}
	return c, nil
}

func (s *DiscoverService) FindCandidates(ctx context.Context, viewerID string, c domain.DiscoverCriteria) ([]domain.Candidate, error) {
	all, err := s.Candidates.ListCandidates(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	terms := skillTerms(c.Skills)
	slot := strings.ToLower(strings.TrimSpace(c.Availability))

	matched := make([]domain.CandidateProfile, 0, len(all))
	for _, p := range all {
		if p.ID == viewerID {
			continue
		}
		if !matchesRole(p.Role, c.Role) {
			continue
		}
		if len(terms) > 0 && !matchesAnyTerm(terms, aggregate(p.Skills), aggregate(p.Interests)) {
			continue
		}
		if slot != "" && !strings.Contains(aggregate(p.Availability), slot) {
			continue
		}
		matched = append(matched, p)
	}

	out := make([]domain.Candidate, 0, len(matched))
	if len(matched) == 0 {
		return out, nil
	}

	ids := make([]string, len(matched))
	for i, p := range matched {
		ids[i] = p.ID
	}
	statuses, err := s.Ledger.RelationshipStatuses(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	for _, p := range matched {
		out = append(out, domain.Candidate{
			ProfileSummary:     p.ProfileSummary,
			Skills:             nonNil(p.Skills),
			Interests:          nonNil(p.Interests),
			Availability:       nonNil(p.Availability),
			RelationshipStatus: statuses[p.ID],
		})
	}
	return out, nil
}

func matchesRole(candidate, filter domain.Role) bool {
	if filter == "" {
		return true
	}
	return candidate == filter || candidate == domain.RoleBoth
}

func skillTerms(raw string) []string {
	var terms []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func matchesAnyTerm(terms []string, haystacks ...string) bool {
	for _, t := range terms {
		for _, h := range haystacks {
			if strings.Contains(h, t) {
				return true
			}
		}
	}
	return false
}

// aggregate lowercases and joins a profile list the way it is matched.
func aggregate(items []string) string {
	return strings.ToLower(strings.Join(items, ","))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
