package httpapi

import (
	"net/http"

	"MentorMatchserver/internal/domain"
)

type profileUpdateRequest struct {
	Name         string                `json:"name"`
	Role         string                `json:"role"`
	Title        string                `json:"title"`
	Bio          string                `json:"bio"`
	Skills       []domain.ProfileEntry `json:"skills"`
	Interests    []domain.ProfileEntry `json:"interests"`
	Availability []string              `json:"availability"`
}

func (a *api) handleProfileGet(w http.ResponseWriter, r *http.Request) {
	if _, ok := CurrentUser(r.Context()); !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	id, err := pathID(r, "userId")
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	p, err := a.profileSvc.GetProfile(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

func (a *api) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req profileUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}

	err := a.profileSvc.UpdateProfile(r.Context(), u.ID, domain.ProfileUpdate{
		Name:         req.Name,
		Role:         domain.Role(req.Role),
		Title:        req.Title,
		Bio:          req.Bio,
		Skills:       req.Skills,
		Interests:    req.Interests,
		Availability: req.Availability,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	p, err := a.profileSvc.GetProfile(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}
