package httpapi

import (
	"net/http"
	"time"

	"MentorMatchserver/internal/domain"
)

type userResponse struct {
	ID        string      `json:"id"`
	Email     string      `json:"email,omitempty"`
	Name      string      `json:"name"`
	Role      domain.Role `json:"role"`
	Title     string      `json:"title"`
	Bio       string      `json:"bio"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt string      `json:"updated_at"`
}

func newUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Title:     u.Title,
		Bio:       u.Bio,
		CreatedAt: u.CreatedAt,
		UpdatedAt: formatMillis(u.UpdatedAt),
	}
}

func (a *api) handleUsersMe(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, newUserResponse(u))
}
