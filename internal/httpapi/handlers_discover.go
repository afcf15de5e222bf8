package httpapi

import (
	"net/http"

	"MentorMatchserver/internal/domain"
	"MentorMatchserver/internal/service"
)

func (a *api) handleDiscover(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	q := r.URL.Query()
	criteria, err := service.ParseCriteria(q.Get("role"), q.Get("skills"), q.Get("availability"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	out, err := a.discoverSvc.FindCandidates(r.Context(), u.ID, criteria)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, out)
}
