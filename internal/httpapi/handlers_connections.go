package httpapi

import (
	"net/http"

	"MentorMatchserver/internal/domain"
)

func (a *api) handleConnectionsList(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	out, err := a.ledgerSvc.ListLedger(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, out)
}

func (a *api) handleConnectionsRequest(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	targetID, err := pathID(r, "targetId")
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	req, err := a.ledgerSvc.SendRequest(r.Context(), u.ID, targetID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, req)
}

func (a *api) handleConnectionsAccept(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	requestID, err := pathID(r, "requestId")
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	conn, err := a.ledgerSvc.AcceptRequest(r.Context(), u.ID, requestID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, conn)
}

func (a *api) handleConnectionsDecline(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	requestID, err := pathID(r, "requestId")
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	if err := a.ledgerSvc.DeclineRequest(r.Context(), u.ID, requestID); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleConnectionsCancel(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	requestID, err := pathID(r, "requestId")
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	if err := a.ledgerSvc.CancelRequest(r.Context(), u.ID, requestID); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type disconnectResponse struct {
	Removed bool `json:"removed"`
}

func (a *api) handleConnectionsDisconnect(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	targetID, err := pathID(r, "targetId")
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	removed, err := a.ledgerSvc.Disconnect(r.Context(), u.ID, targetID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, disconnectResponse{Removed: removed})
}

type connectionStatusResponse struct {
	Status domain.RelationshipStatus `json:"status"`
}

func (a *api) handleConnectionStatus(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	targetID, err := pathID(r, "targetId")
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	status, err := a.ledgerSvc.RelationshipStatus(r.Context(), u.ID, targetID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, connectionStatusResponse{Status: status})
}
