package memory

import (
	"context"
	"time"

	"MentorMatchserver/internal/domain"
	"MentorMatchserver/internal/service"

	"github.com/google/uuid"
)

// InTx runs fn while holding the store's write lock, so every ledger
// transaction is serialized. A failing fn leaves requests and connections as
// they were before the call.
func (s *Store) InTx(ctx context.Context, fn func(tx service.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	savedRequests := append([]domain.ConnectionRequest(nil), s.requests...)
	savedConnections := append([]domain.Connection(nil), s.connections...)

	if err := fn(&ledgerTx{s: s}); err != nil {
		s.requests = savedRequests
		s.connections = savedConnections
		return err
	}
	return nil
}

func (s *Store) PairStates(ctx context.Context, viewerID string, targetIDs []string) (map[string]domain.PairState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.PairState, len(targetIDs))
	for _, id := range targetIDs {
		out[id] = s.pairState(viewerID, id)
	}
	return out, nil
}

func (s *Store) ListLedger(ctx context.Context, userID string) (domain.Ledger, error) {
	if err := ctx.Err(); err != nil {
		return domain.Ledger{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var l domain.Ledger
	for _, c := range s.connections {
		if c.UserAID != userID && c.UserBID != userID {
			continue
		}
		l.Connections = append(l.Connections, domain.LedgerConnection{
			ConnectionID:   c.ID,
			User:           s.summary(c.Counterpart(userID)),
			Status:         c.Status,
			ConnectedSince: c.ConnectedSince,
		})
	}

	for i := len(s.requests) - 1; i >= 0; i-- {
		r := s.requests[i]
		if r.Status != domain.RequestPending {
			continue
		}
		switch userID {
		case r.ReceiverID:
			l.Received = append(l.Received, domain.LedgerRequest{RequestID: r.ID, User: s.summary(r.SenderID), CreatedAt: r.CreatedAt})
		case r.SenderID:
			l.Sent = append(l.Sent, domain.LedgerRequest{RequestID: r.ID, User: s.summary(r.ReceiverID), CreatedAt: r.CreatedAt})
		}
	}
	return l, nil
}

func (s *Store) summary(userID string) domain.ProfileSummary {
	if row, ok := s.byID[userID]; ok {
		return row.Summary()
	}
	return domain.ProfileSummary{ID: userID}
}

func (s *Store) pairState(viewerID, targetID string) domain.PairState {
	var st domain.PairState
	for _, c := range s.connections {
		if samePair(c.UserAID, c.UserBID, viewerID, targetID) {
			st.Connected = true
			break
		}
	}
	for _, r := range s.requests {
		if r.Status != domain.RequestPending {
			continue
		}
		if r.SenderID == viewerID && r.ReceiverID == targetID {
			st.Sent = true
		}
		if r.SenderID == targetID && r.ReceiverID == viewerID {
			st.Received = true
		}
	}
	return st
}

// ledgerTx is only used while InTx holds s.mu.
type ledgerTx struct {
	s *Store
}

func (tx *ledgerTx) LockPair(ctx context.Context, _, _ string) error {
	return ctx.Err()
}

func (tx *ledgerTx) PairState(ctx context.Context, viewerID, targetID string) (domain.PairState, error) {
	if err := ctx.Err(); err != nil {
		return domain.PairState{}, err
	}
	return tx.s.pairState(viewerID, targetID), nil
}

func (tx *ledgerTx) CreateRequest(ctx context.Context, senderID, receiverID string, when time.Time) (domain.ConnectionRequest, error) {
	if err := ctx.Err(); err != nil {
		return domain.ConnectionRequest{}, err
	}
	for _, r := range tx.s.requests {
		if r.Status == domain.RequestPending && samePair(r.SenderID, r.ReceiverID, senderID, receiverID) {
			return domain.ConnectionRequest{}, domain.ErrRequestExists
		}
	}

	req := domain.ConnectionRequest{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     domain.RequestPending,
		CreatedAt:  when.UTC(),
	}
	tx.s.requests = append(tx.s.requests, req)
	return req, nil
}

func (tx *ledgerTx) GetRequestForUpdate(ctx context.Context, requestID string) (domain.ConnectionRequest, error) {
	if err := ctx.Err(); err != nil {
		return domain.ConnectionRequest{}, err
	}
	i := tx.requestIndex(requestID)
	if i < 0 {
		return domain.ConnectionRequest{}, domain.ErrNotFound
	}
	return tx.s.requests[i], nil
}

func (tx *ledgerTx) ResolveRequest(ctx context.Context, requestID string, status domain.RequestStatus, when time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	i := tx.requestIndex(requestID)
	if i < 0 {
		return domain.ErrNotFound
	}
	at := when.UTC()
	tx.s.requests[i].Status = status
	tx.s.requests[i].RespondedAt = &at
	return nil
}

func (tx *ledgerTx) DeleteRequest(ctx context.Context, requestID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	i := tx.requestIndex(requestID)
	if i < 0 {
		return domain.ErrNotFound
	}
	tx.s.requests = append(tx.s.requests[:i:i], tx.s.requests[i+1:]...)
	return nil
}

func (tx *ledgerTx) CreateConnection(ctx context.Context, req domain.ConnectionRequest, when time.Time) (domain.Connection, error) {
	if err := ctx.Err(); err != nil {
		return domain.Connection{}, err
	}
	for _, c := range tx.s.connections {
		if samePair(c.UserAID, c.UserBID, req.SenderID, req.ReceiverID) {
			return domain.Connection{}, domain.ErrAlreadyConnected
		}
	}

	conn := domain.Connection{
		ID:             uuid.NewString(),
		UserAID:        req.SenderID,
		UserBID:        req.ReceiverID,
		RequestID:      req.ID,
		Status:         domain.ConnectionActive,
		ConnectedSince: when.UTC(),
	}
	tx.s.connections = append(tx.s.connections, conn)
	return conn, nil
}

func (tx *ledgerTx) DeleteConnection(ctx context.Context, userA, userB string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	for i, c := range tx.s.connections {
		if samePair(c.UserAID, c.UserBID, userA, userB) {
			tx.s.connections = append(tx.s.connections[:i:i], tx.s.connections[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (tx *ledgerTx) requestIndex(id string) int {
	for i, r := range tx.s.requests {
		if r.ID == id {
			return i
		}
	}
	return -1
}
