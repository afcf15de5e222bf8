package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"MentorMatchserver/internal/domain"

	"github.com/google/uuid"
)

// LedgerTx is the set of reads and writes available inside one ledger
// transaction. Implementations apply every write of a transaction together or
// none of them.
type LedgerTx interface {
	// LockPair serializes writers of the unordered pair {userA, userB} until
	// the transaction ends.
	LockPair(ctx context.Context, userA, userB string) error
	PairState(ctx context.Context, viewerID, targetID string) (domain.PairState, error)
	CreateRequest(ctx context.Context, senderID, receiverID string, when time.Time) (domain.ConnectionRequest, error)
	// GetRequestForUpdate returns domain.ErrNotFound when no row has that id.
	GetRequestForUpdate(ctx context.Context, requestID string) (domain.ConnectionRequest, error)
	ResolveRequest(ctx context.Context, requestID string, status domain.RequestStatus, when time.Time) error
	DeleteRequest(ctx context.Context, requestID string) error
	CreateConnection(ctx context.Context, req domain.ConnectionRequest, when time.Time) (domain.Connection, error)
	DeleteConnection(ctx context.Context, userA, userB string) (bool, error)
}

type LedgerStore interface {
	InTx(ctx context.Context, fn func(tx LedgerTx) error) error
	PairStates(ctx context.Context, viewerID string, targetIDs []string) (map[string]domain.PairState, error)
	ListLedger(ctx context.Context, userID string) (domain.Ledger, error)
}

type LedgerUsersStore interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
}

type ConnectionEvent struct {
	RequestID    string
	ConnectionID string
	FromUserID   string
	ToUserID     string
}

type ConnectionNotifier interface {
	NotifyConnectionRequest(ctx context.Context, ev ConnectionEvent) error
	NotifyConnectionAccepted(ctx context.Context, ev ConnectionEvent) error
}

// LedgerService owns every mutation of connection requests and connections.
type LedgerService struct {
	Users    LedgerUsersStore
	Ledger   LedgerStore
	Notifier ConnectionNotifier
	Logger   *slog.Logger
	Now      func() time.Time
}

func (s *LedgerService) SendRequest(ctx context.Context, actorID, targetID string) (domain.ConnectionRequest, error) {
	targetID, err := parseID("target_id", targetID)
	if err != nil {
		return domain.ConnectionRequest{}, err
	}
	if targetID == actorID {
		return domain.ConnectionRequest{}, domain.NewValidationError(map[string]string{"target_id": "cannot connect to yourself"})
	}
	if _, err := s.Users.GetUserByID(ctx, targetID); err != nil {
		return domain.ConnectionRequest{}, err
	}

	var req domain.ConnectionRequest
	err = s.Ledger.InTx(ctx, func(tx LedgerTx) error {
		if err := tx.LockPair(ctx, actorID, targetID); err != nil {
			return err
		}
		state, err := tx.PairState(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		if state.Connected {
			return domain.ErrAlreadyConnected
		}
		if state.Sent || state.Received {
			return domain.ErrRequestExists
		}
		req, err = tx.CreateRequest(ctx, actorID, targetID, s.now())
		return err
	})
	if err != nil {
		return domain.ConnectionRequest{}, err
	}

	if s.Notifier != nil {
		ev := ConnectionEvent{RequestID: req.ID, FromUserID: actorID, ToUserID: targetID}
		if err := s.Notifier.NotifyConnectionRequest(ctx, ev); err != nil {
			s.logger().Warn("ledger: request notification failed", "err", err, "request_id", req.ID)
		}
	}
	return req, nil
}

func (s *LedgerService) AcceptRequest(ctx context.Context, actorID, requestID string) (domain.Connection, error) {
	requestID, err := parseID("request_id", requestID)
	if err != nil {
		return domain.Connection{}, err
	}

	var conn domain.Connection
	err = s.Ledger.InTx(ctx, func(tx LedgerTx) error {
		req, err := pendingRequest(ctx, tx, requestID, func(r domain.ConnectionRequest) bool {
			return r.ReceiverID == actorID
		})
		if err != nil {
			return err
		}
		if err := tx.LockPair(ctx, req.SenderID, req.ReceiverID); err != nil {
			return err
		}
		state, err := tx.PairState(ctx, req.ReceiverID, req.SenderID)
		if err != nil {
			return err
		}
		if state.Connected {
			return domain.ErrAlreadyConnected
		}

		when := s.now()
		if err := tx.ResolveRequest(ctx, req.ID, domain.RequestAccepted, when); err != nil {
			return err
		}
		conn, err = tx.CreateConnection(ctx, req, when)
		return err
	})
	if err != nil {
		return domain.Connection{}, err
	}

	if s.Notifier != nil {
		ev := ConnectionEvent{
			RequestID:    requestID,
			ConnectionID: conn.ID,
			FromUserID:   actorID,
			ToUserID:     conn.Counterpart(actorID),
		}
		if err := s.Notifier.NotifyConnectionAccepted(ctx, ev); err != nil {
			s.logger().Warn("ledger: accept notification failed", "err", err, "connection_id", conn.ID)
		}
	}
	return conn, nil
}

func (s *LedgerService) DeclineRequest(ctx context.Context, actorID, requestID string) error {
	requestID, err := parseID("request_id", requestID)
	if err != nil {
		return err
	}

	return s.Ledger.InTx(ctx, func(tx LedgerTx) error {
		req, err := pendingRequest(ctx, tx, requestID, func(r domain.ConnectionRequest) bool {
			return r.ReceiverID == actorID
		})
		if err != nil {
			return err
		}
		return tx.ResolveRequest(ctx, req.ID, domain.RequestDeclined, s.now())
	})
}

func (s *LedgerService) CancelRequest(ctx context.Context, actorID, requestID string) error {
	requestID, err := parseID("request_id", requestID)
	if err != nil {
		return err
	}

	return s.Ledger.InTx(ctx, func(tx LedgerTx) error {
		req, err := pendingRequest(ctx, tx, requestID, func(r domain.ConnectionRequest) bool {
			return r.SenderID == actorID
		})
		if err != nil {
			return err
		}
		return tx.DeleteRequest(ctx, req.ID)
	})
}

// Disconnect removes the connection between actor and target. Having nothing
// to remove is not an error; removed reports which case happened.
func (s *LedgerService) Disconnect(ctx context.Context, actorID, targetID string) (removed bool, err error) {
	targetID, err = parseID("target_id", targetID)
	if err != nil {
		return false, err
	}
	if targetID == actorID {
		return false, domain.NewValidationError(map[string]string{"target_id": "cannot disconnect from yourself"})
	}

	err = s.Ledger.InTx(ctx, func(tx LedgerTx) error {
		if err := tx.LockPair(ctx, actorID, targetID); err != nil {
			return err
		}
		var err error
		removed, err = tx.DeleteConnection(ctx, actorID, targetID)
		return err
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

func (s *LedgerService) RelationshipStatus(ctx context.Context, viewerID, targetID string) (domain.RelationshipStatus, error) {
	targetID, err := parseID("target_id", targetID)
	if err != nil {
		return "", err
	}
	if targetID == viewerID {
		return domain.RelationshipNone, nil
	}

	states, err := s.Ledger.PairStates(ctx, viewerID, []string{targetID})
	if err != nil {
		return "", err
	}
	return states[targetID].Status(), nil
}

// RelationshipStatuses resolves the status of viewer against every target in
// one store read. Targets without any row come back as none.
func (s *LedgerService) RelationshipStatuses(ctx context.Context, viewerID string, targetIDs []string) (map[string]domain.RelationshipStatus, error) {
	out := make(map[string]domain.RelationshipStatus, len(targetIDs))
	if len(targetIDs) == 0 {
		return out, nil
	}

	states, err := s.Ledger.PairStates(ctx, viewerID, targetIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range targetIDs {
		out[id] = states[id].Status()
	}
	return out, nil
}

func (s *LedgerService) ListLedger(ctx context.Context, userID string) (domain.Ledger, error) {
	l, err := s.Ledger.ListLedger(ctx, userID)
	if err != nil {
		return domain.Ledger{}, err
	}
	if l.Connections == nil {
		l.Connections = []domain.LedgerConnection{}
	}
	if l.Received == nil {
		l.Received = []domain.LedgerRequest{}
	}
	if l.Sent == nil {
		l.Sent = []domain.LedgerRequest{}
	}
	return l, nil
}

// pendingRequest loads a request row and hides it unless it is pending and
// owned by the actor according to owns.
func pendingRequest(ctx context.Context, tx LedgerTx, requestID string, owns func(domain.ConnectionRequest) bool) (domain.ConnectionRequest, error) {
	req, err := tx.GetRequestForUpdate(ctx, requestID)
	if err != nil {
		return domain.ConnectionRequest{}, err
	}
	if req.Status != domain.RequestPending || !owns(req) {
		return domain.ConnectionRequest{}, domain.ErrNotFound
	}
	return req, nil
}

func (s *LedgerService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *LedgerService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func parseID(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.NewValidationError(map[string]string{field: "required"})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", domain.NewValidationError(map[string]string{field: "must be a uuid"})
	}
	return id.String(), nil
}
