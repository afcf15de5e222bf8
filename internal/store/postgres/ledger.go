package postgres

import (
	"context"
	"errors"
	"time"

	"MentorMatchserver/internal/domain"
	"MentorMatchserver/internal/service"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LedgerStore struct {
	pool *pgxpool.Pool
}

func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// InTx runs fn inside one read-committed transaction. Row locks and the pair
// advisory lock taken through tx are released at commit or rollback.
func (s *LedgerStore) InTx(ctx context.Context, fn func(tx service.LedgerTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Unavailable("begin ledger tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&ledgerTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storeError("commit ledger tx", err)
	}
	return nil
}

func (s *LedgerStore) PairStates(ctx context.Context, viewerID string, targetIDs []string) (map[string]domain.PairState, error) {
	const q = `
		SELECT
			t.id,
			EXISTS (
				SELECT 1 FROM connections c
				WHERE (c.user_a_id = $1 AND c.user_b_id = t.id) OR (c.user_a_id = t.id AND c.user_b_id = $1)
			),
			EXISTS (
				SELECT 1 FROM connection_requests r
				WHERE r.status = 'pending' AND r.sender_id = $1 AND r.receiver_id = t.id
			),
			EXISTS (
				SELECT 1 FROM connection_requests r
				WHERE r.status = 'pending' AND r.sender_id = t.id AND r.receiver_id = $1
			)
		FROM (SELECT DISTINCT unnest($2::text[])::uuid AS id) t
	`

	out := make(map[string]domain.PairState, len(targetIDs))
	if len(targetIDs) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, q, viewerID, targetIDs)
	if err != nil {
		return nil, domain.Unavailable("pair states", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			idUUID pgtype.UUID
			st     domain.PairState
		)
		if err := rows.Scan(&idUUID, &st.Connected, &st.Sent, &st.Received); err != nil {
			return nil, domain.Unavailable("scan pair state", err)
		}
		out[uuidOrEmpty(idUUID)] = st
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("pair states", err)
	}
	return out, nil
}

func (s *LedgerStore) ListLedger(ctx context.Context, userID string) (domain.Ledger, error) {
	connections, err := s.listConnections(ctx, userID)
	if err != nil {
		return domain.Ledger{}, err
	}
	received, err := s.listRequests(ctx, userID, `
		SELECT r.id, r.created_at, u.id, u.name, u.role, u.title, u.bio
		FROM connection_requests r
		JOIN users u ON u.id = r.sender_id
		WHERE r.status = 'pending' AND r.receiver_id = $1
		ORDER BY r.created_at DESC
	`)
	if err != nil {
		return domain.Ledger{}, err
	}
	sent, err := s.listRequests(ctx, userID, `
		SELECT r.id, r.created_at, u.id, u.name, u.role, u.title, u.bio
		FROM connection_requests r
		JOIN users u ON u.id = r.receiver_id
		WHERE r.status = 'pending' AND r.sender_id = $1
		ORDER BY r.created_at DESC
	`)
	if err != nil {
		return domain.Ledger{}, err
	}

	return domain.Ledger{
		Connections: connections,
		Received:    received,
		Sent:        sent,
	}, nil
}

func (s *LedgerStore) listConnections(ctx context.Context, userID string) ([]domain.LedgerConnection, error) {
	const q = `
		SELECT c.id, c.status, c.connected_since, u.id, u.name, u.role, u.title, u.bio
		FROM connections c
		JOIN users u ON u.id = CASE
			WHEN c.user_a_id = $1 THEN c.user_b_id
			ELSE c.user_a_id
		END
		WHERE c.user_a_id = $1 OR c.user_b_id = $1
		ORDER BY c.connected_since DESC
	`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, domain.Unavailable("list connections", err)
	}
	defer rows.Close()

	var out []domain.LedgerConnection
	for rows.Next() {
		var (
			lc       domain.LedgerConnection
			connUUID pgtype.UUID
			userUUID pgtype.UUID
			status   string
			role     string
		)
		if err := rows.Scan(&connUUID, &status, &lc.ConnectedSince, &userUUID, &lc.User.Name, &role, &lc.User.Title, &lc.User.Bio); err != nil {
			return nil, domain.Unavailable("scan connection", err)
		}
		lc.ConnectionID = uuidOrEmpty(connUUID)
		lc.Status = domain.ConnectionStatus(status)
		lc.User.ID = uuidOrEmpty(userUUID)
		lc.User.Role = domain.Role(role)
		out = append(out, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("list connections", err)
	}
	return out, nil
}

func (s *LedgerStore) listRequests(ctx context.Context, userID, q string) ([]domain.LedgerRequest, error) {
	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, domain.Unavailable("list requests", err)
	}
	defer rows.Close()

	var out []domain.LedgerRequest
	for rows.Next() {
		var (
			lr       domain.LedgerRequest
			reqUUID  pgtype.UUID
			userUUID pgtype.UUID
			role     string
		)
		if err := rows.Scan(&reqUUID, &lr.CreatedAt, &userUUID, &lr.User.Name, &role, &lr.User.Title, &lr.User.Bio); err != nil {
			return nil, domain.Unavailable("scan request", err)
		}
		lr.RequestID = uuidOrEmpty(reqUUID)
		lr.User.ID = uuidOrEmpty(userUUID)
		lr.User.Role = domain.Role(role)
		out = append(out, lr)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("list requests", err)
	}
	return out, nil
}

type ledgerTx struct {
	tx pgx.Tx
}

// LockPair takes a transaction-scoped advisory lock keyed on the unordered
// pair, so two senders racing on the same pair queue behind each other.
func (t *ledgerTx) LockPair(ctx context.Context, userA, userB string) error {
	const q = `SELECT pg_advisory_xact_lock(hashtextextended(LEAST($1::text, $2::text) || ':' || GREATEST($1::text, $2::text), 0))`
	if _, err := t.tx.Exec(ctx, q, userA, userB); err != nil {
		return domain.Unavailable("lock pair", err)
	}
	return nil
}

func (t *ledgerTx) PairState(ctx context.Context, viewerID, targetID string) (domain.PairState, error) {
	const q = `
		SELECT
			EXISTS (
				SELECT 1 FROM connections
				WHERE LEAST(user_a_id, user_b_id) = LEAST($1::uuid, $2::uuid)
					AND GREATEST(user_a_id, user_b_id) = GREATEST($1::uuid, $2::uuid)
			),
			EXISTS (
				SELECT 1 FROM connection_requests
				WHERE status = 'pending' AND sender_id = $1 AND receiver_id = $2
			),
			EXISTS (
				SELECT 1 FROM connection_requests
				WHERE status = 'pending' AND sender_id = $2 AND receiver_id = $1
			)
	`

	var st domain.PairState
	if err := t.tx.QueryRow(ctx, q, viewerID, targetID).Scan(&st.Connected, &st.Sent, &st.Received); err != nil {
		return domain.PairState{}, domain.Unavailable("pair state", err)
	}
	return st, nil
}

func (t *ledgerTx) CreateRequest(ctx context.Context, senderID, receiverID string, when time.Time) (domain.ConnectionRequest, error) {
	const q = `
		INSERT INTO connection_requests (sender_id, receiver_id, status, created_at)
		VALUES ($1, $2, 'pending', $3)
		RETURNING id, created_at
	`

	var idUUID pgtype.UUID
	req := domain.ConnectionRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     domain.RequestPending,
	}
	if err := t.tx.QueryRow(ctx, q, senderID, receiverID, when).Scan(&idUUID, &req.CreatedAt); err != nil {
		return domain.ConnectionRequest{}, storeError("create request", err)
	}
	req.ID = uuidOrEmpty(idUUID)
	return req, nil
}

func (t *ledgerTx) GetRequestForUpdate(ctx context.Context, requestID string) (domain.ConnectionRequest, error) {
	const q = `
		SELECT id, sender_id, receiver_id, status, created_at, responded_at
		FROM connection_requests
		WHERE id = $1
		FOR UPDATE
	`

	var (
		req          domain.ConnectionRequest
		idUUID       pgtype.UUID
		senderUUID   pgtype.UUID
		receiverUUID pgtype.UUID
		status       string
		respondedAt  pgtype.Timestamptz
	)
	err := t.tx.QueryRow(ctx, q, requestID).Scan(&idUUID, &senderUUID, &receiverUUID, &status, &req.CreatedAt, &respondedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ConnectionRequest{}, domain.ErrNotFound
		}
		return domain.ConnectionRequest{}, domain.Unavailable("get request", err)
	}

	req.ID = uuidOrEmpty(idUUID)
	req.SenderID = uuidOrEmpty(senderUUID)
	req.ReceiverID = uuidOrEmpty(receiverUUID)
	req.Status = domain.RequestStatus(status)
	req.RespondedAt = timestamptzPtr(respondedAt)
	return req, nil
}

func (t *ledgerTx) ResolveRequest(ctx context.Context, requestID string, status domain.RequestStatus, when time.Time) error {
	const q = `
		UPDATE connection_requests
		SET status = $2, responded_at = $3
		WHERE id = $1 AND status = 'pending'
	`
	ct, err := t.tx.Exec(ctx, q, requestID, string(status), when)
	if err != nil {
		return domain.Unavailable("resolve request", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *ledgerTx) DeleteRequest(ctx context.Context, requestID string) error {
	ct, err := t.tx.Exec(ctx, `DELETE FROM connection_requests WHERE id = $1 AND status = 'pending'`, requestID)
	if err != nil {
		return domain.Unavailable("delete request", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *ledgerTx) CreateConnection(ctx context.Context, req domain.ConnectionRequest, when time.Time) (domain.Connection, error) {
	const q = `
		INSERT INTO connections (user_a_id, user_b_id, request_id, status, connected_since)
		VALUES ($1, $2, $3, 'active', $4)
		RETURNING id, connected_since
	`

	var idUUID pgtype.UUID
	conn := domain.Connection{
		UserAID:   req.SenderID,
		UserBID:   req.ReceiverID,
		RequestID: req.ID,
		Status:    domain.ConnectionActive,
	}
	if err := t.tx.QueryRow(ctx, q, req.SenderID, req.ReceiverID, req.ID, when).Scan(&idUUID, &conn.ConnectedSince); err != nil {
		return domain.Connection{}, storeError("create connection", err)
	}
	conn.ID = uuidOrEmpty(idUUID)
	return conn, nil
}

func (t *ledgerTx) DeleteConnection(ctx context.Context, userA, userB string) (bool, error) {
	const q = `
		DELETE FROM connections
		WHERE (user_a_id = $1 AND user_b_id = $2) OR (user_a_id = $2 AND user_b_id = $1)
	`
	ct, err := t.tx.Exec(ctx, q, userA, userB)
	if err != nil {
		return false, domain.Unavailable("delete connection", err)
	}
	return ct.RowsAffected() > 0, nil
}
