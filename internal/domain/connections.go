package domain

import "time"

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestDeclined RequestStatus = "declined"
)

type ConnectionRequest struct {
	ID          string        `json:"request_id"`
	SenderID    string        `json:"sender_id"`
	ReceiverID  string        `json:"receiver_id"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	RespondedAt *time.Time    `json:"responded_at,omitempty"`
}

type ConnectionStatus string

const ConnectionActive ConnectionStatus = "active"

type Connection struct {
	ID             string           `json:"connection_id"`
	UserAID        string           `json:"user_a_id"`
	UserBID        string           `json:"user_b_id"`
	RequestID      string           `json:"request_id"`
	Status         ConnectionStatus `json:"status"`
	ConnectedSince time.Time        `json:"connected_since"`
}

// Counterpart returns the id of the party that is not userID.
func (c Connection) Counterpart(userID string) string {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}

type RelationshipStatus string

const (
	RelationshipNone      RelationshipStatus = "none"
	RelationshipRequested RelationshipStatus = "requested"
	RelationshipPending   RelationshipStatus = "pending"
	RelationshipConnected RelationshipStatus = "connected"
)

// PairState is the raw material for RelationshipStatus, seen from the viewer.
type PairState struct {
	Connected bool
	Sent      bool
	Received  bool
}

// Status applies the precedence connected > requested > pending > none.
func (p PairState) Status() RelationshipStatus {
	switch {
	case p.Connected:
		return RelationshipConnected
	case p.Sent:
		return RelationshipRequested
	case p.Received:
		return RelationshipPending
	default:
		return RelationshipNone
	}
}

type LedgerConnection struct {
	ConnectionID   string           `json:"connection_id"`
	User           ProfileSummary   `json:"user"`
	Status         ConnectionStatus `json:"status"`
	ConnectedSince time.Time        `json:"connected_since"`
}

type LedgerRequest struct {
	RequestID string         `json:"request_id"`
	User      ProfileSummary `json:"user"`
	CreatedAt time.Time      `json:"created_at"`
}

type Ledger struct {
	Connections []LedgerConnection `json:"connections"`
	Received    []LedgerRequest    `json:"received_requests"`
	Sent        []LedgerRequest    `json:"sent_requests"`
}
