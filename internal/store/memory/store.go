// Package memory is a process-local store used when no database is
// configured and by tests. All state lives behind one RWMutex.
package memory

import (
	"sync"
	"time"

	"MentorMatchserver/internal/domain"
)

type userRow struct {
	domain.UserWithPassword
	skills       []domain.ProfileEntry
	interests    []domain.ProfileEntry
	availability []string
}

type Store struct {
	mu sync.RWMutex

	users   []*userRow
	byID    map[string]*userRow
	byEmail map[string]*userRow

	requests    []domain.ConnectionRequest
	connections []domain.Connection

	external []domain.ExternalAccount

	tokens []domain.NotificationToken

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		byID:    make(map[string]*userRow),
		byEmail: make(map[string]*userRow),
		now:     time.Now,
	}
}

func samePair(a1, b1, a2, b2 string) bool {
	return (a1 == a2 && b1 == b2) || (a1 == b2 && b1 == a2)
}
