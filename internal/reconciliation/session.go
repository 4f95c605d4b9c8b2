package reconciliation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tombamento-backend/internal/matching"
)

// Session is one operator's reconciliation pass over a unit. Its pattern
// memory is hydrated once at start and grows with every confirmation.
type Session struct {
	ID        uuid.UUID
	Unit      string
	ItemType  string
	Operator  string
	Memory    *matching.PatternMemory
	StartedAt time.Time
}

// registry holds the live sessions of this process. Only pending tags are
// shared through Redis, so the api runs as one replica, or behind routing
// that pins a session id to one replica.
type registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func newRegistry() *registry {
	return &registry{sessions: make(map[uuid.UUID]*Session)}
}

func (r *registry) put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

func (r *registry) get(id uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *registry) remove(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}
