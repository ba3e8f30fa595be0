package session

import (
	"sync"

	"github.com/xaenox/sentiment-bot/internal/models"
)

// Store holds saved sessions for a single identity.
type Store interface {
	Upsert(s models.ChatSession)
	Get(id models.SessionID) (models.ChatSession, bool)
	Delete(id models.SessionID) bool
	List() []models.ChatSession
}

// MemoryStore keeps deep copies so callers never share message slices with
// the registry.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[models.SessionID]models.ChatSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[models.SessionID]models.ChatSession),
	}
}

func (s *MemoryStore) Upsert(session models.ChatSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session.Clone()
}

func (s *MemoryStore) Get(id models.SessionID) (models.ChatSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return models.ChatSession{}, false
	}
	return session.Clone(), true
}

func (s *MemoryStore) Delete(id models.SessionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// List returns every saved session in no particular order.
func (s *MemoryStore) List() []models.ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ChatSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session.Clone())
	}
	return out
}
