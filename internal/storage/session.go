package storage

import (
	"sync"

	"github.com/xaenox/commentbot/internal/models"
)

// MemorySessionStore keeps sessions for the lifetime of the process only.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[int64]models.Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[int64]models.Session)}
}

func (s *MemorySessionStore) Get(chatID int64) (models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[chatID]
	return session, exists
}

func (s *MemorySessionStore) Put(session models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ChatID] = session
}

func (s *MemorySessionStore) Delete(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, chatID)
}
