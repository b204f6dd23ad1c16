package session

import (
	"context"
	"fmt"
	"sync"

	"adminconsole/internal/auth/models"
	"adminconsole/pkg/platform/sentinel"
)

// Error Contract:
// All stores follow this error pattern:
// - Load returns an error wrapping sentinel.ErrNotFound when the key holds no session
// - Delete of a missing key is not an error
// - Infrastructure failures are returned wrapped with context

// InMemoryStore keeps persisted sessions in memory for tests and ephemeral runs.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

// NewInMemory constructs an empty in-memory session store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]models.Session)}
}

func (s *InMemoryStore) Load(_ context.Context, key string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[key]
	if !ok {
		return nil, fmt.Errorf("session %q not found: %w", key, sentinel.ErrNotFound)
	}
	return &session, nil
}

func (s *InMemoryStore) Save(_ context.Context, key string, session *models.Session) error {
	if session == nil {
		return fmt.Errorf("save nil session: %w", sentinel.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[key] = *session
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	return nil
}
