package profile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"adminconsole/internal/auth/models"
	"adminconsole/pkg/platform/sentinel"
)

// Error Contract:
// All profile stores follow this error pattern:
// - FindByID and SetAdmin wrap sentinel.ErrNotFound when no row has the id
// - Insert wraps sentinel.ErrConflict when a row with the id already exists
// - Any other error is an infrastructure failure wrapped with context

// InMemoryStore keeps profiles in memory for tests and local runs.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]models.Profile
	now      func() time.Time
}

// NewInMemory constructs an empty in-memory profile store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		profiles: make(map[string]models.Profile),
		now:      time.Now,
	}
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, sentinel.ErrNotFound)
	}
	return clone(p), nil
}

func (s *InMemoryStore) Insert(_ context.Context, p *models.Profile) (*models.Profile, error) {
	if p == nil || p.ID == "" {
		return nil, fmt.Errorf("insert profile without id: %w", sentinel.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.profiles[p.ID]; exists {
		return nil, fmt.Errorf("profile %s: %w", p.ID, sentinel.ErrConflict)
	}
	s.profiles[p.ID] = *clone(*p)
	return clone(*p), nil
}

func (s *InMemoryStore) SetAdmin(_ context.Context, id string, isAdmin bool) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, sentinel.ErrNotFound)
	}
	p.IsAdmin = isAdmin
	p.UpdatedAt = s.now().UTC()
	s.profiles[id] = p
	return clone(p), nil
}

// Upsert inserts p or, when the id exists, overwrites is_admin and
// updated_at. Name and avatar are only replaced when p carries them.
func (s *InMemoryStore) Upsert(_ context.Context, p *models.Profile) (*models.Profile, error) {
	if p == nil || p.ID == "" {
		return nil, fmt.Errorf("upsert profile without id: %w", sentinel.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.profiles[p.ID]
	if !ok {
		s.profiles[p.ID] = *clone(*p)
		return clone(*p), nil
	}
	existing.IsAdmin = p.IsAdmin
	existing.UpdatedAt = p.UpdatedAt
	if p.Name != nil {
		existing.Name = p.Name
	}
	if p.AvatarURL != nil {
		existing.AvatarURL = p.AvatarURL
	}
	s.profiles[p.ID] = *clone(existing)
	return clone(existing), nil
}

// Len reports how many profiles are stored.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

func clone(p models.Profile) *models.Profile {
	out := p
	if p.Name != nil {
		name := *p.Name
		out.Name = &name
	}
	if p.AvatarURL != nil {
		avatar := *p.AvatarURL
		out.AvatarURL = &avatar
	}
	return &out
}
