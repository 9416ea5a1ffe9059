package store

import (
	"context"
	"sync"

	"telcoreg/internal/telco/models"
	"telcoreg/pkg/platform/sentinel"
)

// InMemory keeps the persisted state in process memory. It backs development
// runs and tests; nothing survives a restart.
type InMemory struct {
	mu    sync.RWMutex
	state *models.State
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

// Load returns a copy of the stored state, or sentinel.ErrNotFound before the
// first admin has been persisted.
func (s *InMemory) Load(_ context.Context) (*models.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil, sentinel.ErrNotFound
	}
	return s.state.Clone(), nil
}

// Version returns the stored state version, 0 before the first write.
func (s *InMemory) Version(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return 0, nil
	}
	return s.state.Version, nil
}

// Apply persists one mutation. A mutation computed against an older version
// than the stored one returns sentinel.ErrConflict.
func (s *InMemory) Apply(_ context.Context, m models.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		if m.Kind != models.MutationSetAdmin {
			return sentinel.ErrNotFound
		}
		if m.Version != 0 {
			return sentinel.ErrConflict
		}
		s.state = models.NewState(m.Address)
	}
	if m.Version != s.state.Version {
		return sentinel.ErrConflict
	}
	if m.Kind == models.MutationCreateTelco {
		if _, exists := s.state.Telcos[m.Address]; exists {
			return sentinel.ErrConflict
		}
	}
	m.ApplyTo(s.state)
	return nil
}
