// Package store holds the correlation mapping backends. Every backend makes
// create, touch and advance atomic on the single (patient, family) key.
package store

import (
	"context"
	"sync"
	"time"

	"xhuma/internal/correlation/models"
	"xhuma/pkg/domain"
	"xhuma/pkg/platform/sentinel"
)

// InMemoryStore is a process-local mapping store for tests and single-node
// development.
type InMemoryStore struct {
	mu       sync.RWMutex
	mappings map[string]*models.Mapping
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{mappings: make(map[string]*models.Mapping)}
}

func (s *InMemoryStore) Get(_ context.Context, patient domain.NHSNumber, family models.Family) (*models.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mappings[models.Key(patient, family)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

// InsertIfAbsent stores m unless a mapping already exists for its key, in
// which case the existing mapping is returned with inserted=false.
func (s *InMemoryStore) InsertIfAbsent(_ context.Context, m *models.Mapping) (*models.Mapping, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.Key(m.PatientID, m.Family)
	if existing, ok := s.mappings[key]; ok {
		cp := *existing
		return &cp, false, nil
	}
	stored := *m
	s.mappings[key] = &stored
	cp := stored
	return &cp, true, nil
}

func (s *InMemoryStore) Touch(_ context.Context, patient domain.NHSNumber, family models.Family, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mappings[models.Key(patient, family)]
	if !ok {
		return sentinel.ErrNotFound
	}
	m.UseCount++
	if at.After(m.LastUsed) {
		m.LastUsed = at
	}
	return nil
}

// Advance raises the mapping state to at least state. A non-empty
// organization replaces the recorded one.
func (s *InMemoryStore) Advance(_ context.Context, patient domain.NHSNumber, family models.Family, state models.State, organization string) (*models.Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mappings[models.Key(patient, family)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if state > m.State {
		m.State = state
	}
	if organization != "" {
		m.Organization = organization
	}
	cp := *m
	return &cp, nil
}

// Len returns the number of stored mappings.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mappings)
}
