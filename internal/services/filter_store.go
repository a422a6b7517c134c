package services

import (
	"fmt"
	"slices"
	"sync"

	"transstats/internal/core"
)

// FilterStore holds the mutable filter state. It is owned by the application
// root and shared by every presentation adapter. Reads return copies.
type FilterStore struct {
	mu      sync.RWMutex
	filters core.Filters
	seeded  bool
}

func NewFilterStore(initial core.Filters) *FilterStore {
	return &FilterStore{filters: initial.Clone()}
}

// Get returns a copy of the current filters.
func (s *FilterStore) Get() core.Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters.Clone()
}

// Apply merges a partial update atomically and returns the resulting filters.
// Invalid results leave the store unchanged.
func (s *FilterStore) Apply(p core.FilterPatch) (core.Filters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := p.Apply(s.filters)
	if err := next.Validate(); err != nil {
		return s.filters.Clone(), fmt.Errorf("apply filters: %w", err)
	}
	s.filters = next
	return next.Clone(), nil
}

// SeedChannels selects every channel of the universe. Only the first call has
// any effect; later loads never reset a user's selection.
func (s *FilterStore) SeedChannels(universe []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seeded {
		return false
	}
	s.seeded = true
	s.filters.SelectedChannels = slices.Clone(universe)
	if s.filters.SelectedChannels == nil {
		s.filters.SelectedChannels = []string{}
	}
	return true
}
