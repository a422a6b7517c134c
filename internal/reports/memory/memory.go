package memory

import (
	"context"
	"fmt"
	"sync"

	"transstats/internal/core"
	"transstats/internal/reports"
)

// Store is an in-memory report source keyed by file identifier.
type Store struct {
	mu      sync.Mutex
	reports map[string]core.RawReport
	errs    map[string]error
	fetches map[string]int
}

var (
	_ reports.Fetcher  = (*Store)(nil)
	_ reports.Importer = (*Store)(nil)
)

func New(seed map[string]core.RawReport) *Store {
	s := &Store{
		reports: make(map[string]core.RawReport, len(seed)),
		errs:    make(map[string]error),
		fetches: make(map[string]int),
	}
	for id, r := range seed {
		s.reports[id] = r
	}
	return s
}

// Put stores or replaces the report for fileID.
func (s *Store) Put(fileID string, r core.RawReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[fileID] = r
	delete(s.errs, fileID)
}

// Fail makes every fetch of fileID return err.
func (s *Store) Fail(fileID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[fileID] = err
}

// Fetch returns the stored report, the configured failure or reports.ErrNotFound.
func (s *Store) Fetch(ctx context.Context, fileID string) (core.RawReport, error) {
	if err := ctx.Err(); err != nil {
		return core.RawReport{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches[fileID]++
	if err, ok := s.errs[fileID]; ok {
		return core.RawReport{}, err
	}
	r, ok := s.reports[fileID]
	if !ok {
		return core.RawReport{}, fmt.Errorf("%w: %s", reports.ErrNotFound, fileID)
	}
	return r, nil
}

// Import decodes body and stores it under fileID.
func (s *Store) Import(_ context.Context, fileID string, body []byte) error {
	r, err := reports.Decode(body)
	if err != nil {
		return fmt.Errorf("import %s: %w", fileID, err)
	}
	s.Put(fileID, r)
	return nil
}

// Fetches returns how many times fileID was requested.
func (s *Store) Fetches(fileID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[fileID]
}

// TotalFetches returns the number of Fetch calls across all identifiers.
func (s *Store) TotalFetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.fetches {
		n += c
	}
	return n
}
