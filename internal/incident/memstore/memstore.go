// Package memstore provides an in-memory implementation of incident.Store.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/linnemanlabs/remedy/internal/incident"
)

// Store holds incident reports in memory. Suitable for dev/testing.
type Store struct {
	mu      sync.RWMutex
	reports map[string]*incident.Report // incident ID -> report
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{reports: make(map[string]*incident.Report)}
}

// Save upserts a copy of the report, keyed by incident id.
func (s *Store) Save(_ context.Context, r *incident.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.IncidentID] = r.Clone()
	return nil
}

// Get retrieves a report by its incident id. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*incident.Report, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, false, nil
	}
	return r.Clone(), true, nil
}

// List returns summaries ordered by most recently updated first.
func (s *Store) List(_ context.Context) ([]incident.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]incident.Summary, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, incident.Summarize(r))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}
