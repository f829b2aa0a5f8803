package orchestrator

import (
	"sync"

	"github.com/nevscope/nevscope/pkg/models"
)

// ResultStore collects task results for one run. It is append-only: a role's
// result is written at most once, and a second write is rejected. Safe for
// concurrent use.
type ResultStore struct {
	mu      sync.RWMutex
	order   []string
	results map[string]*models.AgentResult
}

// NewResultStore creates an empty result store.
func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]*models.AgentResult)}
}

// Put records a role's result. Returns DuplicateWriteError if a result for
// the role is already present.
func (s *ResultStore) Put(result *models.AgentResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[result.Role]; exists {
		return &DuplicateWriteError{Role: result.Role}
	}
	s.order = append(s.order, result.Role)
	s.results[result.Role] = result
	return nil
}

// Get returns the result for a role, or nil if none was recorded.
func (s *ResultStore) Get(role string) *models.AgentResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.results[role]
}

// Has reports whether a result exists for the role.
func (s *ResultStore) Has(role string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.results[role]
	return ok
}

// Roles returns the roles with recorded results, in write order.
func (s *ResultStore) Roles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Snapshot returns a point-in-time copy of all recorded results keyed by role.
func (s *ResultStore) Snapshot() map[string]*models.AgentResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.AgentResult, len(s.results))
	for role, result := range s.results {
		out[role] = result
	}
	return out
}

// Len returns the number of recorded results.
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
