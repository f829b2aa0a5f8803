package inference

import (
	"sync"

	"github.com/nevscope/nevscope/pkg/models"
)

// TokenTracker accumulates token usage across inference calls, per role and
// in total. Safe for concurrent use.
type TokenTracker struct {
	mu      sync.Mutex
	total   models.Usage
	perRole map[string]models.Usage
	calls   int
}

// NewTokenTracker creates a new token tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{perRole: make(map[string]models.Usage)}
}

// Add records token usage from one call made on behalf of a role.
func (t *TokenTracker) Add(role string, usage models.Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total.Add(usage)
	perRole := t.perRole[role]
	perRole.Add(usage)
	t.perRole[role] = perRole
	t.calls++
}

// Total returns the accumulated usage across all roles.
func (t *TokenTracker) Total() models.Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Role returns the accumulated usage for a single role.
func (t *TokenTracker) Role(role string) models.Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.perRole[role]
}

// Calls returns the number of calls recorded.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
