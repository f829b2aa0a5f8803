// Package graph provides the dependency graph used to schedule agent tasks.
package graph

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nevscope/nevscope/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found among the roles.
var ErrCycleDetected = errors.New("circular dependency detected")

// DependencyGraph is a directed acyclic graph of role prerequisites.
// Roles are nodes, and edges represent "requires" relationships.
type DependencyGraph struct {
	mu sync.RWMutex
	// order holds role names in declaration order.
	order []string
	// edges maps a role to its prerequisites, in declaration order.
	edges map[string][]models.Requirement
}

// New creates a new empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		edges: make(map[string][]models.Requirement),
	}
}

// Build constructs the graph from tasks in declaration order.
// Returns an error if a prerequisite references an unknown role, a role is
// declared twice, or a cycle is detected.
func (g *DependencyGraph) Build(tasks []*models.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	// First pass: register all roles as nodes.
	for _, task := range tasks {
		if _, exists := g.edges[task.Role]; exists {
			return fmt.Errorf("role %s declared more than once", task.Role)
		}
		g.order = append(g.order, task.Role)
		g.edges[task.Role] = nil
	}

	// Second pass: build edges from the requirement lists.
	for _, task := range tasks {
		for _, req := range task.Requires {
			if _, exists := g.edges[req.Role]; !exists {
				return fmt.Errorf("role %s requires unknown role %s", task.Role, req.Role)
			}
			g.edges[task.Role] = append(g.edges[task.Role], req)
		}
	}

	if g.hasCycleLocked() {
		return ErrCycleDetected
	}
	return nil
}

// hasCycleLocked detects back edges with DFS coloring. Caller must hold g.mu.
func (g *DependencyGraph) hasCycleLocked() bool {
	// Color states: 0 = white (unvisited), 1 = gray (in progress), 2 = black (done).
	colors := make(map[string]int, len(g.edges))

	var visit func(role string) bool
	visit = func(role string) bool {
		colors[role] = 1

		for _, req := range g.edges[role] {
			switch colors[req.Role] {
			case 1:
				return true
			case 0:
				if visit(req.Role) {
					return true
				}
			}
		}

		colors[role] = 2
		return false
	}

	for _, role := range g.order {
		if colors[role] == 0 {
			if visit(role) {
				return true
			}
		}
	}
	return false
}

// ReadySet returns the roles that are still waiting and whose prerequisites
// are all terminal, with every mandatory prerequisite succeeded. Results are
// in declaration order.
func (g *DependencyGraph) ReadySet(states map[string]models.TaskState) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []string
	for _, role := range g.order {
		if states[role] != models.TaskStateWaiting {
			continue
		}

		eligible := true
		for _, req := range g.edges[role] {
			st := states[req.Role]
			if !st.Terminal() {
				eligible = false
				break
			}
			if st != models.TaskStateSucceeded && !req.Optional {
				// A failed mandatory prerequisite makes the role skippable,
				// not ready; BlockedSet reports it.
				eligible = false
				break
			}
		}
		if eligible {
			ready = append(ready, role)
		}
	}
	return ready
}

// BlockedSet returns the waiting roles that can never become ready because a
// mandatory prerequisite ended in failed or skipped. Each is paired with the
// first prerequisite that blocks it, in declaration order.
func (g *DependencyGraph) BlockedSet(states map[string]models.TaskState) map[string]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	blocked := make(map[string]string)
	for _, role := range g.order {
		if states[role] != models.TaskStateWaiting {
			continue
		}
		for _, req := range g.edges[role] {
			st := states[req.Role]
			if st.Terminal() && st != models.TaskStateSucceeded && !req.Optional {
				blocked[role] = req.Role
				break
			}
		}
	}
	return blocked
}

// PendingDependents returns the number of non-terminal roles that depend on
// the given role, directly or transitively. The scheduler uses this to
// prioritize roles that unblock the most downstream work.
func (g *DependencyGraph) PendingDependents(role string, states map[string]models.TaskState) int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]bool)
	var walk func(role string)
	walk = func(role string) {
		for _, dep := range g.dependentsLocked(role) {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			walk(dep)
		}
	}
	walk(role)

	count := 0
	for dep := range seen {
		if !states[dep].Terminal() {
			count++
		}
	}
	return count
}

// Dependents returns the roles that directly require the given role.
func (g *DependencyGraph) Dependents(role string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dependentsLocked(role)
}

// dependentsLocked returns direct dependents without acquiring the lock.
// Caller must hold g.mu.
func (g *DependencyGraph) dependentsLocked(role string) []string {
	var dependents []string
	for _, candidate := range g.order {
		for _, req := range g.edges[candidate] {
			if req.Role == role {
				dependents = append(dependents, candidate)
				break
			}
		}
	}
	return dependents
}

// Requirements returns the prerequisites of the given role in declaration order.
func (g *DependencyGraph) Requirements(role string) []models.Requirement {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]models.Requirement, len(g.edges[role]))
	copy(out, g.edges[role])
	return out
}

// Order returns all role names in declaration order.
func (g *DependencyGraph) Order() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Size returns the number of roles in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order)
}
