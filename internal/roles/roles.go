// Package roles defines the analysis agents: what data each one reads, what
// it asks the model, which upstream results it consumes, and how its response
// is parsed.
package roles

import (
	"fmt"
	"sync"

	"github.com/nevscope/nevscope/pkg/models"
)

// PromptInput carries everything a role's prompt builder may draw on.
type PromptInput struct {
	// Summaries maps logical dataset names to their textual summaries.
	Summaries map[string]string
	// Upstream maps prerequisite role names to their parsed results.
	Upstream map[string]map[string]any
	// Omitted lists prerequisite roles whose results are unavailable.
	Omitted []string
}

// Spec describes one analysis role.
type Spec struct {
	// Name is the unique role identifier (e.g., "macro").
	Name string
	// Description is a one-line summary shown in CLI listings.
	Description string
	// Requires lists prerequisite roles, optional or mandatory.
	Requires []models.Requirement
	// Datasets lists the logical dataset names this role summarizes.
	Datasets []string
	// FallbackField receives the raw response text when JSON parsing fails.
	FallbackField string
	// EmptyFields are set to empty values alongside FallbackField on parse failure.
	EmptyFields map[string]any
	// Prompt builds the user prompt from the assembled input.
	Prompt func(in PromptInput) string
}

// Table is an ordered registry of role specs. Declaration order is
// significant: it breaks scheduling ties and orders report sections.
type Table struct {
	mu    sync.RWMutex
	order []string
	specs map[string]*Spec
}

// NewTable creates an empty role table.
func NewTable() *Table {
	return &Table{specs: make(map[string]*Spec)}
}

// Register adds a spec to the table. Duplicate names are an error.
func (t *Table) Register(spec *Spec) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if spec.Name == "" {
		return fmt.Errorf("role spec has no name")
	}
	if _, exists := t.specs[spec.Name]; exists {
		return fmt.Errorf("role %s registered more than once", spec.Name)
	}
	t.order = append(t.order, spec.Name)
	t.specs[spec.Name] = spec
	return nil
}

// Get returns the spec for a role name, or nil if unknown.
func (t *Table) Get(name string) *Spec {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.specs[name]
}

// Names returns all registered role names in declaration order.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Specs returns all registered specs in declaration order.
func (t *Table) Specs() []*Spec {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Spec, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.specs[name])
	}
	return out
}

// Tasks builds the task list for the given role names, or for every
// registered role when names is empty. Mandatory prerequisites of selected
// roles are pulled in transitively; optional prerequisites that were not
// selected are dropped from the requirement list. Unknown names are an error.
func (t *Table) Tasks(names []string) ([]*models.Task, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(names) == 0 {
		names = t.order
	}

	selected := make(map[string]bool)
	var expand func(name string) error
	expand = func(name string) error {
		if selected[name] {
			return nil
		}
		spec, ok := t.specs[name]
		if !ok {
			return fmt.Errorf("unknown role: %s", name)
		}
		selected[name] = true
		for _, req := range spec.Requires {
			if req.Optional {
				continue
			}
			if err := expand(req.Role); err != nil {
				return err
			}
		}
		return nil
	}
	for _, name := range names {
		if err := expand(name); err != nil {
			return nil, err
		}
	}

	// Emit in declaration order regardless of selection order.
	var tasks []*models.Task
	for _, name := range t.order {
		if !selected[name] {
			continue
		}
		spec := t.specs[name]
		var requires []models.Requirement
		for _, req := range spec.Requires {
			if req.Optional && !selected[req.Role] {
				continue
			}
			requires = append(requires, req)
		}
		tasks = append(tasks, &models.Task{
			Role:     spec.Name,
			Requires: requires,
			State:    models.TaskStateWaiting,
		})
	}
	return tasks, nil
}
