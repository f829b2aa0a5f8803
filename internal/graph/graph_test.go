package graph

import (
	"errors"
	"testing"

	"github.com/nevscope/nevscope/pkg/models"
)

func task(role string, reqs ...models.Requirement) *models.Task {
	return &models.Task{Role: role, Requires: reqs, State: models.TaskStateWaiting}
}

func req(role string) models.Requirement {
	return models.Requirement{Role: role}
}

func optReq(role string) models.Requirement {
	return models.Requirement{Role: role, Optional: true}
}

func TestBuildSimple(t *testing.T) {
	g := New()
	err := g.Build([]*models.Task{task("macro"), task("finance"), task("market")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Size() != 3 {
		t.Errorf("expected size 3, got %d", g.Size())
	}
}

func TestBuildUnknownPrerequisite(t *testing.T) {
	g := New()
	err := g.Build([]*models.Task{task("forecast", req("nonexistent"))})
	if err == nil {
		t.Fatal("expected error for unknown prerequisite")
	}
}

func TestBuildDuplicateRole(t *testing.T) {
	g := New()
	err := g.Build([]*models.Task{task("macro"), task("macro")})
	if err == nil {
		t.Fatal("expected error for duplicate role")
	}
}

func TestBuildCycleDetection(t *testing.T) {
	// a -> b -> c -> a
	g := New()
	err := g.Build([]*models.Task{
		task("a", req("b")),
		task("b", req("c")),
		task("c", req("a")),
	})
	if !errors.Is(err, ErrCycleDetected) {
		t.Errorf("expected ErrCycleDetected, got %v", err)
	}
}

func TestBuildSelfLoop(t *testing.T) {
	g := New()
	err := g.Build([]*models.Task{task("a", req("a"))})
	if !errors.Is(err, ErrCycleDetected) {
		t.Errorf("expected ErrCycleDetected for self-loop, got %v", err)
	}
}

func TestReadySetIndependentRoles(t *testing.T) {
	g := New()
	if err := g.Build([]*models.Task{task("macro"), task("finance"), task("market")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	states := map[string]models.TaskState{
		"macro":   models.TaskStateWaiting,
		"finance": models.TaskStateWaiting,
		"market":  models.TaskStateWaiting,
	}

	ready := g.ReadySet(states)
	if len(ready) != 3 {
		t.Fatalf("expected 3 ready roles, got %d: %v", len(ready), ready)
	}
	// Declaration order must be preserved for deterministic tie-breaking.
	want := []string{"macro", "finance", "market"}
	for i, role := range want {
		if ready[i] != role {
			t.Errorf("ready[%d] = %s, want %s", i, ready[i], role)
		}
	}
}

func TestReadySetWaitsForPrerequisites(t *testing.T) {
	g := New()
	if err := g.Build([]*models.Task{
		task("macro"),
		task("finance"),
		task("forecast", req("macro"), req("finance")),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	states := map[string]models.TaskState{
		"macro":    models.TaskStateRunning,
		"finance":  models.TaskStateSucceeded,
		"forecast": models.TaskStateWaiting,
	}
	if ready := g.ReadySet(states); len(ready) != 0 {
		t.Errorf("expected no ready roles while macro is running, got %v", ready)
	}

	states["macro"] = models.TaskStateSucceeded
	ready := g.ReadySet(states)
	if len(ready) != 1 || ready[0] != "forecast" {
		t.Errorf("expected [forecast], got %v", ready)
	}
}

func TestReadySetOptionalPrerequisiteFailed(t *testing.T) {
	g := New()
	if err := g.Build([]*models.Task{
		task("macro"),
		task("policy", optReq("macro")),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	states := map[string]models.TaskState{
		"macro":  models.TaskStateFailed,
		"policy": models.TaskStateWaiting,
	}
	ready := g.ReadySet(states)
	if len(ready) != 1 || ready[0] != "policy" {
		t.Errorf("expected policy ready despite failed optional prerequisite, got %v", ready)
	}
}

func TestBlockedSetMandatoryPrerequisiteFailed(t *testing.T) {
	g := New()
	if err := g.Build([]*models.Task{
		task("macro"),
		task("finance"),
		task("forecast", req("macro"), req("finance")),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	states := map[string]models.TaskState{
		"macro":    models.TaskStateFailed,
		"finance":  models.TaskStateSucceeded,
		"forecast": models.TaskStateWaiting,
	}

	if ready := g.ReadySet(states); len(ready) != 0 {
		t.Errorf("expected no ready roles, got %v", ready)
	}

	blocked := g.BlockedSet(states)
	if blocked["forecast"] != "macro" {
		t.Errorf("expected forecast blocked by macro, got %v", blocked)
	}
}

func TestBlockedSetCascades(t *testing.T) {
	// a failed; b needs a; c needs b. Once b is skipped, c blocks on b.
	g := New()
	if err := g.Build([]*models.Task{
		task("a"),
		task("b", req("a")),
		task("c", req("b")),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	states := map[string]models.TaskState{
		"a": models.TaskStateFailed,
		"b": models.TaskStateWaiting,
		"c": models.TaskStateWaiting,
	}
	blocked := g.BlockedSet(states)
	if blocked["b"] != "a" {
		t.Fatalf("expected b blocked by a, got %v", blocked)
	}

	states["b"] = models.TaskStateSkipped
	blocked = g.BlockedSet(states)
	if blocked["c"] != "b" {
		t.Errorf("expected c blocked by skipped b, got %v", blocked)
	}
}

func TestPendingDependents(t *testing.T) {
	g := New()
	if err := g.Build([]*models.Task{
		task("macro"),
		task("finance"),
		task("forecast", req("finance")),
		task("outlook", req("forecast")),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	states := map[string]models.TaskState{
		"macro":    models.TaskStateWaiting,
		"finance":  models.TaskStateWaiting,
		"forecast": models.TaskStateWaiting,
		"outlook":  models.TaskStateWaiting,
	}

	if n := g.PendingDependents("finance", states); n != 2 {
		t.Errorf("expected 2 pending dependents for finance, got %d", n)
	}
	if n := g.PendingDependents("macro", states); n != 0 {
		t.Errorf("expected 0 pending dependents for macro, got %d", n)
	}

	states["outlook"] = models.TaskStateSkipped
	if n := g.PendingDependents("finance", states); n != 1 {
		t.Errorf("expected 1 pending dependent after outlook skipped, got %d", n)
	}
}

func TestDependents(t *testing.T) {
	g := New()
	if err := g.Build([]*models.Task{
		task("macro"),
		task("policy", optReq("macro")),
		task("forecast", req("macro")),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deps := g.Dependents("macro")
	if len(deps) != 2 {
		t.Fatalf("expected 2 dependents of macro, got %v", deps)
	}
}

func TestRequirementsReturnsCopy(t *testing.T) {
	g := New()
	if err := g.Build([]*models.Task{
		task("macro"),
		task("forecast", req("macro")),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reqs := g.Requirements("forecast")
	if len(reqs) != 1 || reqs[0].Role != "macro" {
		t.Fatalf("requirements = %v, want [macro]", reqs)
	}

	reqs[0].Role = "mutated"
	if again := g.Requirements("forecast"); again[0].Role != "macro" {
		t.Errorf("graph requirement changed to %s after caller mutation", again[0].Role)
	}
}
