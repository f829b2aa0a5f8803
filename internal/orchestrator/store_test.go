package orchestrator

import (
	"errors"
	"sync"
	"testing"

	"github.com/nevscope/nevscope/pkg/models"
)

func TestStorePutAndGet(t *testing.T) {
	store := NewResultStore()
	result := &models.AgentResult{Role: "macro", Content: map[string]any{"macro_summary": "ok"}}
	if err := store.Put(result); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if got := store.Get("macro"); got != result {
		t.Errorf("Get(macro) = %v, want the stored result", got)
	}
	if store.Get("finance") != nil {
		t.Error("Get(finance) should be nil")
	}
}

func TestStoreRejectsDuplicateWrite(t *testing.T) {
	store := NewResultStore()
	if err := store.Put(&models.AgentResult{Role: "macro"}); err != nil {
		t.Fatalf("first Put() error: %v", err)
	}
	err := store.Put(&models.AgentResult{Role: "macro"})
	var dupErr *DuplicateWriteError
	if !errors.As(err, &dupErr) {
		t.Fatalf("expected DuplicateWriteError, got %v", err)
	}
	if dupErr.Role != "macro" {
		t.Errorf("duplicate role = %s, want macro", dupErr.Role)
	}
	// The original result is untouched.
	if store.Len() != 1 {
		t.Errorf("len = %d, want 1", store.Len())
	}
}

func TestStoreRolesInWriteOrder(t *testing.T) {
	store := NewResultStore()
	for _, role := range []string{"market", "macro", "finance"} {
		if err := store.Put(&models.AgentResult{Role: role}); err != nil {
			t.Fatalf("Put(%s) error: %v", role, err)
		}
	}
	got := store.Roles()
	want := []string{"market", "macro", "finance"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("roles[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestStoreSnapshotIsCopy(t *testing.T) {
	store := NewResultStore()
	if err := store.Put(&models.AgentResult{Role: "macro"}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	snap := store.Snapshot()
	delete(snap, "macro")
	if !store.Has("macro") {
		t.Error("mutating a snapshot must not affect the store")
	}
}

func TestStoreConcurrentWrites(t *testing.T) {
	store := NewResultStore()
	roles := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	var wg sync.WaitGroup
	for _, role := range roles {
		wg.Add(1)
		go func(role string) {
			defer wg.Done()
			if err := store.Put(&models.AgentResult{Role: role}); err != nil {
				t.Errorf("Put(%s) error: %v", role, err)
			}
		}(role)
	}
	wg.Wait()

	if store.Len() != len(roles) {
		t.Errorf("len = %d, want %d", store.Len(), len(roles))
	}
}
