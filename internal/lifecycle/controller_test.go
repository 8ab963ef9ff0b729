package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/feliperosa/trainvault/internal/model"
	"github.com/feliperosa/trainvault/internal/reconcile"
	"github.com/feliperosa/trainvault/internal/store"
	"github.com/feliperosa/trainvault/internal/training"
)

// countingStore counts mutating calls so tests can assert no-ops.
type countingStore struct {
	store.Store
	saveCalls   int
	deleteCalls int
	failSaves   int
}

func (c *countingStore) Save(ctx context.Context, scope store.Scope, records []training.Record) error {
	c.saveCalls++
	if c.failSaves > 0 {
		c.failSaves--
		return training.ErrBackendUnavailable
	}
	return c.Store.Save(ctx, scope, records)
}

func (c *countingStore) Delete(ctx context.Context, scope store.Scope, ids []string) error {
	c.deleteCalls++
	return c.Store.Delete(ctx, scope, ids)
}

func newFixture(t *testing.T) (*Controller, *countingStore, *model.InMemoryHandle) {
	t.Helper()
	backend := &countingStore{Store: store.NewInMemoryStore()}
	handle := model.NewInMemoryHandle()
	engine := reconcile.NewEngine(backend, handle)
	return NewController(engine, backend, handle, nil), backend, handle
}

func seedScenario(t *testing.T, backend store.Store, handle *model.InMemoryHandle) {
	t.Helper()
	if err := backend.Save(context.Background(), store.ScopeGlobal, []training.Record{
		{RecordID: "a", Content: "protected ddl"},
	}); err != nil {
		t.Fatalf("seed global backup: %v", err)
	}
	handle.Seed(
		training.Record{RecordID: "a", Type: training.TypeDDL, Content: "protected ddl"},
		training.Record{RecordID: "b", Type: training.TypeSQL, Content: "SELECT 1", Question: "one?"},
		training.Record{RecordID: "c", Type: training.TypeDocumentation, Content: "session docs"},
	)
}

func TestRunCleanupPersistsThenRemovesSessionLocal(t *testing.T) {
	ctrl, backend, handle := newFixture(t)
	seedScenario(t, backend, handle)
	ctx := context.Background()

	if !ctrl.RunCleanup(ctx, "7", false) {
		t.Fatalf("RunCleanup() = false, want true")
	}

	ids, err := backend.GetIDs(ctx, "7")
	if err != nil {
		t.Fatalf("GetIDs() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "b" || ids[1] != "c" {
		t.Fatalf("tenant scope ids = %v, want [b c]", ids)
	}

	live, _ := handle.ListAll(ctx)
	if len(live) != 1 || live[0].RecordID != "a" {
		t.Fatalf("live model = %v, want only the protected record a", training.IDsOf(live))
	}
}

func TestRunCleanupIsIdempotentPerTenant(t *testing.T) {
	ctrl, backend, handle := newFixture(t)
	seedScenario(t, backend, handle)
	ctx := context.Background()

	if !ctrl.RunCleanup(ctx, "7", false) {
		t.Fatalf("first RunCleanup() = false, want true")
	}
	savesAfterFirst := backend.saveCalls

	if !ctrl.RunCleanup(ctx, "7", false) {
		t.Fatalf("second RunCleanup() = false, want true")
	}
	if backend.saveCalls != savesAfterFirst {
		t.Fatalf("second call saved again (%d -> %d calls), want no-op", savesAfterFirst, backend.saveCalls)
	}
}

func TestRunCleanupGateResetsOnTenantChange(t *testing.T) {
	ctrl, backend, handle := newFixture(t)
	seedScenario(t, backend, handle)
	ctx := context.Background()

	if !ctrl.RunCleanup(ctx, "7", false) {
		t.Fatalf("RunCleanup(7) = false, want true")
	}

	handle.Seed(training.Record{RecordID: "d", Type: training.TypeSQL, Content: "SELECT 2", Question: "two?"})
	if !ctrl.RunCleanup(ctx, "8", false) {
		t.Fatalf("RunCleanup(8) = false, want true")
	}

	ids, _ := backend.GetIDs(ctx, "8")
	if len(ids) != 1 || ids[0] != "d" {
		t.Fatalf("tenant 8 ids = %v, want [d]", ids)
	}
}

func TestRunCleanupForceRunsAgain(t *testing.T) {
	ctrl, backend, handle := newFixture(t)
	seedScenario(t, backend, handle)
	ctx := context.Background()

	if !ctrl.RunCleanup(ctx, "7", false) {
		t.Fatalf("RunCleanup() = false, want true")
	}

	handle.Seed(training.Record{RecordID: "e", Type: training.TypeDDL, Content: "late ddl"})
	if !ctrl.RunCleanup(ctx, "7", true) {
		t.Fatalf("forced RunCleanup() = false, want true")
	}

	ids, _ := backend.GetIDs(ctx, "7")
	found := false
	for _, id := range ids {
		if id == "e" {
			found = true
		}
	}
	if !found {
		t.Fatalf("forced run did not persist the late record, ids = %v", ids)
	}
}

func TestRunCleanupWithoutTenantIsRejected(t *testing.T) {
	ctrl, backend, _ := newFixture(t)

	if ctrl.RunCleanup(context.Background(), "  ", false) {
		t.Fatalf("RunCleanup with no tenant = true, want false")
	}
	if backend.saveCalls != 0 || backend.deleteCalls != 0 {
		t.Fatalf("backend was called for an empty tenant")
	}
}

func TestRunCleanupEmptySessionIsNoOp(t *testing.T) {
	ctrl, backend, _ := newFixture(t)

	if !ctrl.RunCleanup(context.Background(), "7", false) {
		t.Fatalf("RunCleanup() = false, want true for empty session")
	}
	if backend.saveCalls != 0 {
		t.Fatalf("save invoked for empty session")
	}
}

func TestRunCleanupFailureLeavesStateForRetry(t *testing.T) {
	backend := &countingStore{Store: store.NewInMemoryStore(), failSaves: 1}
	handle := model.NewInMemoryHandle()
	engine := reconcile.NewEngine(backend, handle)
	ctrl := NewController(engine, backend, handle, nil)
	seedScenario(t, backend.Store, handle)
	ctx := context.Background()

	if ctrl.RunCleanup(ctx, "7", false) {
		t.Fatalf("RunCleanup() = true despite save failure")
	}

	// The record must never be gone from both sides: the failed save aborts
	// before any removal.
	live, _ := handle.ListAll(ctx)
	if len(live) != 3 {
		t.Fatalf("live model shrank to %d records after failed persist, want 3", len(live))
	}

	// The idempotency gate was not set, so the retry does the real work.
	if !ctrl.RunCleanup(ctx, "7", false) {
		t.Fatalf("retry RunCleanup() = false, want true")
	}
	ids, _ := backend.GetIDs(ctx, "7")
	if len(ids) != 2 {
		t.Fatalf("retry persisted %d records, want 2", len(ids))
	}
}

func TestRemoveFailuresDoNotAbortTheBatch(t *testing.T) {
	backend := &countingStore{Store: store.NewInMemoryStore()}
	handle := &flakyHandle{InMemoryHandle: model.NewInMemoryHandle(), failID: "b"}
	engine := reconcile.NewEngine(backend, handle)
	ctrl := NewController(engine, backend, handle, nil)
	seedScenario(t, backend.Store, handle.InMemoryHandle)
	ctx := context.Background()

	if !ctrl.RunCleanup(ctx, "7", false) {
		t.Fatalf("RunCleanup() = false, want true despite one remove failure")
	}

	live, _ := handle.ListAll(ctx)
	ids := training.IDsOf(live)
	if len(ids) != 2 {
		t.Fatalf("live model = %v, want the protected record plus the one that failed to remove", ids)
	}
}

// flakyHandle fails removal of one specific id.
type flakyHandle struct {
	*model.InMemoryHandle
	failID string
}

func (f *flakyHandle) Remove(ctx context.Context, id string) error {
	if id == f.failID {
		return errors.New("transient model error")
	}
	return f.InMemoryHandle.Remove(ctx, id)
}
