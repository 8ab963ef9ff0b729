package admin

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/feliperosa/trainvault/internal/model"
	"github.com/feliperosa/trainvault/internal/store"
	"github.com/feliperosa/trainvault/internal/training"
)

func newService(t *testing.T) (*Service, store.Store, *model.InMemoryHandle) {
	t.Helper()
	backend := store.NewInMemoryStore()
	handle := model.NewInMemoryHandle()
	return NewService(backend, handle, t.TempDir()), backend, handle
}

func seedHandle(handle *model.InMemoryHandle) {
	handle.Seed(
		training.Record{RecordID: "s1", Type: training.TypeSQL, Content: "SELECT 1", Question: "one?"},
		training.Record{RecordID: "d1", Type: training.TypeDDL, Content: "CREATE TABLE t (id int)"},
		training.Record{RecordID: "doc1", Type: training.TypeDocumentation, Content: "the t table holds things"},
	)
}

func TestBackupWritesJSONAndDB(t *testing.T) {
	svc, backend, handle := newService(t)
	seedHandle(handle)
	ctx := context.Background()

	res, err := svc.Backup(ctx, "", BackupBoth)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if res.RecordsCount != 3 {
		t.Fatalf("RecordsCount = %d, want 3", res.RecordsCount)
	}
	if res.JSONPath == "" || !res.DBSaved {
		t.Fatalf("result = %+v, want both targets written", res)
	}
	if base := filepath.Base(res.JSONPath); !strings.HasPrefix(base, "backup_training_global_") {
		t.Fatalf("backup filename = %q, want backup_training_global_ prefix", base)
	}

	ids, err := backend.GetIDs(ctx, store.ScopeGlobal)
	if err != nil {
		t.Fatalf("GetIDs() error = %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("global scope has %d ids, want 3", len(ids))
	}
}

func TestBackupTenantFilename(t *testing.T) {
	svc, _, handle := newService(t)
	seedHandle(handle)

	res, err := svc.Backup(context.Background(), "acme", BackupJSON)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if base := filepath.Base(res.JSONPath); !strings.HasPrefix(base, "backup_training_tenant_acme_") {
		t.Fatalf("backup filename = %q, want backup_training_tenant_acme_ prefix", base)
	}
	if res.DBSaved {
		t.Fatalf("json-only backup wrote to the database")
	}
}

func TestBackupEmptyModelIsNoOp(t *testing.T) {
	svc, _, _ := newService(t)

	res, err := svc.Backup(context.Background(), "", BackupBoth)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if res.RecordsCount != 0 || res.JSONPath != "" || res.DBSaved {
		t.Fatalf("result = %+v, want nothing written for an empty model", res)
	}
}

func TestRemoveAllRequiresConfirmation(t *testing.T) {
	svc, _, handle := newService(t)
	seedHandle(handle)
	ctx := context.Background()

	_, err := svc.RemoveAll(ctx, false)
	if !errors.Is(err, training.ErrConfirmationRequired) {
		t.Fatalf("RemoveAll(confirm=false) error = %v, want ErrConfirmationRequired", err)
	}
	live, _ := handle.ListAll(ctx)
	if len(live) != 3 {
		t.Fatalf("unconfirmed removal touched the model: %d records left", len(live))
	}

	res, err := svc.RemoveAll(ctx, true)
	if err != nil {
		t.Fatalf("RemoveAll(confirm=true) error = %v", err)
	}
	if res.RemovedCount != 3 || res.FailedCount != 0 {
		t.Fatalf("result = %+v, want 3 removed", res)
	}
	live, _ = handle.ListAll(ctx)
	if len(live) != 0 {
		t.Fatalf("%d records left after removal, want 0", len(live))
	}
}

func TestRestoreFromJSONFileRoundtrip(t *testing.T) {
	svc, _, handle := newService(t)
	seedHandle(handle)
	ctx := context.Background()

	res, err := svc.Backup(ctx, "", BackupJSON)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	if _, err := svc.RemoveAll(ctx, true); err != nil {
		t.Fatalf("RemoveAll() error = %v", err)
	}

	restored, err := svc.Restore(ctx, "", res.JSONPath)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if restored.RecordsLoaded != 3 || restored.TrainedCount != 3 {
		t.Fatalf("result = %+v, want 3 loaded and trained", restored)
	}

	live, _ := handle.ListAll(ctx)
	if len(live) != 3 {
		t.Fatalf("live model has %d records after restore, want 3", len(live))
	}
}

func TestRestoreSkipsUntrainableRecords(t *testing.T) {
	svc, backend, handle := newService(t)
	ctx := context.Background()

	if err := backend.Save(ctx, store.ScopeGlobal, []training.Record{
		{RecordID: "ok", Type: training.TypeDDL, Content: "CREATE TABLE x (id int)"},
		{RecordID: "no-question", Type: training.TypeSQL, Content: "SELECT 2"},
		{RecordID: "weird", Type: training.RecordType("mystery"), Content: "???"},
	}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	res, err := svc.Restore(ctx, "", "")
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if res.TrainedCount != 1 {
		t.Fatalf("TrainedCount = %d, want 1 (sql without question and unknown types skipped)", res.TrainedCount)
	}

	live, _ := handle.ListAll(ctx)
	if len(live) != 1 {
		t.Fatalf("live model has %d records, want 1", len(live))
	}
}

func TestRestoreEmptySourceFails(t *testing.T) {
	svc, _, _ := newService(t)

	if _, err := svc.Restore(context.Background(), "", ""); err == nil {
		t.Fatalf("Restore() from an empty scope succeeded, want error")
	}
}

func TestSyncBothDirections(t *testing.T) {
	svc, backend, handle := newService(t)
	seedHandle(handle)
	ctx := context.Background()

	res, err := svc.Sync(ctx, ModelToStore, "acme")
	if err != nil {
		t.Fatalf("Sync(model_to_store) error = %v", err)
	}
	if res.SyncedCount != 3 {
		t.Fatalf("SyncedCount = %d, want 3", res.SyncedCount)
	}
	ids, _ := backend.GetIDs(ctx, "acme")
	if len(ids) != 3 {
		t.Fatalf("tenant scope has %d ids after sync, want 3", len(ids))
	}

	if _, err := svc.RemoveAll(ctx, true); err != nil {
		t.Fatalf("RemoveAll() error = %v", err)
	}

	res, err = svc.Sync(ctx, StoreToModel, "acme")
	if err != nil {
		t.Fatalf("Sync(store_to_model) error = %v", err)
	}
	if res.SyncedCount != 3 {
		t.Fatalf("SyncedCount = %d, want 3", res.SyncedCount)
	}
	live, _ := handle.ListAll(ctx)
	if len(live) != 3 {
		t.Fatalf("live model has %d records after sync back, want 3", len(live))
	}
}

func TestCompareCountsDifferences(t *testing.T) {
	svc, backend, handle := newService(t)
	ctx := context.Background()

	handle.Seed(
		training.Record{RecordID: "shared", Type: training.TypeDDL, Content: "same"},
		training.Record{RecordID: "drift", Type: training.TypeDDL, Content: "live version"},
		training.Record{RecordID: "model-only", Type: training.TypeDocumentation, Content: "x"},
	)
	if err := backend.Save(ctx, store.ScopeGlobal, []training.Record{
		{RecordID: "shared", Content: "same"},
		{RecordID: "drift", Content: "stored version"},
		{RecordID: "store-only", Content: "y"},
	}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	res, err := svc.Compare(ctx, "")
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if res.OnlyInModel != 1 || res.OnlyInStore != 1 || res.ContentMismatch != 1 {
		t.Fatalf("result = %+v, want 1/1/1", res)
	}
}

func TestStatusCountsBothSides(t *testing.T) {
	svc, backend, handle := newService(t)
	seedHandle(handle)
	ctx := context.Background()

	if err := backend.Save(ctx, store.ScopeGlobal, []training.Record{{RecordID: "g", Content: "x"}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := svc.Backup(ctx, "", BackupJSON); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	st := svc.Status(ctx)
	if !st.ModelReachable || !st.StoreReachable {
		t.Fatalf("status = %+v, want both sides reachable", st)
	}
	if st.ModelCount != 3 || st.GlobalIDCount != 1 || st.JSONBackups != 1 {
		t.Fatalf("status = %+v, want counts 3/1/1", st)
	}
}

func TestListBackupsNewestFirst(t *testing.T) {
	svc, _, handle := newService(t)
	seedHandle(handle)

	if _, err := svc.Backup(context.Background(), "", BackupJSON); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	backups, err := svc.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups() error = %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("got %d backups, want 1", len(backups))
	}
	if backups[0].SizeBytes == 0 {
		t.Fatalf("backup file is empty")
	}
}

func TestParseBackupType(t *testing.T) {
	for in, want := range map[string]BackupType{
		"":           BackupBoth,
		"both":       BackupBoth,
		"json":       BackupJSON,
		"db":         BackupDB,
		"PostgreSQL": BackupDB,
	} {
		got, err := ParseBackupType(in)
		if err != nil {
			t.Fatalf("ParseBackupType(%q) error = %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseBackupType(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseBackupType("tape"); err == nil {
		t.Fatalf("ParseBackupType(tape) succeeded, want error")
	}
}

func TestParseSyncDirection(t *testing.T) {
	for in, want := range map[string]SyncDirection{
		"model_to_store": ModelToStore,
		"A_to_B":         ModelToStore,
		"store_to_model": StoreToModel,
		"b_to_a":         StoreToModel,
	} {
		got, err := ParseSyncDirection(in)
		if err != nil {
			t.Fatalf("ParseSyncDirection(%q) error = %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseSyncDirection(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseSyncDirection("sideways"); err == nil {
		t.Fatalf("ParseSyncDirection(sideways) succeeded, want error")
	}
}
