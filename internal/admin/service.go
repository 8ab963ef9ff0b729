package admin

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/feliperosa/trainvault/internal/model"
	"github.com/feliperosa/trainvault/internal/store"
	"github.com/feliperosa/trainvault/internal/training"
)

// BackupType selects the backup targets.
type BackupType string

const (
	BackupJSON BackupType = "json"
	BackupDB   BackupType = "db"
	BackupBoth BackupType = "both"
)

func ParseBackupType(v string) (BackupType, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "both":
		return BackupBoth, nil
	case "json":
		return BackupJSON, nil
	case "db", "postgresql":
		return BackupDB, nil
	default:
		return "", fmt.Errorf("unsupported backup type %q", v)
	}
}

// SyncDirection names the two sync flows between model and backend.
type SyncDirection string

const (
	ModelToStore SyncDirection = "model_to_store"
	StoreToModel SyncDirection = "store_to_model"
)

func ParseSyncDirection(v string) (SyncDirection, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "model_to_store", "a_to_b":
		return ModelToStore, nil
	case "store_to_model", "b_to_a":
		return StoreToModel, nil
	default:
		return "", fmt.Errorf("unsupported sync direction %q", v)
	}
}

// Service implements the administrative batch operations over the live model
// and the persistence backend.
type Service struct {
	store     store.Store
	model     model.Handle
	backupDir string
}

func NewService(st store.Store, handle model.Handle, backupDir string) *Service {
	return &Service{store: st, model: handle, backupDir: backupDir}
}

// BackupResult reports what a backup run produced.
type BackupResult struct {
	Tenant       string    `json:"tenant,omitempty"`
	Type         BackupType `json:"backup_type"`
	RecordsCount int       `json:"records_count"`
	JSONPath     string    `json:"json_path,omitempty"`
	DBSaved      bool      `json:"db_saved"`
	Timestamp    time.Time `json:"timestamp"`
	Errors       []string  `json:"errors,omitempty"`
}

// Backup snapshots the entire live model to a JSON file, the persistence
// backend, or both. An empty tenant writes under the global scope.
func (s *Service) Backup(ctx context.Context, tenantID string, typ BackupType) (BackupResult, error) {
	res := BackupResult{Tenant: tenantID, Type: typ, Timestamp: time.Now().UTC()}

	records, err := s.model.ListAll(ctx)
	if err != nil {
		return res, fmt.Errorf("read live model: %w", err)
	}
	if len(records) == 0 {
		log.Printf("[admin] nothing in the live model to back up")
		return res, nil
	}
	res.RecordsCount = len(records)

	if typ == BackupJSON || typ == BackupBoth {
		path, err := s.writeJSONBackup(records, tenantID)
		if err != nil {
			res.Errors = append(res.Errors, err.Error())
			log.Printf("[admin] json backup failed: %v", err)
		} else {
			res.JSONPath = path
		}
	}

	if typ == BackupDB || typ == BackupBoth {
		if err := s.store.Save(ctx, store.Scope(tenantID), records); err != nil {
			res.Errors = append(res.Errors, err.Error())
			log.Printf("[admin] db backup failed: %v", err)
		} else {
			res.DBSaved = true
		}
	}

	if res.JSONPath == "" && !res.DBSaved {
		return res, fmt.Errorf("backup produced no output: %s", strings.Join(res.Errors, "; "))
	}
	log.Printf("[admin] backup complete: %d records (json=%q, db=%v)", res.RecordsCount, res.JSONPath, res.DBSaved)
	return res, nil
}

// RemoveResult reports a bulk removal from the live model.
type RemoveResult struct {
	TotalFound   int      `json:"total_found"`
	RemovedCount int      `json:"removed_count"`
	FailedCount  int      `json:"failed_count"`
	Errors       []string `json:"errors,omitempty"`
}

// RemoveAll deletes every record from the live model. The confirm flag is
// mandatory; without it the call fails before touching anything.
func (s *Service) RemoveAll(ctx context.Context, confirm bool) (RemoveResult, error) {
	if !confirm {
		return RemoveResult{}, training.ErrConfirmationRequired
	}

	records, err := s.model.ListAll(ctx)
	if err != nil {
		return RemoveResult{}, fmt.Errorf("read live model: %w", err)
	}

	res := RemoveResult{TotalFound: len(records)}
	for _, r := range records {
		if err := s.model.Remove(ctx, r.RecordID); err != nil {
			res.FailedCount++
			res.Errors = append(res.Errors, fmt.Sprintf("remove %s: %v", r.RecordID, err))
			log.Printf("[admin] remove %s failed: %v", r.RecordID, err)
			continue
		}
		res.RemovedCount++
	}

	log.Printf("[admin] removal finished: %d/%d removed", res.RemovedCount, res.TotalFound)
	return res, nil
}

// RestoreResult reports a restore run.
type RestoreResult struct {
	Source        string   `json:"source"`
	RecordsLoaded int      `json:"records_loaded"`
	TrainedCount  int      `json:"trained_count"`
	Errors        []string `json:"errors,omitempty"`
}

// Restore re-trains the live model from a JSON backup file or, when no file is
// given, from the backend scope for the tenant (global when the tenant is
// empty). Records without content are skipped, as are sql records missing
// their question.
func (s *Service) Restore(ctx context.Context, tenantID, fromFile string) (RestoreResult, error) {
	var (
		res     RestoreResult
		records []training.Record
		err     error
	)

	if strings.TrimSpace(fromFile) != "" {
		records, err = readJSONBackup(fromFile)
		res.Source = "json:" + fromFile
	} else {
		records, err = s.store.Load(ctx, store.Scope(tenantID))
		res.Source = "store:" + string(store.Normalize(store.Scope(tenantID)))
	}
	if err != nil {
		return res, fmt.Errorf("load backup: %w", err)
	}
	if len(records) == 0 {
		return res, fmt.Errorf("no records found in %s", res.Source)
	}
	res.RecordsLoaded = len(records)

	res.TrainedCount, res.Errors = s.trainBatch(ctx, records)
	if res.TrainedCount == 0 {
		return res, fmt.Errorf("no records could be trained from %s", res.Source)
	}
	log.Printf("[admin] restore complete: %d/%d trained from %s", res.TrainedCount, res.RecordsLoaded, res.Source)
	return res, nil
}

// SyncResult reports a one-directional synchronization.
type SyncResult struct {
	Direction   SyncDirection `json:"direction"`
	Tenant      string        `json:"tenant,omitempty"`
	SourceCount int           `json:"source_count"`
	SyncedCount int           `json:"synced_count"`
	Errors      []string      `json:"errors,omitempty"`
}

// Sync copies records between the live model and the backend scope.
func (s *Service) Sync(ctx context.Context, direction SyncDirection, tenantID string) (SyncResult, error) {
	res := SyncResult{Direction: direction, Tenant: tenantID}

	switch direction {
	case ModelToStore:
		records, err := s.model.ListAll(ctx)
		if err != nil {
			return res, fmt.Errorf("read live model: %w", err)
		}
		res.SourceCount = len(records)
		if len(records) == 0 {
			return res, nil
		}
		if err := s.store.Save(ctx, store.Scope(tenantID), records); err != nil {
			return res, fmt.Errorf("save to backend: %w", err)
		}
		res.SyncedCount = len(records)

	case StoreToModel:
		records, err := s.store.Load(ctx, store.Scope(tenantID))
		if err != nil {
			return res, fmt.Errorf("load from backend: %w", err)
		}
		res.SourceCount = len(records)
		if len(records) == 0 {
			return res, nil
		}
		res.SyncedCount, res.Errors = s.trainBatch(ctx, records)

	default:
		return res, fmt.Errorf("unsupported sync direction %q", direction)
	}

	log.Printf("[admin] sync %s complete: %d/%d", direction, res.SyncedCount, res.SourceCount)
	return res, nil
}

// CompareResult summarizes the differences between the live model and a
// backend scope.
type CompareResult struct {
	Tenant          string `json:"tenant,omitempty"`
	ModelCount      int    `json:"model_count"`
	StoreCount      int    `json:"store_count"`
	OnlyInModel     int    `json:"only_in_model"`
	OnlyInStore     int    `json:"only_in_store"`
	ContentMismatch int    `json:"content_mismatch"`
}

// Compare diffs the live model against the backend scope by id and content.
func (s *Service) Compare(ctx context.Context, tenantID string) (CompareResult, error) {
	res := CompareResult{Tenant: tenantID}

	live, err := s.model.ListAll(ctx)
	if err != nil {
		return res, fmt.Errorf("read live model: %w", err)
	}
	stored, err := s.store.Load(ctx, store.Scope(tenantID))
	if err != nil {
		return res, fmt.Errorf("load from backend: %w", err)
	}
	res.ModelCount = len(live)
	res.StoreCount = len(stored)

	liveByID := make(map[string]training.Record, len(live))
	for _, r := range live {
		liveByID[r.RecordID] = r
	}
	storedByID := make(map[string]training.Record, len(stored))
	for _, r := range stored {
		storedByID[r.RecordID] = r
	}

	for id, lr := range liveByID {
		sr, ok := storedByID[id]
		if !ok {
			res.OnlyInModel++
			continue
		}
		if strings.TrimSpace(lr.Content) != strings.TrimSpace(sr.Content) {
			res.ContentMismatch++
		}
	}
	for id := range storedByID {
		if _, ok := liveByID[id]; !ok {
			res.OnlyInStore++
		}
	}
	return res, nil
}

// StatusResult is the system overview for the status verb.
type StatusResult struct {
	ModelCount     int `json:"model_count"`
	GlobalIDCount  int `json:"global_id_count"`
	JSONBackups    int `json:"json_backups"`
	ModelReachable bool `json:"model_reachable"`
	StoreReachable bool `json:"store_reachable"`
}

// Status probes both data sources and counts available backups.
func (s *Service) Status(ctx context.Context) StatusResult {
	var res StatusResult

	if live, err := s.model.ListAll(ctx); err == nil {
		res.ModelReachable = true
		res.ModelCount = len(live)
	} else {
		log.Printf("[admin] model unreachable: %v", err)
	}

	if ids, err := s.store.GetIDs(ctx, store.ScopeGlobal); err == nil {
		res.StoreReachable = true
		res.GlobalIDCount = len(ids)
	} else {
		log.Printf("[admin] backend unreachable: %v", err)
	}

	if backups, err := s.ListBackups(); err == nil {
		res.JSONBackups = len(backups)
	}
	return res
}

// List returns the live model's current training set.
func (s *Service) List(ctx context.Context) ([]training.Record, error) {
	return s.model.ListAll(ctx)
}

// trainBatch feeds records back into the model. Item failures are collected,
// not fatal.
func (s *Service) trainBatch(ctx context.Context, records []training.Record) (trained int, errs []string) {
	for _, r := range records {
		if !r.Valid() {
			continue
		}
		switch r.Type {
		case training.TypeSQL:
			if strings.TrimSpace(r.Question) == "" {
				continue
			}
		case training.TypeDDL, training.TypeDocumentation:
		default:
			continue
		}
		if err := s.model.Add(ctx, r.Type, r.Content, r.Question); err != nil {
			errs = append(errs, fmt.Sprintf("train %s: %v", r.RecordID, err))
			log.Printf("[admin] train %s failed: %v", r.RecordID, err)
			continue
		}
		trained++
	}
	return trained, errs
}
