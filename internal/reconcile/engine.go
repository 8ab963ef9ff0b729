package reconcile

import (
	"context"
	"fmt"

	"github.com/feliperosa/trainvault/internal/model"
	"github.com/feliperosa/trainvault/internal/store"
	"github.com/feliperosa/trainvault/internal/training"
)

// Engine computes which live-model records belong to the current session and
// which are protected by the global backup.
type Engine struct {
	store store.Store
	model model.Handle
}

func NewEngine(st store.Store, handle model.Handle) *Engine {
	return &Engine{store: st, model: handle}
}

// DiffAgainstBackup returns the live records not yet known to the global
// backup, plus their ids. The backup lookup always uses the global scope,
// whichever tenant is live: one canonical backup protects records shared
// across sessions. The call mutates nothing.
//
// An empty backup means everything currently in the model is session-local;
// callers must persist before acting on the stale set.
func (e *Engine) DiffAgainstBackup(ctx context.Context, tenantID string) ([]training.Record, []string, error) {
	backupIDs, err := e.store.GetIDs(ctx, store.ScopeGlobal)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch global backup ids: %w", err)
	}

	live, err := e.model.ListAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list live model records: %w", err)
	}
	if len(live) == 0 {
		return nil, nil, nil
	}

	protected := make(map[string]struct{}, len(backupIDs))
	for _, id := range backupIDs {
		protected[id] = struct{}{}
	}

	var (
		newRecords []training.Record
		staleIDs   []string
	)
	for _, r := range live {
		if _, ok := protected[r.RecordID]; ok {
			continue
		}
		newRecords = append(newRecords, r)
		staleIDs = append(staleIDs, r.RecordID)
	}
	return newRecords, staleIDs, nil
}
