package lifecycle

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/feliperosa/trainvault/internal/model"
	"github.com/feliperosa/trainvault/internal/observability"
	"github.com/feliperosa/trainvault/internal/reconcile"
	"github.com/feliperosa/trainvault/internal/store"
)

// EventType labels lifecycle notifications sent to observers.
type EventType string

const (
	EventCleanupStarted   EventType = "cleanup_started"
	EventCleanupCompleted EventType = "cleanup_completed"
	EventCleanupFailed    EventType = "cleanup_failed"
	EventCleanupSkipped   EventType = "cleanup_skipped"
)

// Event describes one lifecycle controller action.
type Event struct {
	Type      EventType `json:"type"`
	TenantID  string    `json:"tenant_id"`
	Persisted int       `json:"persisted"`
	Removed   int       `json:"removed"`
	Forced    bool      `json:"forced"`
	At        time.Time `json:"at"`
}

// EventHook receives lifecycle events. It must not block.
type EventHook func(Event)

// Status is a snapshot of the controller's idempotency state.
type Status struct {
	LastTenant      string `json:"last_tenant"`
	CleanupExecuted bool   `json:"cleanup_executed"`
}

// Controller coordinates the per-session training data flush: persist the
// session-local records under the tenant scope, then strip them from the live
// model. One controller is shared across trigger sources (logout, tenant
// switch, session watcher), so all state changes happen under a mutex.
type Controller struct {
	engine  *reconcile.Engine
	store   store.Store
	model   model.Handle
	metrics *observability.Metrics
	hook    EventHook

	mu         sync.Mutex
	lastTenant string
	ranFor     bool
}

func NewController(engine *reconcile.Engine, st store.Store, handle model.Handle, metrics *observability.Metrics) *Controller {
	return &Controller{
		engine:  engine,
		store:   st,
		model:   handle,
		metrics: metrics,
	}
}

// SetEventHook registers the observer for lifecycle events.
func (c *Controller) SetEventHook(hook EventHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hook = hook
}

// RunCleanup persists the session-local records for tenantID and removes them
// from the live model, exactly once per tenant session. A repeated call for
// the same tenant is a cheap no-op returning true unless force is set.
// Returns false when no tenant is given or when the flush failed; a failure
// leaves the idempotency state untouched so the next trigger retries.
func (c *Controller) RunCleanup(ctx context.Context, tenantID string, force bool) bool {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		log.Printf("[cleanup] no tenant identified, nothing to do")
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// The gate resets whenever the observed tenant changes.
	if c.lastTenant != tenantID {
		c.ranFor = false
	}
	if !force && c.ranFor && c.lastTenant == tenantID {
		log.Printf("[cleanup] already executed for tenant %s", tenantID)
		c.emit(Event{Type: EventCleanupSkipped, TenantID: tenantID, Forced: force, At: time.Now().UTC()})
		return true
	}

	log.Printf("[cleanup] starting for tenant %s (force=%v)", tenantID, force)
	c.emit(Event{Type: EventCleanupStarted, TenantID: tenantID, Forced: force, At: time.Now().UTC()})

	persisted, removed, err := c.flush(ctx, tenantID)
	if err != nil {
		log.Printf("[cleanup] failed for tenant %s: %v", tenantID, err)
		c.observeRun("failure")
		c.emit(Event{Type: EventCleanupFailed, TenantID: tenantID, Forced: force, At: time.Now().UTC()})
		return false
	}

	c.ranFor = true
	c.lastTenant = tenantID
	c.observeRun("success")
	if c.metrics != nil {
		c.metrics.RecordsPersisted.Add(float64(persisted))
		c.metrics.RecordsRemoved.Add(float64(removed))
	}
	log.Printf("[cleanup] completed for tenant %s: %d persisted, %d removed", tenantID, persisted, removed)
	c.emit(Event{
		Type:      EventCleanupCompleted,
		TenantID:  tenantID,
		Persisted: persisted,
		Removed:   removed,
		Forced:    force,
		At:        time.Now().UTC(),
	})
	return true
}

// flush is the ordered core: diff, persist, then remove. The persist step runs
// before any removal so a record is durable before it leaves the live model.
func (c *Controller) flush(ctx context.Context, tenantID string) (persisted, removed int, err error) {
	newRecords, staleIDs, err := c.engine.DiffAgainstBackup(ctx, tenantID)
	if err != nil {
		return 0, 0, err
	}
	if len(newRecords) == 0 {
		log.Printf("[cleanup] no session-local records for tenant %s", tenantID)
		return 0, 0, nil
	}

	if err := c.store.Save(ctx, store.Scope(tenantID), newRecords); err != nil {
		return 0, 0, err
	}
	persisted = len(newRecords)

	// Stale ids are reused from the diff: the session model is sequential, so
	// nothing mutated the live model between the two steps.
	for _, id := range staleIDs {
		if err := c.model.Remove(ctx, id); err != nil {
			log.Printf("[cleanup] remove %s from live model failed: %v", id, err)
			continue
		}
		removed++
	}
	return persisted, removed, nil
}

// Status reports the idempotency state for the admin surfaces.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{LastTenant: c.lastTenant, CleanupExecuted: c.ranFor}
}

func (c *Controller) observeRun(result string) {
	if c.metrics != nil {
		c.metrics.CleanupRuns.WithLabelValues(result).Inc()
	}
}

func (c *Controller) emit(ev Event) {
	if c.hook != nil {
		c.hook(ev)
	}
}
