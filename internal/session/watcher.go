package session

import (
	"context"
	"log"
	"time"
)

// LivenessProbe reports the currently active tenant and whether the session is
// still alive. It must be cheap: the watcher calls it on every tick.
type LivenessProbe func() (tenantID string, alive bool)

// Watcher is the safety net for abnormal termination: it polls a liveness
// signal and force-flushes the tenant's training data when the session dies
// without an explicit cleanup. A probe failure counts as a dead session —
// better to flush on a watcher error than to leak another tenant's records
// into the next session.
type Watcher struct {
	probe    LivenessProbe
	cleaner  Cleaner
	interval time.Duration

	cancel     context.CancelFunc
	done       chan struct{}
	lastTenant string
}

func NewWatcher(probe LivenessProbe, cleaner Cleaner, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Watcher{
		probe:    probe,
		cleaner:  cleaner,
		interval: interval,
	}
}

// Start launches the polling loop. It returns immediately; the loop stops when
// ctx is cancelled, Stop is called, or a dead session triggered the final
// cleanup.
func (w *Watcher) Start(ctx context.Context) {
	if w.done != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if w.check(ctx) {
					return
				}
			}
		}
	}()
	log.Printf("[watcher] session watcher started (interval %s)", w.interval)
}

// check runs one poll. Returns true when the watcher should terminate.
func (w *Watcher) check(ctx context.Context) (stop bool) {
	var (
		tenantID string
		alive    bool
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[watcher] probe panicked: %v", r)
				alive = false
			}
		}()
		tenantID, alive = w.probe()
	}()

	if alive {
		if tenantID != "" {
			w.lastTenant = tenantID
		}
		return false
	}

	// A crashed probe may not know the tenant anymore; fall back to the last
	// one seen alive.
	if tenantID == "" {
		tenantID = w.lastTenant
	}
	if tenantID == "" {
		log.Printf("[watcher] session gone, no tenant to flush")
		return true
	}

	log.Printf("[watcher] session for tenant %s ended unexpectedly, forcing cleanup", tenantID)
	if !w.cleaner.RunCleanup(ctx, tenantID, true) {
		log.Printf("[watcher] emergency cleanup for tenant %s failed", tenantID)
	}
	return true
}

// Stop cancels the loop and waits for it to exit. Safe to call when the
// watcher never started.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.done != nil {
		<-w.done
	}
}
