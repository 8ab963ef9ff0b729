package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcherForcesCleanupWhenSessionDies(t *testing.T) {
	cleaner := newRecordingCleaner()
	var alive atomic.Bool
	alive.Store(true)

	w := NewWatcher(func() (string, bool) {
		return "tenant-1", alive.Load()
	}, cleaner, 5*time.Millisecond)

	w.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	alive.Store(false)

	cleaner.waitForCall(t)
	w.Stop()

	calls := cleaner.snapshot()
	if len(calls) != 1 || calls[0].tenantID != "tenant-1" || !calls[0].force {
		t.Fatalf("calls = %v, want one forced cleanup for tenant-1", calls)
	}
}

func TestWatcherFallsBackToLastSeenTenant(t *testing.T) {
	cleaner := newRecordingCleaner()
	w := NewWatcher(nil, cleaner, time.Second)

	// The probe saw the tenant alive once, then crashes without reporting it.
	w.probe = func() (string, bool) { return "tenant-9", true }
	if stop := w.check(context.Background()); stop {
		t.Fatalf("check() stopped on a live session")
	}

	w.probe = func() (string, bool) { panic("probe backend gone") }
	if stop := w.check(context.Background()); !stop {
		t.Fatalf("check() did not stop on a dead probe")
	}

	calls := cleaner.snapshot()
	if len(calls) != 1 || calls[0].tenantID != "tenant-9" || !calls[0].force {
		t.Fatalf("calls = %v, want forced cleanup for the last seen tenant", calls)
	}
}

func TestWatcherStopsQuietlyWithNoKnownTenant(t *testing.T) {
	cleaner := newRecordingCleaner()
	w := NewWatcher(func() (string, bool) { return "", false }, cleaner, time.Second)

	if stop := w.check(context.Background()); !stop {
		t.Fatalf("check() did not stop when the session is gone")
	}
	if calls := cleaner.snapshot(); len(calls) != 0 {
		t.Fatalf("cleanup ran with no tenant to flush: %v", calls)
	}
}

func TestWatcherStopIsSafe(t *testing.T) {
	w := NewWatcher(func() (string, bool) { return "t", true }, newRecordingCleaner(), 5*time.Millisecond)

	// Stop before Start must not block or panic.
	w.Stop()

	w.Start(context.Background())
	w.Stop()

	select {
	case <-w.done:
	default:
		t.Fatalf("Stop() returned before the loop exited")
	}
}
