package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var ErrNotFound = errors.New("session not found")

// Cleaner is the lifecycle controller entry point the session layer triggers
// at tenant-session boundaries.
type Cleaner interface {
	RunCleanup(ctx context.Context, tenantID string, force bool) bool
}

// Session tracks one tenant's live interaction with the shared model.
type Session struct {
	ID             string    `json:"session_id"`
	TenantID       string    `json:"tenant_id"`
	Status         Status    `json:"status"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Manager owns tenant sessions and fires the lifecycle controller when a
// session ends, a tenant switches, or the janitor expires an inactive session.
type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*Session
	sessionByTenant   map[string]string
	lastTenant        string
	inactivityTimeout time.Duration
	cleaner           Cleaner
	onExpire          func(*Session)
}

func NewManager(inactivityTimeout time.Duration, cleaner Cleaner) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 2 * time.Minute
	}
	return &Manager{
		sessions:          make(map[string]*Session),
		sessionByTenant:   make(map[string]string),
		inactivityTimeout: inactivityTimeout,
		cleaner:           cleaner,
	}
}

// SetExpireHook registers an observer called after the janitor expires a
// session, in addition to the forced cleanup.
func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// Begin starts a session for a tenant. A prior tenant's not-yet-flushed
// session data is reconciled first so the new session cannot see it.
func (m *Manager) Begin(ctx context.Context, tenantID string) *Session {
	m.Observe(ctx, tenantID)

	now := time.Now().UTC()
	s := &Session{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		Status:         StatusActive,
		StartedAt:      now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	if tenantID != "" {
		m.sessionByTenant[tenantID] = s.ID
	}
	return clone(s)
}

// Observe records the currently active tenant. On a tenant switch the
// outgoing tenant's cleanup runs before the new tenant is recorded.
func (m *Manager) Observe(ctx context.Context, tenantID string) {
	m.mu.Lock()
	previous := m.lastTenant
	m.lastTenant = tenantID
	m.mu.Unlock()

	if previous == "" || previous == tenantID {
		return
	}
	log.Printf("[session] tenant switch %s -> %s", previous, tenantID)
	if m.cleaner != nil && !m.cleaner.RunCleanup(ctx, previous, false) {
		log.Printf("[session] cleanup for outgoing tenant %s failed", previous)
	}
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

func (m *Manager) Touch(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.LastActivityAt = time.Now().UTC()
	return nil
}

// End closes a session and dispatches the tenant's cleanup in the background:
// the logout path must not wait on the store round-trip, and the janitor
// retries if the flush dies with the process.
func (m *Manager) End(sessionID string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	s.Status = StatusEnded
	s.LastActivityAt = time.Now().UTC()
	if s.TenantID != "" {
		delete(m.sessionByTenant, s.TenantID)
	}
	out := clone(s)
	cleaner := m.cleaner
	m.mu.Unlock()

	if cleaner != nil {
		go func() {
			if !cleaner.RunCleanup(context.Background(), out.TenantID, false) {
				log.Printf("[session] logout cleanup for tenant %s failed", out.TenantID)
			}
		}()
	}
	return out, nil
}

// StartJanitor launches the cancellable background watcher that expires
// inactive sessions and force-flushes their training data.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive(ctx)
			}
		}
	}()
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if s.Status == StatusActive {
			count++
		}
	}
	return count
}

func (m *Manager) expireInactive(ctx context.Context) {
	now := time.Now().UTC()
	var expired []*Session

	m.mu.Lock()
	for _, s := range m.sessions {
		if s.Status != StatusActive {
			continue
		}
		if now.Sub(s.LastActivityAt) < m.inactivityTimeout {
			continue
		}
		s.Status = StatusEnded
		s.LastActivityAt = now
		expired = append(expired, clone(s))
		if s.TenantID != "" {
			delete(m.sessionByTenant, s.TenantID)
		}
	}
	cleaner := m.cleaner
	hook := m.onExpire
	m.mu.Unlock()

	for _, s := range expired {
		log.Printf("[session] expired inactive session for tenant %s", s.TenantID)
		if cleaner != nil && !cleaner.RunCleanup(ctx, s.TenantID, true) {
			log.Printf("[session] forced cleanup for tenant %s failed", s.TenantID)
		}
		if hook != nil {
			hook(s)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	return &c
}
