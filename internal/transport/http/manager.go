package httptransport

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"custos/internal/audit"
	"custos/internal/consent/metrics"
	"custos/internal/consent/orchestrator"
)

// Session bundles the per-visitor state held between requests.
type Session struct {
	Orchestrator *orchestrator.Orchestrator
	Audit        *audit.Logger
	lastSeen     time.Time
}

// SessionFactory builds the orchestrator and audit trail for a new visitor.
type SessionFactory func(visitorID string) (*orchestrator.Orchestrator, *audit.Logger, error)

// Manager keeps one Session per visitor and evicts idle ones. Safe for
// concurrent use.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	factory SessionFactory
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerMetrics attaches the active-session gauge.
func WithManagerMetrics(m *metrics.Metrics) ManagerOption {
	return func(mgr *Manager) { mgr.metrics = m }
}

// WithManagerClock injects the time source for tests.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(mgr *Manager) { mgr.now = now }
}

// NewManager constructs a Manager. ttl bounds how long an idle session stays
// resident.
func NewManager(factory SessionFactory, ttl time.Duration, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		factory:  factory,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire returns the visitor's session, creating it on first sight.
func (m *Manager) Acquire(visitorID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[visitorID]; ok {
		sess.lastSeen = m.now()
		return sess, nil
	}

	orch, trail, err := m.factory(visitorID)
	if err != nil {
		return nil, err
	}
	sess := &Session{Orchestrator: orch, Audit: trail, lastSeen: m.now()}
	m.sessions[visitorID] = sess
	if m.metrics != nil {
		m.metrics.ActiveSessions.Set(float64(len(m.sessions)))
	}
	return sess, nil
}

// Len reports the number of resident sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep evicts sessions idle longer than the ttl and returns the count.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.ttl)
	evicted := 0
	for id, sess := range m.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		m.logger.Info("evicted idle visitor sessions", "count", evicted)
	}
	if m.metrics != nil {
		m.metrics.ActiveSessions.Set(float64(len(m.sessions)))
	}
	return evicted
}

// Run sweeps periodically until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
