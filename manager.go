package storegate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/storegate/internal/api"
	"github.com/MrEthical07/storegate/internal/audit"
	"github.com/MrEthical07/storegate/internal/logger"
	"github.com/MrEthical07/storegate/permission"
	"github.com/MrEthical07/storegate/session"
)

// Navigator moves the client to another route. The manager calls it after
// state changes and from Visit; it must not call back into the manager.
type Navigator interface {
	Navigate(target string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(target string)

func (f NavigatorFunc) Navigate(target string) { f(target) }

type noopNavigator struct{}

func (noopNavigator) Navigate(string) {}

// Manager holds the client's session: the credentials, the signed-in user
// and the route the client is on. It is the only writer of its session store.
//
// A Manager is safe for concurrent use. User-triggered operations are
// mutually exclusive and return ErrOperationPending while another one is in
// flight; Logout is never blocked.
type Manager struct {
	config  Config
	api     *api.Client
	store   session.Store
	matrix  *permission.Matrix
	nav     Navigator
	log     *zap.Logger
	metrics *Metrics
	audit   *audit.Dispatcher

	busy   atomic.Bool
	closed atomic.Bool

	mu       sync.RWMutex
	rec      session.Record
	user     *User
	resolved bool
	location string
	// epoch advances on every logout so that an exchange started before it
	// cannot commit a session afterwards.
	epoch uint64
}

// Close stops the audit dispatcher. The persisted session is kept for the
// next start.
func (m *Manager) Close() {
	if m == nil || !m.closed.CompareAndSwap(false, true) {
		return
	}
	if m.audit != nil {
		m.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped on a full buffer.
func (m *Manager) AuditDropped() uint64 {
	if m == nil || m.audit == nil {
		return 0
	}
	return m.audit.Dropped()
}

// MetricsSnapshot returns the current counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil {
		return (*Metrics)(nil).Snapshot()
	}
	return m.metrics.Snapshot()
}

// Metrics exposes the manager's counters so an edge gate in the same process
// can share them.
func (m *Manager) Metrics() *Metrics { return m.metrics }

// Matrix returns the permission matrix used for navigation.
func (m *Manager) Matrix() *permission.Matrix { return m.matrix }

// Session returns a copy of the current state.
func (m *Manager) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Session{
		AccessToken:     m.rec.AccessToken,
		RefreshToken:    m.rec.RefreshToken,
		IsLoading:       !m.resolved || m.busy.Load(),
		IsAuthenticated: m.authenticatedLocked(),
	}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	return s
}

// State returns the navigation state: Loading until Rehydrate has resolved
// the persisted session, then Authenticated or Anonymous.
func (m *Manager) State() permission.AuthState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stateLocked()
}

// Location is the route the client was last sent to.
func (m *Manager) Location() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.location
}

func (m *Manager) authenticatedLocked() bool {
	if !m.rec.Complete() || m.user == nil {
		return false
	}
	_, err := permission.ParseRole(m.user.Role)
	return err == nil
}

func (m *Manager) stateLocked() permission.AuthState {
	if !m.resolved {
		return permission.Loading()
	}
	if m.authenticatedLocked() {
		return permission.Authenticated(m.user.Role)
	}
	return permission.Anonymous()
}

func (m *Manager) begin() error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	if !m.busy.CompareAndSwap(false, true) {
		m.metrics.Inc(MetricOperationPending)
		return ErrOperationPending
	}
	return nil
}

// end releases the busy flag. A completed operation also resolves the
// manager, so a caller that never ran Rehydrate does not read IsLoading
// forever.
func (m *Manager) end() {
	m.mu.Lock()
	m.resolved = true
	m.mu.Unlock()
	m.busy.Store(false)
}

func (m *Manager) currentEpoch() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.epoch
}

func (m *Manager) snapshot() (session.Record, *User, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rec, m.user, m.epoch
}

// callBackend runs fn under the request timeout and records its latency.
func (m *Manager) callBackend(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, m.config.RequestTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	m.metrics.Observe(MetricBackendLatency, time.Since(start))
	return err
}

// commit persists rec and installs it as the current session, unless a
// logout happened since epoch was read.
func (m *Manager) commit(ctx context.Context, op string, epoch uint64, rec session.Record, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		return newError(op, KindAuthentication, "The session ended while the request was in flight.", ErrNotAuthenticated)
	}
	if err := m.store.Save(context.WithoutCancel(ctx), rec); err != nil {
		return newError(op, KindUnknown, "Unable to save the session.", err)
	}
	m.rec = rec
	m.user = user
	m.resolved = true
	return nil
}

// clearLocal drops the in-memory session and returns what it held.
func (m *Manager) clearLocal() (session.Record, *User) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, user := m.rec, m.user
	m.epoch++
	m.rec = session.Record{}
	m.user = nil
	m.resolved = true
	return rec, user
}

func (m *Manager) warn(op string) func(string, error) {
	return func(msg string, err error) {
		m.log.Warn(msg, logger.Op(op), logger.Err(err))
	}
}

func (m *Manager) emitAudit(ctx context.Context, eventType string, user *User, err error, meta map[string]string) {
	if m.audit == nil {
		return
	}
	ev := AuditEvent{
		EventType: eventType,
		RequestID: RequestIDFromContext(ctx),
		Success:   err == nil,
		Metadata:  meta,
	}
	if user != nil {
		ev.UserID = user.ID
		ev.Role = user.Role
		ev.StoreID = user.StoreID
	}
	if err != nil {
		ev.Error = err.Error()
	}
	m.audit.Emit(ctx, ev)
}
