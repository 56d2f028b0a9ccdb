// File: internal/session/store.go
// Package session
// Author: momentics <momentics@gmail.com>
//
// Sharded, thread-safe owner registry.

package session

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sys/cpu"

	"github.com/momentics/hioload-meta/api"
	"github.com/momentics/hioload-meta/clock"
	"github.com/momentics/hioload-meta/control"
)

// SessionManager defines operations on the owner registry.
type SessionManager interface {
	// ForOwner returns the owner's session, creating it on first access.
	ForOwner(id string) (Session, error)
	// Lookup returns the session if the owner is registered.
	Lookup(id string) (Session, bool)
	// Destroy unregisters the owner and tears down its metadata. Reports
	// whether the owner was registered.
	Destroy(id string) bool
	// Range calls fn for every registered session. fn runs without
	// registry locks held and may call Destroy.
	Range(fn func(Session))
	// Sweep evicts expired metadata across all owners and returns the
	// number of entries removed.
	Sweep() int
	// Len returns the number of registered owners.
	Len() int
	// OnTeardown registers a hook run on Destroy before metadata removal.
	OnTeardown(fn TeardownFunc)
	// SetClearOnDestroy switches teardown between clearing the whole map
	// and removing only keys flagged RemoveOnNonExists.
	SetClearOnDestroy(enabled bool)
	// SetMetrics replaces the metrics sink. nil disables recording.
	SetMetrics(r *control.MetricsRegistry)
}

// TeardownFunc releases owner-attached resources. Errors are logged and
// teardown continues.
type TeardownFunc func(Session) error

// Config wires a SessionManager.
type Config struct {
	Shards         int
	ClearOnDestroy bool
	Clock          clock.Clock
	Logger         *slog.Logger
	Metrics        *control.MetricsRegistry // optional
	Events         *control.EventBus        // optional
}

// sessionManager implements sharded storage for sessions.
type sessionManager struct {
	shards []*sessionShard
	mask   uint32

	clearOnDestroy atomic.Bool
	clock          clock.Clock
	log            *slog.Logger
	metrics        atomic.Pointer[control.MetricsRegistry]
	events         *control.EventBus
	live           atomic.Int64

	hooksMu sync.RWMutex
	hooks   []TeardownFunc
}

type sessionShard struct {
	_        cpu.CacheLinePad
	mu       sync.RWMutex
	sessions map[string]*sessionImpl
}

// NewSessionManager constructs a sharded registry.
func NewSessionManager(cfg Config) SessionManager {
	shardCount := cfg.Shards
	if shardCount <= 0 {
		shardCount = 16
	}
	// find power-of-two shards for bitmasking
	n := nextPowerOfTwo(uint32(shardCount))
	shards := make([]*sessionShard, n)
	for i := range shards {
		shards[i] = &sessionShard{sessions: make(map[string]*sessionImpl)}
	}
	m := &sessionManager{
		shards:  shards,
		mask:    n - 1,
		clock:   cfg.Clock,
		log:     cfg.Logger,
		events:  cfg.Events,
	}
	if m.clock == nil {
		m.clock = clock.Real()
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	m.log = m.log.With(slog.String("component", "session"))
	m.clearOnDestroy.Store(cfg.ClearOnDestroy)
	m.metrics.Store(cfg.Metrics)
	return m
}

func (m *sessionManager) shard(id string) *sessionShard {
	return m.shards[uint32(xxhash.Sum64String(id))&m.mask]
}

// ForOwner returns the existing or a new session for id.
func (m *sessionManager) ForOwner(id string) (Session, error) {
	if id == "" {
		return nil, api.NewError(api.ErrCodeNullArgument, "session: empty owner id")
	}
	sh := m.shard(id)
	sh.mu.RLock()
	s, ok := sh.sessions[id]
	sh.mu.RUnlock()
	if ok {
		return s, nil
	}

	s, created := m.register(sh, id)
	if !created {
		return s, nil
	}
	live := m.live.Load()
	m.count(control.MetricOwnersCreated, 1)
	m.gauge(control.MetricOwnersLive, live)
	m.publish(control.Event{Kind: control.OwnerCreated, Owner: id})
	m.log.Debug("owner registered", slog.String("owner", id))
	return s, nil
}

// register inserts a session for id unless another caller got there first.
func (m *sessionManager) register(sh *sessionShard, id string) (*sessionImpl, bool) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if s, ok := sh.sessions[id]; ok {
		return s, false
	}
	s := newSession(id, m.clock.Now())
	sh.sessions[id] = s
	m.live.Add(1)
	return s, true
}

// Lookup fetches a session if present.
func (m *sessionManager) Lookup(id string) (Session, bool) {
	sh := m.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	s, ok := sh.sessions[id]
	if !ok {
		return nil, false
	}
	return s, true
}

// Destroy removes the session, cancels it and tears down its metadata.
func (m *sessionManager) Destroy(id string) bool {
	sh := m.shard(id)
	sh.mu.Lock()
	s, ok := sh.sessions[id]
	if ok {
		delete(sh.sessions, id)
	}
	sh.mu.Unlock()
	if !ok {
		return false
	}
	live := m.live.Add(-1)

	s.Cancel()
	removed := m.teardown(s)

	m.count(control.MetricOwnersDestroyed, 1)
	m.count(control.MetricEntriesRemoved, int64(removed))
	m.gauge(control.MetricOwnersLive, live)
	m.publish(control.Event{Kind: control.OwnerDestroyed, Owner: id, Removed: removed})
	m.log.Debug("owner destroyed", slog.String("owner", id), slog.Int("removed", removed))
	return true
}

// teardown runs hooks, then drops metadata per the configured policy.
func (m *sessionManager) teardown(s *sessionImpl) int {
	m.hooksMu.RLock()
	hooks := append([]TeardownFunc{}, m.hooks...)
	m.hooksMu.RUnlock()

	for _, hook := range hooks {
		if err := hook(s); err != nil {
			m.count(control.MetricTeardownErrors, 1)
			m.log.Warn("owner teardown hook failed",
				slog.String("owner", s.id), slog.Any("error", err))
		}
	}

	if m.clearOnDestroy.Load() {
		n := s.meta.Len()
		s.meta.Clear()
		return n
	}
	removed := 0
	for _, key := range s.meta.Keys() {
		if key.RemoveOnNonExists() && s.meta.Remove(key) {
			removed++
		}
	}
	return removed
}

// Range applies fn to a snapshot of all sessions.
func (m *sessionManager) Range(fn func(Session)) {
	for _, sh := range m.shards {
		sh.mu.RLock()
		batch := make([]*sessionImpl, 0, len(sh.sessions))
		for _, s := range sh.sessions {
			batch = append(batch, s)
		}
		sh.mu.RUnlock()
		for _, s := range batch {
			fn(s)
		}
	}
}

// Sweep runs Cleanup on every session's metadata.
func (m *sessionManager) Sweep() int {
	evicted := 0
	m.Range(func(s Session) {
		evicted += s.Metadata().Cleanup()
	})
	m.count(control.MetricSweeps, 1)
	m.count(control.MetricEntriesEvicted, int64(evicted))
	m.publish(control.Event{Kind: control.SweepCompleted, Evicted: evicted})
	if evicted > 0 {
		m.log.Debug("metadata sweep", slog.Int("evicted", evicted))
	}
	return evicted
}

// Len counts registered sessions.
func (m *sessionManager) Len() int {
	return int(m.live.Load())
}

// OnTeardown registers a teardown hook.
func (m *sessionManager) OnTeardown(fn TeardownFunc) {
	if fn == nil {
		return
	}
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()
	m.hooks = append(m.hooks, fn)
}

// SetClearOnDestroy switches the teardown policy.
func (m *sessionManager) SetClearOnDestroy(enabled bool) {
	m.clearOnDestroy.Store(enabled)
}

// SetMetrics swaps the metrics sink.
func (m *sessionManager) SetMetrics(r *control.MetricsRegistry) {
	m.metrics.Store(r)
}

func (m *sessionManager) count(name string, delta int64) {
	if r := m.metrics.Load(); r != nil {
		r.Add(name, delta)
	}
}

func (m *sessionManager) gauge(name string, value int64) {
	if r := m.metrics.Load(); r != nil {
		r.Set(name, value)
	}
}

func (m *sessionManager) publish(ev control.Event) {
	if m.events == nil {
		return
	}
	ev.At = m.clock.Now()
	if !m.events.Publish(ev) {
		m.log.Warn("event queue full, dropping event",
			slog.String("kind", ev.Kind.String()), slog.String("owner", ev.Owner))
	}
}

// nextPowerOfTwo returns the next power-of-two >= v.
func nextPowerOfTwo(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
