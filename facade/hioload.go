// File: facade/hioload.go
// Unified facade layer for hioload-meta.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// HioloadMeta aggregates the owner registry, the control plane (config,
// metrics, debug probes), the lifecycle event bus and the optional sweep
// janitor behind a single type. Collaborators obtain an owner's metadata
// map through ForOwner and hand teardown to Destroy.

package facade

import (
	"log/slog"
	"sync"
	"time"

	"github.com/momentics/hioload-meta/adapters"
	"github.com/momentics/hioload-meta/api"
	"github.com/momentics/hioload-meta/clock"
	"github.com/momentics/hioload-meta/control"
	"github.com/momentics/hioload-meta/internal/concurrency"
	"github.com/momentics/hioload-meta/internal/session"
	"github.com/momentics/hioload-meta/metadata"
)

// Owner is the public view of a registered owner.
type Owner interface {
	ID() string
	Metadata() *metadata.Map
	Done() <-chan struct{}
	CreatedAt() time.Time
}

// Option customizes New.
type Option func(*options)

type options struct {
	clock  clock.Clock
	logger *slog.Logger
}

// WithClock injects the time source used for owner timestamps and the
// janitor ticker.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger injects the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// HioloadMeta is the main facade type.
// It implements api.GracefulShutdown to allow unified shutdown logic.
type HioloadMeta struct {
	config   *control.ConfigStore
	control  *adapters.ControlAdapter
	metrics  *control.MetricsRegistry
	debug    *control.DebugProbes
	events   *control.EventBus
	sessions session.SessionManager
	janitor  *concurrency.Janitor
	log      *slog.Logger

	mu      sync.Mutex // protects started
	started bool
}

// Ensure compliance with api.GracefulShutdown.
var _ api.GracefulShutdown = (*HioloadMeta)(nil)

// New constructs the facade from cfg, or defaults when cfg is nil.
func New(cfg *control.Config, opts ...Option) (*HioloadMeta, error) {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{clock: clock.Real(), logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	h := &HioloadMeta{
		config:  control.NewConfigStore(cfg),
		metrics: control.NewMetricsRegistry(),
		debug:   control.NewDebugProbes(),
		events:  control.NewEventBus(control.DefaultEventLimit),
		log:     o.logger.With(slog.String("component", "facade")),
	}
	h.control = adapters.NewControlAdapter(h.config, h.metrics, h.debug)

	h.sessions = session.NewSessionManager(session.Config{
		Shards:         cfg.Shards,
		ClearOnDestroy: cfg.ClearOnDestroy,
		Clock:          o.clock,
		Logger:         o.logger,
		Metrics:        h.metricsSink(*cfg),
		Events:         h.events,
	})
	h.janitor = concurrency.NewJanitor(h.sessions, o.clock, o.logger, func(int) {
		h.events.Flush()
	})

	h.setDebug(cfg.EnableDebug)
	h.config.OnValidate(fixedShards)
	h.config.OnReload(h.applyConfig)
	return h, nil
}

// fixedShards rejects reloads that change the shard count, which is only
// read at construction.
func fixedShards(prev, next control.Config) error {
	if next.Shards != prev.Shards {
		return api.Errorf(api.ErrCodeInvalidArgument,
			"config: shards cannot change at runtime (%d -> %d)", prev.Shards, next.Shards).
			WithContext("field", "shards")
	}
	return nil
}

func (h *HioloadMeta) metricsSink(cfg control.Config) *control.MetricsRegistry {
	if cfg.EnableMetrics {
		return h.metrics
	}
	return nil
}

var facadeProbes = []string{
	"runtime.cpus", "runtime.goroutines",
	"sessions.count", "metadata.entries", "metadata.evictions",
	"events.pending", "events.dropped",
}

// setDebug registers or removes the facade's debug probes.
func (h *HioloadMeta) setDebug(enabled bool) {
	if !enabled {
		for _, name := range facadeProbes {
			h.debug.UnregisterProbe(name)
		}
		return
	}
	control.RegisterRuntimeProbes(h.debug)
	h.debug.RegisterProbe("sessions.count", func() any {
		return h.sessions.Len()
	})
	h.debug.RegisterProbe("metadata.entries", func() any {
		total := 0
		h.sessions.Range(func(s session.Session) {
			total += s.Metadata().Len()
		})
		return total
	})
	h.debug.RegisterProbe("metadata.evictions", func() any {
		var total uint64
		h.sessions.Range(func(s session.Session) {
			total += s.Metadata().Stats().Evictions
		})
		return total
	})
	h.debug.RegisterProbe("events.pending", func() any {
		return h.events.Pending()
	})
	h.debug.RegisterProbe("events.dropped", func() any {
		return h.events.Dropped()
	})
}

// applyConfig propagates live config changes.
func (h *HioloadMeta) applyConfig(cfg control.Config) {
	h.sessions.SetClearOnDestroy(cfg.ClearOnDestroy)
	h.sessions.SetMetrics(h.metricsSink(cfg))
	h.setDebug(cfg.EnableDebug)

	h.mu.Lock()
	if h.started {
		h.janitor.Start(cfg.SweepInterval)
	}
	h.mu.Unlock()
	h.log.Info("configuration reloaded",
		slog.Duration("sweep_interval", cfg.SweepInterval),
		slog.Bool("clear_on_destroy", cfg.ClearOnDestroy),
		slog.Bool("enable_metrics", cfg.EnableMetrics),
		slog.Bool("enable_debug", cfg.EnableDebug))
}

// Start arms the janitor when a sweep interval is configured. Subsequent
// calls have no effect.
func (h *HioloadMeta) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return nil
	}
	h.janitor.Start(h.config.Current().SweepInterval)
	h.started = true
	return nil
}

// Stop halts the janitor. Registered owners are kept. Calling Stop on a
// non-started facade is a no-op.
func (h *HioloadMeta) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started {
		return nil
	}
	h.janitor.Stop()
	h.started = false
	return nil
}

// Shutdown implements api.GracefulShutdown: it stops the janitor, destroys
// every owner and delivers the remaining events.
func (h *HioloadMeta) Shutdown() error {
	if err := h.Stop(); err != nil {
		return err
	}
	destroyed := 0
	h.sessions.Range(func(s session.Session) {
		if h.sessions.Destroy(s.ID()) {
			destroyed++
		}
	})
	h.events.Flush()
	h.log.Info("shutdown complete", slog.Int("owners_destroyed", destroyed))
	return nil
}

// ForOwner returns the owner's metadata holder, creating it on first access.
func (h *HioloadMeta) ForOwner(id string) (Owner, error) {
	s, err := h.sessions.ForOwner(id)
	h.events.Flush()
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Lookup returns a registered owner without creating one.
func (h *HioloadMeta) Lookup(id string) (Owner, bool) {
	s, ok := h.sessions.Lookup(id)
	if !ok {
		return nil, false
	}
	return s, true
}

// Destroy tears down the owner. Reports whether it was registered.
func (h *HioloadMeta) Destroy(id string) bool {
	ok := h.sessions.Destroy(id)
	h.events.Flush()
	return ok
}

// OnTeardown registers a hook run before an owner's metadata is removed.
func (h *HioloadMeta) OnTeardown(fn func(Owner) error) {
	h.sessions.OnTeardown(func(s session.Session) error {
		return fn(s)
	})
}

// Sweep forces a full expiry sweep across all owners.
func (h *HioloadMeta) Sweep() int {
	n := h.sessions.Sweep()
	h.events.Flush()
	return n
}

// OwnerCount returns the number of registered owners.
func (h *HioloadMeta) OwnerCount() int {
	return h.sessions.Len()
}

// Subscribe registers a lifecycle event handler. Handlers run on the
// calling goroutine once the ForOwner, Destroy or Sweep call that produced
// the event has released registry locks, and after each janitor sweep.
// Handlers may call back into the facade.
func (h *HioloadMeta) Subscribe(fn func(control.Event)) {
	h.events.Subscribe(fn)
}

// FlushEvents delivers events still pending, such as those published by
// teardown hooks.
func (h *HioloadMeta) FlushEvents() int {
	return h.events.Flush()
}

// GetControl returns the Control interface for dynamic config and metrics.
func (h *HioloadMeta) GetControl() api.Control {
	return h.control
}

// GetDebugAPI returns the debug probe registry.
func (h *HioloadMeta) GetDebugAPI() api.Debug {
	return h.debug
}

// JanitorInterval reports the active sweep interval, zero when idle.
func (h *HioloadMeta) JanitorInterval() time.Duration {
	return h.janitor.Interval()
}
