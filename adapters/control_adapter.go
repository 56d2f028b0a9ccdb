// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Control adapter implementing api.Control interface using control package primitives.

package adapters

import (
	"github.com/momentics/hioload-meta/api"
	"github.com/momentics/hioload-meta/control"
)

// ControlAdapter exposes config, metrics and debug probes as one api.Control.
type ControlAdapter struct {
	config  *control.ConfigStore
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
}

var _ api.Control = (*ControlAdapter)(nil)

// NewControlAdapter binds existing control primitives. Nil arguments get
// fresh instances.
func NewControlAdapter(cfg *control.ConfigStore, metrics *control.MetricsRegistry, debug *control.DebugProbes) *ControlAdapter {
	if cfg == nil {
		cfg = control.NewConfigStore(nil)
	}
	if metrics == nil {
		metrics = control.NewMetricsRegistry()
	}
	if debug == nil {
		debug = control.NewDebugProbes()
	}
	return &ControlAdapter{config: cfg, metrics: metrics, debug: debug}
}

func (c *ControlAdapter) GetConfig() map[string]any {
	return c.config.GetSnapshot()
}

func (c *ControlAdapter) SetConfig(cfg map[string]any) error {
	return c.config.SetConfig(cfg)
}

// Stats merges metrics with debug probe output under a "debug." prefix.
func (c *ControlAdapter) Stats() map[string]any {
	stats := c.metrics.GetSnapshot()
	debugStats := c.debug.DumpState()
	combined := make(map[string]any, len(stats)+len(debugStats))
	for k, v := range stats {
		combined[k] = v
	}
	for k, v := range debugStats {
		combined["debug."+k] = v
	}
	return combined
}

func (c *ControlAdapter) OnReload(fn func()) {
	c.config.OnReload(func(control.Config) { fn() })
}

func (c *ControlAdapter) SetMetric(key string, value any) {
	c.metrics.Set(key, value)
}

func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}
