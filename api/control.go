// File: api/control.go
// Package api defines Control interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Control exposes the live registry configuration and runtime counters.
type Control interface {
	// GetConfig returns the live config keyed by YAML field names.
	GetConfig() map[string]any
	// SetConfig merges and validates an update, then notifies listeners.
	SetConfig(cfg map[string]any) error
	// Stats merges counters with debug probe output.
	Stats() map[string]any
	// OnReload registers a listener for config updates.
	OnReload(fn func())
	RegisterDebugProbe(name string, fn func() any)
}
