// Package api
// Author: momentics
//
// Live introspection contract for registries and their metadata.

package api

// Debug exposes runtime introspection.
type Debug interface {
	// DumpState emits a snapshot of named probe results for diagnostics.
	DumpState() map[string]any

	// RegisterProbe registers or replaces a named probe.
	RegisterProbe(name string, fn func() any)
}
