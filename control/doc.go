// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics, lifecycle events and debug introspection
// for hioload-meta.
//
// Provides concurrent-safe state handling primitives including:
//   - Typed configuration loaded from YAML and environment, with reload
//     listeners for live updates
//   - Counter and gauge registry with snapshot reads
//   - Buffered lifecycle event bus delivered outside registry locks
//   - Debug probe registration and state dumps
package control
