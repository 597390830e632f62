// Package api
// Author: momentics
//
// Live debug introspection for production workloads: queue counts,
// pool accounting, platform facts.

package api

// Debug exposes runtime introspection and health probes.
type Debug interface {
	// DumpState emits a snapshot of system state for diagnostics.
	DumpState() map[string]any

	// RegisterProbe dynamically registers a new debug probe.
	RegisterProbe(name string, fn func() any)
}
