// File: api/control.go
// Package api defines the Control interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Control manages dynamic runtime configuration and metrics: the
// launcher seeds it with tuning knobs, the queue runtime mirrors its
// counters into it, and operators read both back through Stats.
type Control interface {
	GetConfig() map[string]any
	SetConfig(cfg map[string]any) error
	Stats() map[string]any
	OnReload(fn func())
	SetMetric(key string, value any)
	RegisterDebugProbe(name string, fn func() any)
}
