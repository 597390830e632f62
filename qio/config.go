package qio

import "github.com/helyim/demikernel/control"

// Config holds the runtime tuning knobs every carrier thread's qio.Runtime
// reads at construction. It is backed by control.ConfigStore so values
// can be introspected and hot-reloaded through api.Control, even though
// the runtime itself snapshots them once at NewRuntime time: mutable
// runtime state stays thread-local, so config is read, not re-polled,
// mid-flight.
type Config struct {
	// MaxProgressSteps is the default work-queue step bound a Progress
	// call uses when the caller passes a non-positive count.
	MaxProgressSteps int
	// DefaultSegmentSize sizes pop-path buffers when a segment length
	// isn't yet known from the wire (currently unused by the codec,
	// which always has an exact length prefix; kept for forward
	// compatibility with a future streaming decode path).
	DefaultSegmentSize int
	// NUMAPreferred is passed through to the buffer pool for segment
	// allocation locality.
	NUMAPreferred int
	// MaxTasks bounds the number of outstanding tasks across all queues
	// owned by one Runtime, sized for a library rather than a full OS.
	MaxTasks int
}

// DefaultConfig returns the library's built-in defaults.
func DefaultConfig() Config {
	return Config{
		MaxProgressSteps:   32,
		DefaultSegmentSize: 4096,
		NUMAPreferred:      -1,
		MaxTasks:           65536,
	}
}

// ConfigFromStore builds a Config from a control.ConfigStore snapshot,
// falling back to DefaultConfig for any key the store doesn't carry.
func ConfigFromStore(cs *control.ConfigStore) Config {
	return ConfigFromSnapshot(cs.GetSnapshot())
}

// ConfigFromSnapshot reads the same keys out of any config snapshot —
// the launcher feeds it api.Control's GetConfig map.
func ConfigFromSnapshot(snap map[string]any) Config {
	cfg := DefaultConfig()
	if v, ok := snap["qio.max_progress_steps"].(int); ok {
		cfg.MaxProgressSteps = v
	}
	if v, ok := snap["qio.default_segment_size"].(int); ok {
		cfg.DefaultSegmentSize = v
	}
	if v, ok := snap["qio.numa_preferred"].(int); ok {
		cfg.NUMAPreferred = v
	}
	if v, ok := snap["qio.max_tasks"].(int); ok {
		cfg.MaxTasks = v
	}
	return cfg
}
