// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency primitives behind the multi-carrier launcher: CPU/NUMA
// pinning for carrier threads (each carrier owns a disjoint set of
// queues and its own runtime), and a small executor for fanning
// per-connection handler work out inside one carrier.
//
// Implementations are cross-platform (Linux via pthread_setaffinity_np and
// libnuma under cgo, Windows via SetThreadAffinityMask) with no-op
// fallbacks elsewhere.
package concurrency
