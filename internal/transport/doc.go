// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// NIC poll-mode driver backends for the datagram transport: a raw
// AF_PACKET socket on Linux (frames bypass the kernel's UDP/IP stack;
// the codec synthesizes and validates every header itself) and an
// optional DPDK backend behind the dpdk build tag. Both speak the
// burst-oriented api.Transport contract the datagram adapter drives.

package transport
