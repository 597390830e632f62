//go:build !linux
// +build !linux

// internal/transport/transport_other.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platforms without a raw-frame socket surface run stream queues only;
// datagram queues need the Linux AF_PACKET backend or DPDK.

package transport

import (
	"fmt"

	"github.com/helyim/demikernel/api"
)

func newTransportInternal(int) (api.Transport, error) {
	return nil, fmt.Errorf("transport: no NIC backend on this platform: %w", api.ErrNotSupported)
}
