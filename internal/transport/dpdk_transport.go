//go:build dpdk
// +build dpdk

// Package transport: DPDK poll-mode backend.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Placeholder EAL wiring: the burst surface matches api.Transport so
// real rte_eth_rx_burst/tx_burst bindings slot in without touching the
// datagram adapter. Built only under the dpdk tag.

package transport

import (
	"github.com/helyim/demikernel/api"
)

type dpdkTransport struct {
	burst int
}

// NewDPDKTransport initializes the DPDK backend with the given burst
// bound.
func NewDPDKTransport(burst int) (api.Transport, error) {
	return &dpdkTransport{burst: burst}, nil
}

func (d *dpdkTransport) Recv() ([][]byte, error) {
	// rte_eth_rx_burst up to d.burst mbufs.
	return nil, nil
}

func (d *dpdkTransport) Send(buffers [][]byte) error {
	// rte_eth_tx_burst; zero accepted maps to api.ErrResourceExhausted.
	return nil
}

func (d *dpdkTransport) Close() error {
	return nil
}

func (d *dpdkTransport) Features() api.TransportFeatures {
	return api.TransportFeatures{ZeroCopy: true, Batch: true, NUMAAware: true, OS: []string{"linux"}}
}
