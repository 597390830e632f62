//go:build !dpdk
// +build !dpdk

// Package transport: stub when DPDK is not compiled in.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"fmt"

	"github.com/helyim/demikernel/api"
)

// NewDPDKTransport always fails without the dpdk build tag.
func NewDPDKTransport(int) (api.Transport, error) {
	return nil, fmt.Errorf("transport: dpdk backend not compiled in: %w", api.ErrNotSupported)
}
