// Package transport
// Author: momentics <momentics@gmail.com>
//
// Platform-independent facade and factory for the NIC driver
// implementations. The wrapper adds hot-swap so a launcher can replace
// a failed backend (e.g. fall from DPDK to AF_PACKET) without the
// datagram queues noticing.

package transport

import (
	"sync"

	"github.com/helyim/demikernel/api"
)

// TransportWrapper implements api.Transport around a swappable backend.
type TransportWrapper struct {
	mu   sync.RWMutex
	impl api.Transport
}

// NewTransport opens the host platform's NIC backend with the given
// receive burst bound (frames pulled per Recv call).
func NewTransport(burst int) (api.Transport, error) {
	impl, err := newTransportInternal(burst)
	if err != nil {
		return nil, err
	}
	return &TransportWrapper{impl: impl}, nil
}

// Send hands a frame burst to the backend.
func (t *TransportWrapper) Send(buffers [][]byte) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.impl.Send(buffers)
}

// Recv pulls whatever frames the backend has ready.
func (t *TransportWrapper) Recv() ([][]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.impl.Recv()
}

// Close releases the backend.
func (t *TransportWrapper) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.impl.Close()
}

// Features reports the backend's capabilities.
func (t *TransportWrapper) Features() api.TransportFeatures {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.impl.Features()
}

// SetImplementation hot-swaps the underlying backend, closing the old one.
func (t *TransportWrapper) SetImplementation(newImpl api.Transport) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.impl != nil {
		_ = t.impl.Close()
	}
	t.impl = newImpl
}
