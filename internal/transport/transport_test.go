package transport_test

import (
	"errors"
	"testing"

	"github.com/helyim/demikernel/api"
	"github.com/helyim/demikernel/internal/transport"
)

func TestNativeTransportLifecycle(t *testing.T) {
	tr, err := transport.NewTransport(16)
	if err != nil {
		// Raw packet sockets need privileges (and a Linux host); the
		// datagram path degrades to unavailable in that case.
		t.Skipf("no NIC backend here: %v", err)
	}
	feats := tr.Features()
	if !feats.Batch {
		t.Errorf("expected a batch-capable backend, got %+v", feats)
	}
	if err := tr.Close(); err != nil {
		t.Error(err)
	}
	if err := tr.Close(); err != nil {
		t.Error(err)
	}
}

func TestDPDKStubReturnsError(t *testing.T) {
	tr, err := transport.NewDPDKTransport(64)
	if tr != nil || err == nil {
		t.Fatal("expected DPDK stub to error without the dpdk build tag")
	}
	if !errors.Is(err, api.ErrNotSupported) {
		t.Errorf("unexpected DPDK error: %v", err)
	}
}

func TestSelectorNamesABackend(t *testing.T) {
	if transport.RuntimeTransportSelector() == "" {
		t.Fatal("selector returned an empty backend name")
	}
}
