package api_test

import (
	"testing"

	"github.com/helyim/demikernel/api"
)

func TestTransportFeaturesStruct(t *testing.T) {
	f := api.TransportFeatures{ZeroCopy: true, Batch: false}
	if !f.ZeroCopy || f.Batch {
		t.Fatal("TransportFeatures fields not set correctly")
	}
}

func TestMockTransportScriptsBackpressure(t *testing.T) {
	var _ api.Transport = (*api.MockTransport)(nil)

	calls := 0
	mock := &api.MockTransport{
		SendFunc: func(frames [][]byte) error {
			calls++
			if calls == 1 {
				return api.ErrResourceExhausted
			}
			return nil
		},
		RecvFunc: func() ([][]byte, error) { return nil, nil },
	}
	if err := mock.Send(nil); err != api.ErrResourceExhausted {
		t.Fatalf("first burst should report exhaustion, got %v", err)
	}
	if err := mock.Send(nil); err != nil {
		t.Fatalf("second burst should succeed, got %v", err)
	}
	if err := mock.Close(); err != nil {
		t.Fatalf("nil CloseFunc should be a no-op, got %v", err)
	}
}
