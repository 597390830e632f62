// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Burst-oriented device contract implemented by NIC poll-mode drivers.
// The datagram transport hands fully synthesized Ethernet frames to
// Send and pulls raw received frames from Recv; neither call blocks.

package api

// Transport abstracts a batched send/receive device endpoint: the NIC
// poll-mode driver underneath the datagram transport, or a loopback
// double in tests.
type Transport interface {
	// Send hands a burst of frames to the device. ErrResourceExhausted
	// means the device accepted zero frames this burst — transient
	// back-pressure, not a failure.
	Send(buffers [][]byte) error

	// Recv returns whatever frames are currently available, or
	// (nil, nil) when none are ready. Never blocks.
	Recv() ([][]byte, error)

	// Close releases the underlying device/socket resources.
	Close() error

	// Features reports the capabilities of this transport instance.
	Features() TransportFeatures
}

// TransportFeatures advertises the capabilities of a Transport
// implementation, surfaced through debug probes and used by the
// launcher to decide whether datagram queues can be offered.
type TransportFeatures struct {
	ZeroCopy     bool
	Batch        bool
	NUMAAware    bool
	LockFree     bool
	SharedMemory bool
	OS           []string
}
