//go:build linux
// +build linux

// internal/transport/transport_linux.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux NIC backend: a non-blocking AF_PACKET raw socket bound to one
// interface. Frames arrive and leave with their Ethernet headers
// intact, so the datagram codec owns the entire header stack.

package transport

import (
	"errors"
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/helyim/demikernel/api"
	"github.com/helyim/demikernel/pool"
)

// maxFrameSize bounds one received frame: standard MTU plus the
// Ethernet header, rounded into the pool's 2 KiB class.
const maxFrameSize = 2048

type packetTransport struct {
	fd       int
	ifindex  int
	burst    int
	rxBuf    api.Buffer // reusable receive scratch from the pool
	closed   bool
	features api.TransportFeatures
}

// htons converts a short to network byte order for sockaddr_ll.
func htons(v uint16) uint16 { return v<<8 | v>>8 }

// defaultInterface picks the first up, non-loopback interface.
func defaultInterface() (*net.Interface, error) {
	ifs, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("transport: list interfaces: %w", err)
	}
	for i := range ifs {
		ifi := &ifs[i]
		if ifi.Flags&net.FlagUp != 0 && ifi.Flags&net.FlagLoopback == 0 {
			return ifi, nil
		}
	}
	return nil, errors.New("transport: no usable network interface")
}

func newTransportInternal(burst int) (api.Transport, error) {
	if burst <= 0 {
		burst = 16
	}
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC,
		int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, fmt.Errorf("transport: packet socket: %w", err)
	}
	ifi, err := defaultInterface()
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	sll := &unix.SockaddrLinklayer{Protocol: htons(unix.ETH_P_ALL), Ifindex: ifi.Index}
	if err := unix.Bind(fd, sll); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("transport: bind to %s: %w", ifi.Name, err)
	}
	return &packetTransport{
		fd:      fd,
		ifindex: ifi.Index,
		burst:   burst,
		rxBuf:   pool.DefaultPool(-1).Get(maxFrameSize, -1),
		features: api.TransportFeatures{
			Batch:    true,
			LockFree: true,
			OS:       []string{"linux"},
		},
	}, nil
}

// Send writes each frame of the burst to the wire. A would-block or
// exhausted-buffer result on the first frame reports
// api.ErrResourceExhausted so the datagram adapter keeps its task
// pending; a single-packet burst never partially succeeds.
func (pt *packetTransport) Send(buffers [][]byte) error {
	if pt.closed {
		return api.ErrTransportClosed
	}
	for i, frame := range buffers {
		if _, err := unix.Write(pt.fd, frame); err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.ENOBUFS {
				if i == 0 {
					return api.ErrResourceExhausted
				}
				return nil // later frames retry next burst
			}
			return fmt.Errorf("transport: send frame: %w", err)
		}
	}
	return nil
}

// Recv pulls up to the burst bound of frames. Each frame is copied out
// of the shared scratch buffer into an exact-size slice the caller
// owns, since the backlog outlives this call.
func (pt *packetTransport) Recv() ([][]byte, error) {
	if pt.closed {
		return nil, api.ErrTransportClosed
	}
	scratch := pt.rxBuf.Bytes()[:maxFrameSize]
	var out [][]byte
	for len(out) < pt.burst {
		n, _, err := unix.Recvfrom(pt.fd, scratch, unix.MSG_DONTWAIT)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				break
			}
			return out, fmt.Errorf("transport: recv frame: %w", err)
		}
		if n <= 0 {
			break
		}
		out = append(out, append([]byte(nil), scratch[:n]...))
	}
	return out, nil
}

// Close releases the socket and the receive scratch. Idempotent.
func (pt *packetTransport) Close() error {
	if pt.closed {
		return nil
	}
	pt.closed = true
	pt.rxBuf.Release()
	return unix.Close(pt.fd)
}

func (pt *packetTransport) Features() api.TransportFeatures {
	return pt.features
}
