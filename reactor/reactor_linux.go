//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7) readiness poller. Registrations are edge-triggered:
// one event per readable/writable transition, consumed by the stream
// transport's progress routines, which re-arm by reading/writing until
// EAGAIN.

package reactor

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/helyim/demikernel/api"
)

type linuxReactor struct {
	epfd int
}

func newPlatformReactor() (api.Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &linuxReactor{epfd: epfd}, nil
}

func epollMask(interest api.Interest) uint32 {
	mask := uint32(unix.EPOLLET)
	if interest&api.InterestRead != 0 {
		mask |= unix.EPOLLIN
	}
	if interest&api.InterestWrite != 0 {
		mask |= unix.EPOLLOUT
	}
	return mask
}

// Register adds a socket under the requested interest set. UserData
// occupies the event's 8-byte data union (the Fd+Pad fields of
// unix.EpollEvent) so Poll hands it back without a lookup table.
func (r *linuxReactor) Register(fd uintptr, userData uintptr, interest api.Interest) error {
	event := &unix.EpollEvent{Events: epollMask(interest)}
	*(*uintptr)(unsafe.Pointer(&event.Fd)) = userData
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, int(fd), event)
}

// Deregister removes a socket from the poller.
func (r *linuxReactor) Deregister(fd uintptr) error {
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, int(fd), nil)
}

// Poll drains pending readiness without blocking (timeout zero): the
// carrier thread's progress loop is the scheduler here, not epoll_wait.
func (r *linuxReactor) Poll(events []api.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	rawEvents := make([]unix.EpollEvent, len(events))
	n, err := unix.EpollWait(r.epfd, rawEvents, 0)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	for i := 0; i < n; i++ {
		var ready api.Interest
		if rawEvents[i].Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			ready |= api.InterestRead
		}
		if rawEvents[i].Events&(unix.EPOLLOUT|unix.EPOLLERR) != 0 {
			ready |= api.InterestWrite
		}
		ud := *(*uintptr)(unsafe.Pointer(&rawEvents[i].Fd))
		events[i] = api.Event{
			Fd:       ud,
			UserData: ud,
			Ready:    ready,
		}
	}
	return n, nil
}

func (r *linuxReactor) Close() error {
	return unix.Close(r.epfd)
}
