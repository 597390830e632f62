//go:build windows
// +build windows

// File: reactor/reactor_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows IOCP readiness poller. Completion packets are surfaced as
// read- and write-ready hints; the stream transport treats them the same way as
// epoll edges.

package reactor

import (
	"syscall"

	"golang.org/x/sys/windows"

	"github.com/helyim/demikernel/api"
)

type windowsReactor struct {
	iocp windows.Handle
}

func newPlatformReactor() (api.Reactor, error) {
	port, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0)
	if err != nil {
		return nil, err
	}
	return &windowsReactor{iocp: port}, nil
}

// Register associates a handle with the completion port. IOCP has no
// per-direction interest; the interest set is accepted for API
// symmetry with the epoll backend.
func (r *windowsReactor) Register(fd uintptr, userData uintptr, _ api.Interest) error {
	_, err := windows.CreateIoCompletionPort(windows.Handle(fd), r.iocp, userData, 0)
	return err
}

// Deregister is a no-op: IOCP associations end when the handle closes.
func (r *windowsReactor) Deregister(uintptr) error { return nil }

// Poll drains queued completion packets without blocking.
func (r *windowsReactor) Poll(events []api.Event) (int, error) {
	n := 0
	for n < len(events) {
		var transferred uint32
		var key uintptr
		var overlapped *windows.Overlapped
		err := windows.GetQueuedCompletionStatus(r.iocp, &transferred, &key, &overlapped, 0)
		if err != nil {
			if errno, ok := err.(syscall.Errno); ok && errno == windows.WAIT_TIMEOUT {
				break
			}
			return n, err
		}
		events[n] = api.Event{
			Fd:       key,
			UserData: key,
			Ready:    api.InterestRead | api.InterestWrite,
		}
		n++
	}
	return n, nil
}

func (r *windowsReactor) Close() error {
	return windows.CloseHandle(r.iocp)
}
