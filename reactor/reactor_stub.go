//go:build !linux && !windows
// +build !linux,!windows

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Platforms without a readiness backend: the runtime runs pollerless
// and stream progress falls back to optimistic non-blocking attempts.

package reactor

import (
	"errors"

	"github.com/helyim/demikernel/api"
)

func newPlatformReactor() (api.Reactor, error) {
	return nil, errors.New("reactor: no readiness poller on this platform")
}
