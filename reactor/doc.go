// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the per-carrier-thread edge-triggered
// readiness poller backing the stream transport, with epoll (Linux) and
// IOCP (Windows) implementations of api.Reactor.
package reactor
