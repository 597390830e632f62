// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations, DTOs, and constants.

package api

import "time"

// QueueState enumerates the lifecycle of one queue descriptor, from
// creation through bind/listen/connect to closure.
type QueueState int

const (
	QueueCreated QueueState = iota
	QueueBound
	QueueListening
	QueueConnected
	QueueClosed
)

func (s QueueState) String() string {
	switch s {
	case QueueBound:
		return "bound"
	case QueueListening:
		return "listening"
	case QueueConnected:
		return "connected"
	case QueueClosed:
		return "closed"
	default:
		return "created"
	}
}

// APIMetrics provides a standard layout for runtime health/statistics reporting.
type APIMetrics struct {
	NumQueues       int
	NumTasks        int
	InboundTraffic  uint64 // bytes received
	OutboundTraffic uint64 // bytes sent
	StartedAt       time.Time
}

// ServiceInfo exposes descriptive build- and runtime info for external tools.
type ServiceInfo struct {
	Name      string
	Version   string
	Build     string
	StartedAt time.Time
}
