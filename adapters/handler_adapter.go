// File: adapters/handler_adapter.go
// Package adapters
// Author: momentics <momentics@gmail.com>
//
// HandlerFunc glue and middleware chaining for application message
// handlers: the launcher wraps its per-connection echo/processing
// callback in recovery and metrics layers before handing it
// to an executor worker.

package adapters

import (
	"log"
	"sync/atomic"

	"github.com/helyim/demikernel/api"
)

// HandlerFunc converts a function into an api.Handler.
type HandlerFunc func(data any) error

// Handle calls the underlying function.
func (f HandlerFunc) Handle(data any) error {
	return f(data)
}

// MiddlewareHandler wraps a base Handler and applies middleware in chain.
type MiddlewareHandler struct {
	handler    api.Handler
	middleware []func(api.Handler) api.Handler
}

// NewMiddlewareHandler creates a new MiddlewareHandler for the given base handler.
func NewMiddlewareHandler(handler api.Handler) *MiddlewareHandler {
	return &MiddlewareHandler{
		handler:    handler,
		middleware: make([]func(api.Handler) api.Handler, 0),
	}
}

// Use appends a middleware to the chain.
func (m *MiddlewareHandler) Use(mw func(api.Handler) api.Handler) *MiddlewareHandler {
	m.middleware = append(m.middleware, mw)
	return m
}

// Handle applies all middleware then calls the base handler.
func (m *MiddlewareHandler) Handle(data any) error {
	handler := m.handler
	for i := len(m.middleware) - 1; i >= 0; i-- {
		handler = m.middleware[i](handler)
	}
	return handler.Handle(data)
}

// LoggingMiddleware logs entry and errors of handler invocation.
func LoggingMiddleware(next api.Handler) api.Handler {
	return HandlerFunc(func(data any) error {
		log.Printf("[Handler] Processing data: %T", data)
		err := next.Handle(data)
		if err != nil {
			log.Printf("[Handler] Error: %v", err)
		}
		return err
	})
}

// RecoveryMiddleware recovers from panics in a handler so one bad
// message cannot take an executor worker down.
func RecoveryMiddleware(next api.Handler) api.Handler {
	return HandlerFunc(func(data any) error {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Handler] Panic recovered: %v", r)
			}
		}()
		return next.Handle(data)
	})
}

// MetricsMiddleware counts processed messages into the Control metrics
// under "handler.processed".
func MetricsMiddleware(control api.Control) func(api.Handler) api.Handler {
	var processed int64
	return func(next api.Handler) api.Handler {
		return HandlerFunc(func(data any) error {
			control.SetMetric("handler.processed", atomic.AddInt64(&processed, 1))
			return next.Handle(data)
		})
	}
}
