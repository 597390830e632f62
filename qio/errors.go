// Package qio implements the queue runtime and the queue-descriptor
// table: QD lifecycle, the per-queue pending-task registry and work
// queue, and the push/pop/poll/wait/drop contract.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package qio

import (
	"errors"

	"github.com/helyim/demikernel/api"
	"github.com/helyim/demikernel/codec"
	"github.com/helyim/demikernel/transport/stream"
)

// ErrorCode is one of the error categories surfaced to callers.
type ErrorCode int

const (
	ErrInvalidArgument ErrorCode = iota
	ErrUnsupported
	ErrUnknownDescriptor
	ErrUnknownToken
	ErrBusy
	ErrClosed
	ErrProtocol
	ErrTransportIO
	ErrOutOfMemory
)

func (c ErrorCode) String() string {
	switch c {
	case ErrInvalidArgument:
		return "invalid-argument"
	case ErrUnsupported:
		return "unsupported"
	case ErrUnknownDescriptor:
		return "unknown-descriptor"
	case ErrUnknownToken:
		return "unknown-token"
	case ErrBusy:
		return "busy"
	case ErrClosed:
		return "closed"
	case ErrProtocol:
		return "protocol"
	case ErrTransportIO:
		return "transport-io"
	case ErrOutOfMemory:
		return "out-of-memory"
	default:
		return "unknown"
	}
}

// apiCode maps a qio category onto the structured api.ErrorCode space so
// errors crossing the public boundary carry a machine-readable code in
// both vocabularies.
func (c ErrorCode) apiCode() api.ErrorCode {
	switch c {
	case ErrInvalidArgument:
		return api.ErrCodeInvalidArgument
	case ErrUnsupported:
		return api.ErrCodeNotSupported
	case ErrUnknownDescriptor, ErrUnknownToken:
		return api.ErrCodeNotFound
	case ErrBusy, ErrOutOfMemory:
		return api.ErrCodeResourceExhausted
	default:
		return api.ErrCodeInternal
	}
}

// Error is the structured error type every public qio operation returns
// on failure: an error category plus an *api.Error carrying the message
// and any debugging context.
type Error struct {
	Code   ErrorCode
	Detail *api.Error
}

func (e *Error) Error() string {
	return e.Code.String() + ": " + e.Detail.Error()
}

func (e *Error) Unwrap() error { return e.Detail }

func newError(code ErrorCode, msg string) *Error {
	return &Error{Code: code, Detail: api.NewError(code.apiCode(), msg)}
}

func wrapError(code ErrorCode, err error) *Error {
	if err == nil {
		return nil
	}
	var qe *Error
	if errors.As(err, &qe) {
		return qe
	}
	return newError(code, err.Error())
}

// classify folds a transport- or codec-level failure into the category
// the caller sees: magic mismatches and poisoned connections are
// protocol errors, oversize or address-less sends are argument errors,
// a closed buffer pool is out-of-memory, a closed transport is closed,
// everything else is transport I/O.
func classify(err error) ErrorCode {
	switch {
	case errors.Is(err, codec.ErrProtocol), errors.Is(err, stream.ErrPoisoned):
		return ErrProtocol
	case errors.Is(err, codec.ErrOversize), errors.Is(err, codec.ErrNoPeer):
		return ErrInvalidArgument
	case errors.Is(err, api.ErrBufferPoolClosed):
		return ErrOutOfMemory
	case errors.Is(err, api.ErrTransportClosed):
		return ErrClosed
	default:
		return ErrTransportIO
	}
}
