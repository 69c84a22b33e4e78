package grpcwire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/anypb"
)

// Error is the in-memory form of spec.md §3's GrpcException: a gRPC status
// code, an optional wrapped error (whose Error() string becomes
// grpc-message on the wire), and optional binary details carried in
// grpc-status-details-bin.
//
// Error implements the standard library's error interface and supports
// errors.Is/errors.As through Unwrap, so callers can use normal Go error
// handling idioms instead of a bespoke exception hierarchy.
type Error struct {
	code    Code
	err     error
	details []*anypb.Any
	meta    Trailers
}

// NewError constructs an *Error from a Code and an underlying cause. A nil
// cause is replaced with an empty error so Error() never panics.
func NewError(code Code, cause error) *Error {
	if cause == nil {
		cause = errors.New("")
	}
	return &Error{code: code, err: cause}
}

// errorf builds an *Error from a Code plus a fmt-style message, so call
// sites read like fmt.Errorf.
func errorf(code Code, format string, args ...any) *Error {
	return &Error{code: code, err: fmt.Errorf(format, args...)}
}

// wrap attaches a Code to an existing error without altering its message.
func wrap(code Code, err error) *Error {
	if connectErr, ok := AsError(err); ok {
		return connectErr
	}
	return &Error{code: code, err: err}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	text := ""
	if e.err != nil {
		text = e.err.Error()
	}
	if text == "" {
		return e.code.String()
	}
	return e.code.String() + ": " + text
}

// Unwrap lets errors.Is/errors.As see through to the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Code reports the gRPC status code. Calling Code on a nil *Error returns
// CodeOK, matching CodeOf's contract for nil errors.
func (e *Error) Code() Code {
	if e == nil {
		return CodeOK
	}
	return e.code
}

// Message returns the underlying cause's message, without the "Code: "
// prefix Error() adds.
func (e *Error) Message() string {
	if e == nil || e.err == nil {
		return ""
	}
	return e.err.Error()
}

// Details returns any binary details attached to the error (decoded from
// grpc-status-details-bin, or set directly by server-side code).
func (e *Error) Details() []*anypb.Any {
	if e == nil {
		return nil
	}
	return e.details
}

// SetDetails replaces the error's details. Server handlers use this to
// attach structured error information before returning the error; it's
// propagated verbatim (spec.md §7: "surface the exact GrpcException").
func (e *Error) SetDetails(details ...*anypb.Any) *Error {
	e.details = details
	return e
}

// Meta returns the trailers that accompanied this error: on the client,
// the trailers (custom metadata included) the peer sent with its non-OK
// status. Errors built with NewError carry none.
func (e *Error) Meta() Trailers {
	return e.meta
}

// AsError reports whether err is, or wraps, an *Error, mirroring the
// standard library's errors.As without requiring callers to declare a
// local variable first.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var connectErr *Error
	ok := errors.As(err, &connectErr)
	return connectErr, ok
}

// CodeOf reports the gRPC status code of an error: CodeOK for a nil error,
// the wrapped code for an *Error, and CodeUnknown for anything else.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	if connectErr, ok := AsError(err); ok {
		return connectErr.Code()
	}
	return CodeUnknown
}
