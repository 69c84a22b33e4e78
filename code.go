package grpcwire

import (
	"fmt"
	"strconv"
)

// Code is one of gRPC's canonical status codes. There are no user-defined
// codes: only the sixteen error codes below, plus CodeOK, are valid.
//
// See https://github.com/grpc/grpc/blob/master/doc/statuscodes.md for
// detailed descriptions of each code.
type Code uint32

const (
	CodeOK                 Code = 0  // success
	CodeCanceled           Code = 1  // canceled, usually by the caller
	CodeUnknown            Code = 2  // unknown error
	CodeInvalidArgument    Code = 3  // argument invalid regardless of system state
	CodeDeadlineExceeded   Code = 4  // operation expired, may or may not have completed
	CodeNotFound           Code = 5  // entity not found
	CodeAlreadyExists      Code = 6  // entity already exists
	CodePermissionDenied   Code = 7  // operation not authorized
	CodeResourceExhausted  Code = 8  // quota exhausted
	CodeFailedPrecondition Code = 9  // argument invalid in current system state
	CodeAborted            Code = 10 // operation aborted
	CodeOutOfRange         Code = 11 // out of bounds, use instead of CodeFailedPrecondition
	CodeUnimplemented      Code = 12 // operation not implemented or disabled
	CodeInternal           Code = 13 // internal error, reserved for "serious errors"
	CodeUnavailable        Code = 14 // unavailable, client should back off and retry
	CodeDataLoss           Code = 15 // unrecoverable data loss or corruption
	CodeUnauthenticated    Code = 16 // request isn't authenticated

	minCode Code = CodeOK
	maxCode Code = CodeUnauthenticated
)

var (
	stringToCode = map[string]Code{
		"OK":                  CodeOK,
		"CANCELLED":           CodeCanceled, // gRPC spec uses British spelling
		"UNKNOWN":             CodeUnknown,
		"INVALID_ARGUMENT":    CodeInvalidArgument,
		"DEADLINE_EXCEEDED":   CodeDeadlineExceeded,
		"NOT_FOUND":           CodeNotFound,
		"ALREADY_EXISTS":      CodeAlreadyExists,
		"PERMISSION_DENIED":   CodePermissionDenied,
		"RESOURCE_EXHAUSTED":  CodeResourceExhausted,
		"FAILED_PRECONDITION": CodeFailedPrecondition,
		"ABORTED":             CodeAborted,
		"OUT_OF_RANGE":        CodeOutOfRange,
		"UNIMPLEMENTED":       CodeUnimplemented,
		"INTERNAL":            CodeInternal,
		"UNAVAILABLE":         CodeUnavailable,
		"DATA_LOSS":           CodeDataLoss,
		"UNAUTHENTICATED":     CodeUnauthenticated,
	}

	// httpToGRPC maps HTTP status codes observed on the wire (when a peer
	// short-circuits before ever reaching the gRPC layer, e.g. a proxy) to
	// gRPC codes. See
	// https://github.com/grpc/grpc/blob/master/doc/http-grpc-status-mapping.md;
	// this is not simply the inverse of grpcToHTTP below.
	httpToGRPC = map[int]Code{
		400: CodeInternal,
		401: CodeUnauthenticated,
		403: CodePermissionDenied,
		404: CodeUnimplemented,
		429: CodeUnavailable,
		502: CodeUnavailable,
		503: CodeUnavailable,
		504: CodeUnavailable,
		// all other HTTP status codes map to CodeUnknown
	}

	// grpcToHTTP backs Code.http(). Its only entry maps InvalidArgument to
	// 400, the status of a malformed :path; validatePseudoHeaders sets its
	// 405/400 statuses directly rather than through this table. Every
	// in-spec gRPC response, success or failure, is HTTP 200 with the real
	// status in trailers.
	grpcToHTTP = map[Code]int{
		CodeInvalidArgument: 400,
	}
)

// MarshalText implements encoding.TextMarshaler. Codes are marshaled in
// their numeric representation, matching the wire's decimal grpc-status.
func (c Code) MarshalText() ([]byte, error) {
	if c < minCode || c > maxCode {
		return nil, fmt.Errorf("invalid code %d", c)
	}
	return []byte(strconv.Itoa(int(c))), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts both the
// numeric representation (as produced by MarshalText) and the all-caps
// strings from the gRPC specification, including the British "CANCELLED".
func (c *Code) UnmarshalText(b []byte) error {
	if n, ok := stringToCode[string(b)]; ok {
		*c = n
		return nil
	}
	n, err := strconv.ParseUint(string(b), 10, 32)
	if err != nil {
		return fmt.Errorf("invalid code %q", string(b))
	}
	code := Code(n)
	if code < minCode || code > maxCode {
		return fmt.Errorf("invalid code %d", n)
	}
	*c = code
	return nil
}

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeCanceled:
		return "Canceled"
	case CodeUnknown:
		return "Unknown"
	case CodeInvalidArgument:
		return "InvalidArgument"
	case CodeDeadlineExceeded:
		return "DeadlineExceeded"
	case CodeNotFound:
		return "NotFound"
	case CodeAlreadyExists:
		return "AlreadyExists"
	case CodePermissionDenied:
		return "PermissionDenied"
	case CodeResourceExhausted:
		return "ResourceExhausted"
	case CodeFailedPrecondition:
		return "FailedPrecondition"
	case CodeAborted:
		return "Aborted"
	case CodeOutOfRange:
		return "OutOfRange"
	case CodeUnimplemented:
		return "Unimplemented"
	case CodeInternal:
		return "Internal"
	case CodeUnavailable:
		return "Unavailable"
	case CodeDataLoss:
		return "DataLoss"
	case CodeUnauthenticated:
		return "Unauthenticated"
	}
	return fmt.Sprintf("Code(%d)", c)
}

// toGrpcStatus converts a raw wire code into a Status, returning ok=false
// for any value outside the 0..16 range (spec.md §4.3, §8: codes 17..∞
// decode to None).
func toGrpcStatus(n int) (Status, bool) {
	if n < int(minCode) || n > int(maxCode) {
		return Status{}, false
	}
	return Status{Code: Code(n)}, true
}

// http maps a Code to an HTTP status through grpcToHTTP: InvalidArgument
// gives 400 and every other code 200. The server path does not call it;
// every gRPC response it writes is HTTP 200 with the real status carried
// in grpc-status.
func (c Code) http() int {
	if status, ok := grpcToHTTP[c]; ok {
		return status
	}
	return 200
}
