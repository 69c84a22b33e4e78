package grpcwire

import "context"

// Stream is the minimal surface every streaming call or handler exposes,
// regardless of StreamType. The typed wrappers (StreamForClient,
// StreamForHandler) both satisfy it.
//
// Grounded on other_examples/dd5257b1_dicenull-connect-go__stream.go.go's
// Stream interface, trimmed to the part that doesn't depend on a concrete
// message type (Send/Receive move to the generic wrappers, since this
// module supports more than one StreamType per call and more than one
// Codec).
type Stream interface {
	Context() context.Context
}
