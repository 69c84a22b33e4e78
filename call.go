package grpcwire

import (
	"fmt"
	"sync"
)

// callPhase is the call state machine's discrete state (spec.md §3's Call
// state diagram): Init, then HeadersSent, then Open (sending and receiving
// bounded by StreamType), ending in Closed. HalfClosedLocal
// and HalfClosedRemote are side-states reachable once one direction has
// sent its final element while the other hasn't.
type callPhase uint8

const (
	phaseInit callPhase = iota
	phaseHeadersSent
	phaseOpen             // both directions may still send/receive
	phaseHalfClosedLocal  // our side sent its final element; peer's may still be open
	phaseHalfClosedRemote // peer's side sent its final element; ours may still be open
	phaseClosed
)

func (p callPhase) String() string {
	switch p {
	case phaseInit:
		return "init"
	case phaseHeadersSent:
		return "headers-sent"
	case phaseOpen:
		return "open"
	case phaseHalfClosedLocal:
		return "half-closed-local"
	case phaseHalfClosedRemote:
		return "half-closed-remote"
	case phaseClosed:
		return "closed"
	}
	return "unknown"
}

// callDirection names one of the two flows a call state machine tracks.
// Unlike a raw HTTP/2 stream, a gRPC call's two directions close
// independently of the underlying connection's half-close: the local
// direction closes when we send our FinalElem, the remote direction closes
// when we observe the peer's.
type callDirection uint8

const (
	directionLocal callDirection = iota
	directionRemote
)

// call is the shared state machine underneath StreamForClient and
// StreamForHandler (spec.md §3's generalization of
// clientStream/serverStream to all four StreamTypes). It tracks whether
// each direction has sent/observed its terminal StreamElem and rejects
// operations a StreamType (or the current phase) disallows, independent of
// whatever codec or transport is moving the bytes.
//
// Grounded on other_examples/dd5257b1_dicenull-connect-go__stream.go.go's
// clientStream/serverStream, generalized from "one fixed direction shape
// per type" to an explicit phase/direction state machine so Unary,
// ClientStreaming, ServerStreaming, and BidiStreaming share one
// implementation instead of four ad hoc ones.
type call struct {
	mu sync.Mutex

	streamType StreamType
	phase      callPhase

	localClosed  bool
	remoteClosed bool

	localMsgCount  int
	remoteMsgCount int
}

func newCall(streamType StreamType) *call {
	return &call{streamType: streamType, phase: phaseInit}
}

// markHeadersSent transitions Init -> HeadersSent. It's a no-op if headers
// were already marked sent, since both unary and streaming calls only ever
// send one HEADERS frame.
func (c *call) markHeadersSent() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.phase {
	case phaseInit:
		c.phase = phaseHeadersSent
		return nil
	case phaseHeadersSent:
		return nil
	default:
		return errorf(CodeInternal, "call: markHeadersSent called in phase %s", c.phase)
	}
}

// markOpen transitions HeadersSent -> Open, the point at which both
// directions are eligible to send and receive messages.
func (c *call) markOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.phase {
	case phaseHeadersSent:
		c.phase = phaseOpen
		return nil
	case phaseOpen, phaseHalfClosedLocal, phaseHalfClosedRemote:
		return nil
	default:
		return errorf(CodeInternal, "call: markOpen called in phase %s", c.phase)
	}
}

// canSend reports whether a local Send is legal right now: the stream type
// must permit more than one local message for the second and later sends,
// and the local direction must not already be closed.
func (c *call) canSend() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.localClosed {
		return errorf(CodeFailedPrecondition, "call: send after the local direction is closed")
	}
	streams := c.streamType.ClientStreams()
	if !streams && c.localMsgCount >= 1 {
		return errorf(CodeFailedPrecondition, "call: %s does not allow more than one local message", c.streamType)
	}
	return nil
}

// recordSend marks one local message as sent.
func (c *call) recordSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.localMsgCount++
}

// canReceive reports whether a local Receive is legal right now.
func (c *call) canReceive() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remoteClosed {
		return errorf(CodeFailedPrecondition, "call: receive after the remote direction is closed")
	}
	streams := c.streamType.ServerStreams()
	if !streams && c.remoteMsgCount >= 1 {
		return errorf(CodeFailedPrecondition, "call: %s does not allow more than one remote message", c.streamType)
	}
	return nil
}

// recordReceive marks one remote message as received.
func (c *call) recordReceive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remoteMsgCount++
}

// closeDirection implements spec.md §3/§4.6's finality bookkeeping: once a
// direction observes (locally, by sending; remotely, by receiving) a
// StreamElem with IsTerminal() true, that direction is closed. When both
// directions are closed the call itself transitions to Closed; otherwise
// it becomes HalfClosedLocal or HalfClosedRemote depending on which side
// closed first.
func (c *call) closeDirection(dir callDirection) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch dir {
	case directionLocal:
		if c.localClosed {
			return nil
		}
		c.localClosed = true
	case directionRemote:
		if c.remoteClosed {
			return nil
		}
		c.remoteClosed = true
	default:
		return fmt.Errorf("grpcwire: unknown call direction %d", dir)
	}

	switch {
	case c.localClosed && c.remoteClosed:
		c.phase = phaseClosed
	case c.localClosed:
		c.phase = phaseHalfClosedLocal
	case c.remoteClosed:
		c.phase = phaseHalfClosedRemote
	}
	return nil
}

// isClosed reports whether both directions have closed.
func (c *call) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase == phaseClosed
}

// abort forces the call straight to Closed, for cancellation or a
// transport-level failure that makes further bookkeeping meaningless.
func (c *call) abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.localClosed = true
	c.remoteClosed = true
	c.phase = phaseClosed
}

// snapshot returns the current phase, for tests and diagnostics.
func (c *call) snapshot() callPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}
