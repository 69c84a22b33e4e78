package grpcwire

import (
	"time"

	"google.golang.org/protobuf/types/known/anypb"

	"github.com/coldharbor/grpcwire/codec"
)

// StreamType describes whether the client, server, neither, or both sides
// of a call stream multiple messages (spec.md §3).
type StreamType uint8

const (
	StreamTypeUnary  StreamType = 0b00
	StreamTypeClient StreamType = 0b01
	StreamTypeServer StreamType = 0b10
	StreamTypeBidi              = StreamTypeClient | StreamTypeServer
)

func (t StreamType) String() string {
	switch t {
	case StreamTypeUnary:
		return "unary"
	case StreamTypeClient:
		return "client-streaming"
	case StreamTypeServer:
		return "server-streaming"
	case StreamTypeBidi:
		return "bidi-streaming"
	}
	return "unknown"
}

// ClientStreams reports whether the client side of this StreamType may
// send more than one message.
func (t StreamType) ClientStreams() bool { return t&StreamTypeClient != 0 }

// ServerStreams reports whether the server side of this StreamType may
// send more than one message.
func (t StreamType) ServerStreams() bool { return t&StreamTypeServer != 0 }

// Descriptor is the language-neutral form of spec.md §3's IsRPC
// capability: a procedure path, its streaming kind, and the Codec that
// serializes its messages. It's registered once per RPC, at handler/
// client construction time (spec.md §9's "capability dispatch by RPC").
type Descriptor struct {
	Procedure  string // "/{service}/{method}"
	StreamType StreamType
	Codec      codec.Codec
}

// Peer describes the other party to a call. Client-side, Addr is the host
// (or host:port) from the connection's URL; server-side, it's the client's
// address in IP:port form.
type Peer struct {
	Addr string
}

// Spec describes a single call or handler invocation: which RPC it is,
// and which side we're running as.
type Spec struct {
	Descriptor Descriptor
	IsClient   bool
}

// pseudoHeaders is spec.md §3's PseudoHeaders: the HTTP/2 :scheme,
// :method, :authority, :path quartet that identifies a request before any
// gRPC-specific header is examined.
type pseudoHeaders struct {
	scheme    string
	method    string
	authority string
	path      string
}

// CallOptions is spec.md §3's CallParams: the user-facing subset of
// RequestHeaders a caller actually controls.
type CallOptions struct {
	Timeout        time.Duration // zero means "no deadline beyond ctx"
	CustomMetadata []MetadataEntry
}

// RequestHeaders is spec.md §3's RequestHeaders record.
type RequestHeaders struct {
	Timeout           time.Duration
	HasTimeout        bool
	Compression       CompressionID
	AcceptCompression []CompressionID
	CustomMetadata    []MetadataEntry
	MessageType       string // serializationFormat, e.g. "proto"
}

// ResponseHeaders is spec.md §3's ResponseHeaders record.
type ResponseHeaders struct {
	Compression       CompressionID
	HasCompression    bool
	AcceptCompression []CompressionID
	CustomMetadata    []MetadataEntry
}

// Trailers is spec.md §3's ProperTrailers record: at minimum a status,
// optionally a message (folded into Status.Message) and custom metadata.
type Trailers struct {
	Status         Status
	CustomMetadata []MetadataEntry
	Details        []*anypb.Any
}
