// Package codec is the language-neutral form of spec.md §3's IsRPC
// capability and §9's "capability dispatch by RPC" note: rather than a
// phantom-type-indexed dispatch, we key a plain Codec interface plus a
// Descriptor value by procedure path at registration time.
package codec

import (
	"encoding/json"

	"google.golang.org/protobuf/proto"
)

// Codec is the serialization half of the IsRPC capability: a name (used
// to build the application/grpc+{name} content-type) plus a marshal/
// unmarshal pair.
type Codec interface {
	// Name returns the wire subtype, e.g. "proto" or "json".
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// ProtoCodec wraps google.golang.org/protobuf for proto.Message payloads,
// the format real gRPC services use on the wire.
type ProtoCodec struct{}

func (ProtoCodec) Name() string { return "proto" }

func (ProtoCodec) Marshal(v any) ([]byte, error) {
	msg, ok := v.(proto.Message)
	if !ok {
		return nil, errNotProtoMessage(v)
	}
	return proto.Marshal(msg)
}

func (ProtoCodec) Unmarshal(data []byte, v any) error {
	msg, ok := v.(proto.Message)
	if !ok {
		return errNotProtoMessage(v)
	}
	return proto.Unmarshal(data, msg)
}

// JSONCodec wraps encoding/json. spec.md §4.5 explicitly allows any
// application/grpc+{ourFormat} content-type, so this is a fully conformant
// wire format, not a shortcut — we use it for demo and test messages that
// don't require a protoc code-generation step.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// BinaryCodec is spec.md §3's BinaryRpc variant: the payload is already
// []byte on both sides, so Marshal/Unmarshal are pure copies. Name
// defaults to "proto" (the conventional content-type for an otherwise
// opaque byte-oriented RPC) unless Subtype is set.
type BinaryCodec struct {
	Subtype string
}

func (b BinaryCodec) Name() string {
	if b.Subtype != "" {
		return b.Subtype
	}
	return "proto"
}

func (BinaryCodec) Marshal(v any) ([]byte, error) {
	data, ok := v.(*[]byte)
	if !ok {
		return nil, errNotBytes(v)
	}
	return *data, nil
}

func (BinaryCodec) Unmarshal(data []byte, v any) error {
	dst, ok := v.(*[]byte)
	if !ok {
		return errNotBytes(v)
	}
	*dst = append((*dst)[:0], data...)
	return nil
}

func errNotProtoMessage(v any) error {
	return &unsupportedTypeError{kind: "proto.Message", value: v}
}

func errNotBytes(v any) error {
	return &unsupportedTypeError{kind: "*[]byte", value: v}
}

type unsupportedTypeError struct {
	kind  string
	value any
}

func (e *unsupportedTypeError) Error() string {
	return "codec: value does not implement " + e.kind
}
