// Package statuspb is a hand-wired equivalent of google.rpc.Status, used
// to serialize grpc-status-details-bin (spec.md §6, §7). We encode/decode
// its three fields directly with protowire instead of shipping
// protoc-generated bindings, since this is the only message our own wire
// protocol ever needs to produce.
package statuspb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
)

// Status mirrors google.rpc.Status: a canonical error code, a developer
// message, and zero or more typed detail messages.
type Status struct {
	Code    int32
	Message string
	Details []*anypb.Any
}

const (
	fieldCode    = 1
	fieldMessage = 2
	fieldDetails = 3
)

// Marshal encodes s using the same wire layout protoc would generate for
// google.rpc.Status: varint code, length-delimited message, repeated
// length-delimited Any details.
func Marshal(s *Status) ([]byte, error) {
	var out []byte
	if s.Code != 0 {
		out = protowire.AppendTag(out, fieldCode, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(uint32(s.Code)))
	}
	if s.Message != "" {
		out = protowire.AppendTag(out, fieldMessage, protowire.BytesType)
		out = protowire.AppendString(out, s.Message)
	}
	for _, detail := range s.Details {
		encoded, err := proto.Marshal(detail)
		if err != nil {
			return nil, fmt.Errorf("statuspb: marshal detail: %w", err)
		}
		out = protowire.AppendTag(out, fieldDetails, protowire.BytesType)
		out = protowire.AppendBytes(out, encoded)
	}
	return out, nil
}

// Unmarshal decodes b into a *Status, ignoring unknown fields (forward
// compatible with future google.rpc.Status additions, matching protobuf's
// own unknown-field tolerance).
func Unmarshal(b []byte) (*Status, error) {
	s := &Status{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("statuspb: invalid tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldCode:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("statuspb: invalid code field: %w", protowire.ParseError(n))
			}
			s.Code = int32(v)
			b = b[n:]
		case fieldMessage:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("statuspb: invalid message field: %w", protowire.ParseError(n))
			}
			s.Message = string(v)
			b = b[n:]
		case fieldDetails:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("statuspb: invalid details field: %w", protowire.ParseError(n))
			}
			detail := &anypb.Any{}
			if err := proto.Unmarshal(v, detail); err != nil {
				return nil, fmt.Errorf("statuspb: unmarshal detail: %w", err)
			}
			s.Details = append(s.Details, detail)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("statuspb: invalid field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return s, nil
}
