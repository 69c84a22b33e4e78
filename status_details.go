package grpcwire

import "github.com/coldharbor/grpcwire/internal/statuspb"

// encodeStatusDetails serializes an *Error's Code, Message, and Details
// into the base64 form grpc-status-details-bin carries on the wire,
// mirroring grpc-go's encoding of google.rpc.Status
// (other_examples/354c48ed_..._http_util.go.go documents the same header).
func encodeStatusDetails(e *Error) (string, error) {
	msg := &statuspb.Status{
		Code:    int32(e.Code()),
		Message: e.Message(),
		Details: e.Details(),
	}
	data, err := statuspb.Marshal(msg)
	if err != nil {
		return "", errorf(CodeInternal, "marshal status details: %w", err)
	}
	return encodeBinaryHeader(data), nil
}

// decodeStatusDetails is the client-side counterpart parseTrailers uses
// to prefer grpc-status-details-bin over the plaintext
// grpc-status/grpc-message pair when both are present (grpc-go does this
// too).
func decodeStatusDetails(encoded string) (*statuspb.Status, error) {
	data, err := decodeBinaryHeader(encoded)
	if err != nil {
		return nil, errorf(CodeUnknown, "invalid grpc-status-details-bin: %w", err)
	}
	msg, err := statuspb.Unmarshal(data)
	if err != nil {
		return nil, errorf(CodeUnknown, "invalid protobuf for status details: %w", err)
	}
	return msg, nil
}
