package grpcwire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// flagCompressed is the low bit of the one-byte envelope prefix spec.md
// §4.1 defines: set when the payload was compressed under the call's
// negotiated algorithm.
const flagCompressed byte = 0x01

const envelopePrefixLen = 5 // 1 byte flag + 4 byte big-endian length

// envelopeReader is the streaming length-prefixed-message parser of
// spec.md §4.1. It's deliberately built directly on io.Reader rather than
// maintaining its own rolling buffer: blocking on io.ReadFull gives us
// "suspend until 5+length bytes are available" for free, since the
// surrounding HTTP/2 stream (an external collaborator per spec.md §1)
// already provides backpressure.
type envelopeReader struct {
	r            io.Reader
	maxReadBytes int64
}

func newEnvelopeReader(r io.Reader, maxReadBytes int64) *envelopeReader {
	return &envelopeReader{r: r, maxReadBytes: maxReadBytes}
}

// next reads one framed message. It returns io.EOF (unwrapped, so callers
// can use errors.Is) when the underlying reader is exhausted exactly at a
// frame boundary.
func (er *envelopeReader) next() (compressed bool, payload []byte, err error) {
	var prefix [envelopePrefixLen]byte
	if _, err := io.ReadFull(er.r, prefix[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil, errorf(CodeInternal, "envelope: truncated frame prefix: %w", err)
		}
		return false, nil, errorf(CodeUnknown, "envelope: read frame prefix: %w", err)
	}
	flag := prefix[0]
	if flag&^flagCompressed != 0 {
		return false, nil, errorf(CodeInternal, "envelope: unknown flag bits %#x", flag)
	}
	length := binary.BigEndian.Uint32(prefix[1:])
	if er.maxReadBytes > 0 && int64(length) > er.maxReadBytes {
		return false, nil, errorf(CodeResourceExhausted, "envelope: frame of %d bytes exceeds limit of %d", length, er.maxReadBytes)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(er.r, data); err != nil {
		return false, nil, errorf(CodeUnknown, "envelope: read %d byte frame body: %w", length, err)
	}
	return flag&flagCompressed != 0, data, nil
}

// writeEnvelope serializes one message with the flag+length prefix.
// Writers compress iff compression is non-nil and not identity (spec.md
// §4.1: "compress iff a non-identity algorithm is negotiated for this
// call").
func writeEnvelope(w io.Writer, data []byte, compression *Compression) error {
	flag := byte(0)
	if compression != nil && compression.ID != CompressionIdentity {
		compressedData, err := compression.Compress(data)
		if err != nil {
			return errorf(CodeInternal, "envelope: compress with %s: %w", compression.ID, err)
		}
		data = compressedData
		flag = flagCompressed
	}
	var prefix [envelopePrefixLen]byte
	prefix[0] = flag
	binary.BigEndian.PutUint32(prefix[1:], uint32(len(data)))
	if _, err := w.Write(prefix[:]); err != nil {
		return errorf(CodeUnavailable, "envelope: write frame prefix: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return errorf(CodeUnavailable, "envelope: write frame body: %w", err)
	}
	return nil
}

// decodeFrame turns one frame's raw bytes into a message, honoring the
// call's negotiated decompression. Per spec.md §4.1: "when flag = 1 and no
// compression was negotiated, fail with Internal (peer violated the
// contract)."
func decodeFrame(compressed bool, data []byte, decompress *Compression, codec interface {
	Unmarshal([]byte, any) error
}, v any) error {
	if compressed {
		if decompress == nil || decompress.ID == CompressionIdentity {
			return errorf(CodeInternal, "envelope: peer sent a compressed frame but no compression was negotiated")
		}
		decoded, err := decompress.Decompress(data)
		if err != nil {
			return errorf(CodeInternal, "envelope: decompress with %s: %w", decompress.ID, err)
		}
		data = decoded
	}
	if err := codec.Unmarshal(data, v); err != nil {
		return errorf(CodeInvalidArgument, "envelope: unmarshal message: %w", err)
	}
	return nil
}

// marshalFrame is the encode-side counterpart used by callUnary and the
// StreamForClient/StreamForHandler Send methods: it
// turns a message into the bytes writeEnvelope frames, without yet
// compressing (compression happens inside writeEnvelope so the same
// negotiated Compression decides both "should we compress" and "how").
func marshalFrame(codec interface {
	Marshal(any) ([]byte, error)
}, v any) ([]byte, error) {
	data, err := codec.Marshal(v)
	if err != nil {
		return nil, errorf(CodeInternal, "envelope: marshal message: %w", err)
	}
	return data, nil
}

var errFrameTooLarge = fmt.Errorf("grpcwire: frame exceeds configured maximum size")
