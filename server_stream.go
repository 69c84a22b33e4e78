package grpcwire

import (
	"context"
	"io"
	"net/http"
)

// StreamForHandler drives a client-streaming, server-streaming, or
// bidi-streaming call from the handler's side. Trailers are written using
// net/http's http.TrailerPrefix convention, since a gRPC handler doesn't
// know its final status until after it has already written response
// headers and, often, some messages.
//
// Grounded on other_examples/dd5257b1_dicenull-connect-go__stream.go.go's
// serverStream, generalized the same way StreamForClient generalizes
// clientStream.
type StreamForHandler[Req, Res any] struct {
	ctx         context.Context
	call        *call
	descriptor  Descriptor
	negotiation *Negotiation

	w          http.ResponseWriter
	r          io.ReadCloser
	frames     *envelopeReader
	decompress *Compression
	respCompr  *Compression

	headersSent    bool
	trailersOnlyOK bool
}

func newStreamForHandler[Req, Res any](
	ctx context.Context,
	w http.ResponseWriter,
	r io.ReadCloser,
	descriptor Descriptor,
	negotiation *Negotiation,
	reqHeaders RequestHeaders,
	trailersOnlyOK bool,
) *StreamForHandler[Req, Res] {
	var decompress *Compression
	if reqHeaders.Compression != "" && reqHeaders.Compression != CompressionIdentity {
		decompress, _ = negotiation.Supported.Lookup(reqHeaders.Compression)
	}
	return &StreamForHandler[Req, Res]{
		ctx:            ctx,
		call:           newCall(descriptor.StreamType),
		descriptor:     descriptor,
		negotiation:    negotiation,
		w:              w,
		r:              r,
		frames:         newEnvelopeReader(r, 0),
		decompress:     decompress,
		trailersOnlyOK: trailersOnlyOK,
	}
}

func (s *StreamForHandler[Req, Res]) Context() context.Context { return s.ctx }

// Receive reads and unmarshals the next request message, returning io.EOF
// once the client has closed its send direction.
func (s *StreamForHandler[Req, Res]) Receive() (*Req, error) {
	if err := s.call.canReceive(); err != nil {
		return nil, err
	}
	compressed, data, err := s.frames.next()
	if err == io.EOF {
		_ = s.call.closeDirection(directionRemote)
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	req := new(Req)
	if err := decodeFrame(compressed, data, s.decompress, s.descriptor.Codec, req); err != nil {
		return nil, err
	}
	s.call.recordReceive()
	return req, nil
}

// Send writes one response message, sending response headers first if
// they haven't been sent yet.
func (s *StreamForHandler[Req, Res]) Send(res *Res, rh ResponseHeaders) error {
	if err := s.call.canSend(); err != nil {
		return err
	}
	if err := s.ensureHeaders(rh); err != nil {
		return err
	}
	payload, err := marshalFrame(s.descriptor.Codec, res)
	if err != nil {
		return err
	}
	if err := writeEnvelope(s.w, payload, s.respCompr); err != nil {
		return err
	}
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	s.call.recordSend()
	return nil
}

// ensureHeaders writes response headers exactly once. It declares no
// trailer keys; CloseSend adds the trailers afterwards under
// http.TrailerPrefix.
func (s *StreamForHandler[Req, Res]) ensureHeaders(rh ResponseHeaders) error {
	if s.headersSent {
		return nil
	}
	if rh.HasCompression && rh.Compression != CompressionIdentity {
		c, err := s.negotiation.Supported.mustLookup(rh.Compression)
		if err != nil {
			return err
		}
		s.respCompr = c
	}
	header, err := buildResponseHeaders(rh, s.descriptor.Codec.Name())
	if err != nil {
		return err
	}
	for k, v := range header {
		s.w.Header()[k] = v
	}
	s.w.WriteHeader(http.StatusOK)
	s.headersSent = true
	return nil
}

// CloseSend finishes the response by writing trailers carrying the call's
// final Status. It always sends response headers first if Send was never
// called (an empty server stream, or an error raised before the first
// message) — unless trailersOnlyOK is set and no message has gone out yet,
// in which case it folds grpc-status (and friends) directly into that
// first and only HEADERS frame instead (spec.md §4.8's trailers-only
// shortcut).
func (s *StreamForHandler[Req, Res]) CloseSend(trailers Trailers, detailsBin string) error {
	if !s.headersSent && s.trailersOnlyOK {
		return s.writeTrailersOnly(trailers, detailsBin)
	}
	if err := s.ensureHeaders(ResponseHeaders{}); err != nil {
		return err
	}
	t := buildTrailers(trailers, detailsBin)
	for k, values := range t {
		for _, v := range values {
			s.w.Header().Add(http.TrailerPrefix+k, v)
		}
	}
	return s.call.closeDirection(directionLocal)
}

// writeTrailersOnly writes grpc-status/grpc-message/custom metadata as
// plain response headers and a single HTTP 200, with no body and no HTTP
// trailers: the one-frame shortcut for a call that ends before any
// response message is sent.
func (s *StreamForHandler[Req, Res]) writeTrailersOnly(trailers Trailers, detailsBin string) error {
	t := buildTrailers(trailers, detailsBin)
	for k, values := range t {
		s.w.Header()[k] = values
	}
	s.w.WriteHeader(http.StatusOK)
	s.headersSent = true
	return s.call.closeDirection(directionLocal)
}
