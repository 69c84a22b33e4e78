package grpcwire

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// StreamForClient drives a client-streaming, server-streaming, or
// bidi-streaming call from the caller's side, across every StreamType,
// using Descriptor.Codec for marshaling and the shared call state machine
// for finality bookkeeping.
//
// Grounded on other_examples/dd5257b1_dicenull-connect-go__stream.go.go's
// clientStream: same io.Pipe + background-goroutine shape, since an
// *http.Request's body must be ready before http.Client.Do returns, but we
// want to let the caller send messages only after the call starts.
type StreamForClient[Req, Res any] struct {
	ctx         context.Context
	call        *call
	descriptor  Descriptor
	negotiation *Negotiation
	reqComprID  CompressionID
	reqCompr    *Compression

	writer *io.PipeWriter
	reader *io.PipeReader

	responseReady chan struct{}
	response      *http.Response
	responseErr   error
	decompress    *Compression
	frames        *envelopeReader

	trailers     Trailers
	trailersOnly bool
}

func newStreamForClient[Req, Res any](
	ctx context.Context,
	doer Doer,
	url string,
	descriptor Descriptor,
	negotiation *Negotiation,
	cfg *callConfig,
) (*StreamForClient[Req, Res], error) {
	if negotiation == nil {
		negotiation = NoCompression()
	}
	requestComprID := cfg.requestCompr
	if !cfg.requestComprSet {
		requestComprID = CompressionIdentity
		if chosen, ok := negotiation.Chosen(); ok {
			requestComprID = chosen.ID
		}
	}
	var reqCompr *Compression
	if requestComprID != "" && requestComprID != CompressionIdentity {
		c, err := negotiation.Supported.mustLookup(requestComprID)
		if err != nil {
			return nil, err
		}
		reqCompr = c
	}

	pr, pw := io.Pipe()
	s := &StreamForClient[Req, Res]{
		ctx:           ctx,
		call:          newCall(descriptor.StreamType),
		descriptor:    descriptor,
		negotiation:   negotiation,
		reqComprID:    requestComprID,
		reqCompr:      reqCompr,
		writer:        pw,
		reader:        pr,
		responseReady: make(chan struct{}),
	}
	prepared := make(chan struct{})
	go s.makeRequest(doer, url, cfg, prepared)
	<-prepared
	return s, nil
}

func (s *StreamForClient[Req, Res]) Context() context.Context { return s.ctx }

// Send marshals and frames one request message onto the wire, only before
// CloseSend. StreamTypes whose client side doesn't stream (unary and
// server-streaming) allow exactly one Send.
func (s *StreamForClient[Req, Res]) Send(req *Req) error {
	if err := s.call.canSend(); err != nil {
		return err
	}
	payload, err := marshalFrame(s.descriptor.Codec, req)
	if err != nil {
		return err
	}
	if err := writeEnvelope(s.writer, payload, s.reqCompr); err != nil {
		if errors.Is(err, io.ErrClosedPipe) {
			<-s.responseReady
			if s.responseErr != nil {
				return s.responseErr
			}
		}
		return err
	}
	s.call.recordSend()
	return nil
}

// CloseSend signals that no further requests will be sent.
func (s *StreamForClient[Req, Res]) CloseSend() error {
	if err := s.writer.Close(); err != nil {
		return wrap(CodeUnknown, err)
	}
	return s.call.closeDirection(directionLocal)
}

// Receive reads and unmarshals the next response message. It returns
// io.EOF once the server's final element (or an empty stream) has been
// observed; callers should then inspect Trailers for the call's outcome.
func (s *StreamForClient[Req, Res]) Receive() (*Res, error) {
	<-s.responseReady
	if s.responseErr != nil {
		return nil, s.responseErr
	}

	compressed, data, err := s.frames.next()
	if errors.Is(err, io.EOF) {
		if closeErr := s.finishReceive(); closeErr != nil {
			return nil, closeErr
		}
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	if err := s.call.canReceive(); err != nil {
		return nil, err
	}

	res := new(Res)
	if err := decodeFrame(compressed, data, s.decompress, s.descriptor.Codec, res); err != nil {
		return nil, err
	}
	s.call.recordReceive()
	return res, nil
}

// CloseReceive discards any unread response body and releases the
// connection back to the transport's pool.
func (s *StreamForClient[Req, Res]) CloseReceive() error {
	<-s.responseReady
	if s.response == nil {
		return nil
	}
	io.Copy(io.Discard, s.response.Body) //nolint:errcheck
	if err := s.response.Body.Close(); err != nil {
		return wrap(CodeUnknown, err)
	}
	return s.call.closeDirection(directionRemote)
}

// Trailers returns the call's terminal trailers. It's only meaningful
// after Receive has returned io.EOF.
func (s *StreamForClient[Req, Res]) Trailers() Trailers { return s.trailers }

func (s *StreamForClient[Req, Res]) finishReceive() error {
	io.Copy(io.Discard, s.response.Body) //nolint:errcheck
	// A trailers-only response already had its Trailers captured in
	// makeRequest, folded into the response headers rather than an HTTP
	// trailer; s.response.Trailer is empty in that case, so re-parsing it
	// here would wrongly report a missing grpc-status.
	trailers := s.trailers
	if !s.trailersOnly {
		var err error
		trailers, err = parseTrailers(s.response.Trailer)
		if err != nil {
			return err
		}
		s.trailers = trailers
	}
	if err := s.call.closeDirection(directionRemote); err != nil {
		return err
	}
	if !trailers.Status.OK() {
		return statusError(trailers)
	}
	return nil
}

func (s *StreamForClient[Req, Res]) makeRequest(doer Doer, url string, cfg *callConfig, prepared chan struct{}) {
	defer close(s.responseReady)

	rh := RequestHeaders{
		Compression:       s.reqComprID,
		AcceptCompression: s.negotiation.Offer,
		CustomMetadata:    cfg.customMetadata,
		MessageType:       s.descriptor.Codec.Name(),
	}
	if cfg.hasTimeout {
		rh.Timeout, rh.HasTimeout = cfg.timeout, true
	}
	if deadline, ok := s.ctx.Deadline(); ok {
		untilDeadline := time.Until(deadline)
		if untilDeadline <= 0 {
			s.setResponseError(errorf(CodeDeadlineExceeded, "no time to make RPC: timeout is %v", untilDeadline))
			close(prepared)
			return
		}
		if !rh.HasTimeout || untilDeadline < rh.Timeout {
			rh.Timeout, rh.HasTimeout = untilDeadline, true
		}
	}

	header, err := buildRequestHeaders(rh)
	if err != nil {
		s.setResponseError(err)
		close(prepared)
		return
	}

	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, url, s.reader)
	if err != nil {
		s.setResponseError(errorf(CodeInternal, "construct *http.Request: %w", err))
		close(prepared)
		return
	}
	req.Header = header

	if err := s.ctx.Err(); err != nil {
		s.setResponseError(classifyDoerError(err))
		close(prepared)
		return
	}
	close(prepared)
	res, err := doer.Do(req)
	if err != nil {
		s.setResponseError(classifyDoerError(err))
		return
	}
	s.call.markHeadersSent()
	s.call.markOpen()

	if res.StatusCode != http.StatusOK {
		code := CodeUnknown
		if mapped, ok := httpToGRPC[res.StatusCode]; ok {
			code = mapped
		}
		s.setResponseError(errorf(code, "HTTP status %v", res.Status))
		return
	}

	respHeaders, err := parseResponseHeaders(res.Header)
	if err != nil {
		s.setResponseError(err)
		return
	}
	// Settle the connection's negotiated compression against this, the
	// first response through it to carry grpc-accept-encoding; memoized
	// by Choose, so later calls on the same Negotiation are no-ops here.
	s.negotiation.Choose(respHeaders.AcceptCompression) //nolint:errcheck
	if respHeaders.HasCompression && respHeaders.Compression != CompressionIdentity {
		decompress, err := s.negotiation.Supported.mustLookup(respHeaders.Compression)
		if err != nil {
			s.setResponseError(err)
			return
		}
		s.decompress = decompress
	}

	if status := res.Header.Get(headerGrpcStatus); status != "" {
		trailers, err := parseTrailers(res.Header)
		if err != nil {
			s.setResponseError(err)
			return
		}
		s.trailers = trailers
		s.trailersOnly = true
		s.response = res
		s.frames = newEnvelopeReader(bytes.NewReader(nil), 0)
		if !trailers.Status.OK() {
			s.setResponseError(statusError(trailers))
		}
		return
	}

	s.response = res
	s.frames = newEnvelopeReader(res.Body, 0)
}

func (s *StreamForClient[Req, Res]) setResponseError(err error) {
	s.responseErr = err
	s.reader.CloseWithError(err)
}

// StreamClient opens client-streaming, server-streaming, or bidi-streaming
// calls defined by Descriptor. It's UnaryClient's streaming counterpart:
// where UnaryClient.Call drives one request/response round trip itself,
// StreamClient.Call only opens the call and hands back a StreamForClient
// for the caller to drive with Send/Receive/CloseSend.
type StreamClient[Req, Res any] struct {
	doer        Doer
	url         string
	descriptor  Descriptor
	negotiation *Negotiation
	opts        []CallOption
}

// NewStreamClient creates a StreamClient. url must be the full,
// method-specific URL, matching NewUnaryClient's contract.
func NewStreamClient[Req, Res any](doer Doer, url string, descriptor Descriptor, negotiation *Negotiation, opts ...CallOption) *StreamClient[Req, Res] {
	if negotiation == nil {
		negotiation = NoCompression()
	}
	return &StreamClient[Req, Res]{doer: doer, url: url, descriptor: descriptor, negotiation: negotiation, opts: opts}
}

// Call opens the call and returns a StreamForClient once the request has
// started (though not necessarily once the server has responded).
func (c *StreamClient[Req, Res]) Call(ctx context.Context, opts ...CallOption) (*StreamForClient[Req, Res], error) {
	cfg := mergeCallConfig(c.opts, opts)
	return newStreamForClient[Req, Res](ctx, c.doer, c.url, c.descriptor, c.negotiation, cfg)
}
