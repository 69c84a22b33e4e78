package grpcwire

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// Doer is the transport-level interface this module expects HTTP clients
// to implement. *http.Client (configured for H2C via client_conn.go)
// implements Doer, and so does anything a test wants to fake.
//
// This is the seam that lets tests substitute a fake transport without
// standing up a real listener.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// callConfig accumulates what a CallOption can configure for one RPC
// invocation: timeout, custom metadata, and the full Negotiation-driven
// compression model.
type callConfig struct {
	timeout         time.Duration
	hasTimeout      bool
	customMetadata  []MetadataEntry
	requestCompr    CompressionID
	requestComprSet bool
	interceptor     Interceptor
}

// CallOption configures a single RPC invocation.
type CallOption interface {
	applyToCall(*callConfig)
}

type callOptionFunc func(*callConfig)

func (f callOptionFunc) applyToCall(c *callConfig) { f(c) }

// WithTimeout sets a per-call timeout distinct from (and combined with, by
// taking the earlier deadline) the context's own deadline.
func WithTimeout(d time.Duration) CallOption {
	return callOptionFunc(func(c *callConfig) {
		c.timeout, c.hasTimeout = d, true
	})
}

// WithCallMetadata attaches custom metadata entries to the outbound
// request headers.
func WithCallMetadata(entries ...MetadataEntry) CallOption {
	return callOptionFunc(func(c *callConfig) {
		c.customMetadata = append(c.customMetadata, entries...)
	})
}

// WithRequestCompression selects the algorithm used to compress outbound
// messages for this call, overriding the connection's negotiated default.
func WithRequestCompression(id CompressionID) CallOption {
	return callOptionFunc(func(c *callConfig) {
		c.requestCompr, c.requestComprSet = id, true
	})
}

// WithCallInterceptor wraps this call (or, applied client-wide, every call
// the client makes) with an Interceptor.
func WithCallInterceptor(i Interceptor) CallOption {
	return callOptionFunc(func(c *callConfig) {
		c.interceptor = joinInterceptors(c.interceptor, i)
	})
}

// WithCallOptions applies every field of o at once: the CallOption form of
// spec.md §3's CallParams, for callers that already assembled one
// CallOptions value (e.g. from a higher-level API) instead of stacking
// WithTimeout/WithCallMetadata individually.
func WithCallOptions(o CallOptions) CallOption {
	return callOptionFunc(func(c *callConfig) {
		if o.Timeout > 0 {
			c.timeout, c.hasTimeout = o.Timeout, true
		}
		c.customMetadata = append(c.customMetadata, o.CustomMetadata...)
	})
}

func mergeCallConfig(opts ...[]CallOption) *callConfig {
	cfg := &callConfig{requestCompr: CompressionIdentity}
	for _, group := range opts {
		for _, opt := range group {
			opt.applyToCall(cfg)
		}
	}
	return cfg
}

// UnaryClient calls a single RPC defined by Descriptor, marshaling Req and
// unmarshaling Res with the Descriptor's Codec, instead of being hardcoded
// to proto.Message; callers otherwise use it exactly the way generated
// code uses a typed Call method.
type UnaryClient[Req, Res any] struct {
	doer        Doer
	url         string
	descriptor  Descriptor
	negotiation *Negotiation
	opts        []CallOption
}

// NewUnaryClient creates a UnaryClient. url must be the full,
// method-specific URL (e.g. "https://api.acme.com/acme.foo.v1.Foo/Bar").
func NewUnaryClient[Req, Res any](doer Doer, url string, descriptor Descriptor, negotiation *Negotiation, opts ...CallOption) *UnaryClient[Req, Res] {
	if negotiation == nil {
		negotiation = NoCompression()
	}
	return &UnaryClient[Req, Res]{doer: doer, url: url, descriptor: descriptor, negotiation: negotiation, opts: opts}
}

// Call invokes the remote procedure once and waits for its single
// response.
func (c *UnaryClient[Req, Res]) Call(ctx context.Context, req *Req, opts ...CallOption) (*Res, Trailers, error) {
	cfg := mergeCallConfig(c.opts, opts)

	var trailers Trailers
	invoke := func(ctx context.Context, req any, res any) error {
		t, err := callUnary(ctx, c.doer, c.url, c.descriptor, c.negotiation, req, res, cfg)
		trailers = t
		return err
	}
	next := UnaryFunc(invoke)
	if cfg.interceptor != nil {
		next = cfg.interceptor.WrapUnary(next)
	}

	res := new(Res)
	err := next(ctx, req, res)
	return res, trailers, err
}

// callUnary is the codec-erased implementation shared by every
// instantiation of UnaryClient[Req, Res]: it marshals/unmarshals through
// descriptor.Codec and negotiates compression through a Negotiation
// instead of a hardcoded gzip/identity switch.
func callUnary(ctx context.Context, doer Doer, url string, descriptor Descriptor, negotiation *Negotiation, req, res any, cfg *callConfig) (Trailers, error) {
	requestCompr := cfg.requestCompr
	if !cfg.requestComprSet {
		requestCompr = CompressionIdentity
		if chosen, ok := negotiation.Chosen(); ok {
			requestCompr = chosen.ID
		}
	}
	rh := RequestHeaders{
		Compression:       requestCompr,
		AcceptCompression: negotiation.Offer,
		CustomMetadata:    cfg.customMetadata,
		MessageType:       descriptor.Codec.Name(),
	}

	if cfg.hasTimeout {
		rh.Timeout, rh.HasTimeout = cfg.timeout, true
	}
	if deadline, ok := ctx.Deadline(); ok {
		untilDeadline := time.Until(deadline)
		if untilDeadline <= 0 {
			return Trailers{}, errorf(CodeDeadlineExceeded, "no time to make RPC: timeout is %v", untilDeadline)
		}
		if !rh.HasTimeout || untilDeadline < rh.Timeout {
			rh.Timeout, rh.HasTimeout = untilDeadline, true
		}
	}

	header, err := buildRequestHeaders(rh)
	if err != nil {
		return Trailers{}, err
	}

	var compression *Compression
	if rh.Compression != "" && rh.Compression != CompressionIdentity {
		compression, err = negotiation.Supported.mustLookup(rh.Compression)
		if err != nil {
			return Trailers{}, err
		}
	}

	payload, err := marshalFrame(descriptor.Codec, req)
	if err != nil {
		return Trailers{}, err
	}
	body := &bytes.Buffer{}
	if err := writeEnvelope(body, payload, compression); err != nil {
		return Trailers{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return Trailers{}, errorf(CodeInternal, "construct *http.Request: %w", err)
	}
	httpReq.Header = header

	httpRes, err := doer.Do(httpReq)
	if err != nil {
		return Trailers{}, classifyDoerError(err)
	}
	defer httpRes.Body.Close()
	defer io.Copy(io.Discard, httpRes.Body) //nolint:errcheck

	if httpRes.StatusCode != http.StatusOK {
		code := CodeUnknown
		if mapped, ok := httpToGRPC[httpRes.StatusCode]; ok {
			code = mapped
		}
		return Trailers{}, errorf(code, "HTTP status %v", httpRes.Status)
	}

	respHeaders, err := parseResponseHeaders(httpRes.Header)
	if err != nil {
		return Trailers{}, err
	}
	// Run the connection's compression negotiation against the peer's
	// advertised grpc-accept-encoding on this, the first response to use
	// it (Choose memoizes, so later calls through the same Negotiation
	// are no-ops here and just pick up negotiation.Chosen() above).
	negotiation.Choose(respHeaders.AcceptCompression) //nolint:errcheck

	// Trailers-only: the server put grpc-status directly in the headers,
	// meaning there's no body to read (spec.md §4.6).
	if httpRes.Header.Get(headerGrpcStatus) != "" {
		trailers, err := parseTrailers(httpRes.Header)
		if err != nil {
			return Trailers{}, err
		}
		if !trailers.Status.OK() {
			return trailers, statusError(trailers)
		}
		return trailers, nil
	}

	var decompress *Compression
	if respHeaders.HasCompression && respHeaders.Compression != CompressionIdentity {
		decompress, err = negotiation.Supported.mustLookup(respHeaders.Compression)
		if err != nil {
			return Trailers{}, err
		}
	}

	reader := newEnvelopeReader(httpRes.Body, 0)
	compressed, data, unmarshalErr := reader.next()
	switch {
	case errors.Is(unmarshalErr, io.EOF):
		// spec.md §4.6: a NonStreaming call must receive exactly one
		// response message; an immediate EOF is zero, a protocol
		// violation rather than a normal empty response.
		unmarshalErr = errorf(CodeInternal, "unary call received zero response messages")
	case unmarshalErr == nil:
		if err := decodeFrame(compressed, data, decompress, descriptor.Codec, res); err != nil {
			unmarshalErr = errorf(CodeUnknown, "server returned an invalid message: %w", err)
		} else if _, _, nextErr := reader.next(); !errors.Is(nextErr, io.EOF) {
			// A second frame means the server sent more than the one
			// response message NonStreaming allows.
			unmarshalErr = errorf(CodeInternal, "unary call received more than one response message")
		}
	default:
		unmarshalErr = errorf(CodeUnknown, "server returned an invalid message: %w", unmarshalErr)
	}

	io.Copy(io.Discard, httpRes.Body) //nolint:errcheck
	trailers, err := parseTrailers(httpRes.Trailer)
	if err != nil {
		return Trailers{}, err
	}
	if !trailers.Status.OK() {
		return trailers, statusError(trailers)
	}
	if unmarshalErr != nil {
		return trailers, unmarshalErr
	}
	return trailers, nil
}

func classifyDoerError(err error) error {
	if errors.Is(err, context.Canceled) {
		return errorf(CodeCanceled, "context canceled")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errorf(CodeDeadlineExceeded, "context deadline exceeded")
	}
	// Error message comes from our own networking stack, so it's safe to expose.
	return wrap(CodeUnknown, err)
}

func statusError(t Trailers) error {
	if t.Status.OK() {
		return nil
	}
	e := NewError(t.Status.Code, errors.New(t.Status.Message))
	e.meta = t
	if len(t.Details) > 0 {
		e.SetDetails(t.Details...)
	}
	return e
}

func (r *Registry) mustLookup(id CompressionID) (*Compression, error) {
	c, ok := r.Lookup(id)
	if !ok {
		return nil, errorf(CodeUnimplemented, "unsupported compression %q", id)
	}
	return c, nil
}
