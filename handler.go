package grpcwire

import (
	"context"
	"errors"
	"net/http"
)

// handlerConfig accumulates what a HandlerOption can configure, grounded
// on other_examples/908890c4_cPu1-connect-go__handler.go.go's handlerConfig.
type handlerConfig struct {
	interceptor    Interceptor
	negotiation    *Negotiation
	logger         ConnLogger
	trailersOnlyOK bool
}

func newHandlerConfig(opts []HandlerOption) *handlerConfig {
	cfg := &handlerConfig{negotiation: NoCompression(), logger: nopLogger{}}
	for _, opt := range opts {
		opt.applyToHandler(cfg)
	}
	return cfg
}

// HandlerOption configures a Handler at construction time.
type HandlerOption interface {
	applyToHandler(*handlerConfig)
}

type handlerOptionFunc func(*handlerConfig)

func (f handlerOptionFunc) applyToHandler(c *handlerConfig) { f(c) }

// WithHandlerInterceptor wraps every call this Handler serves.
func WithHandlerInterceptor(i Interceptor) HandlerOption {
	return handlerOptionFunc(func(c *handlerConfig) {
		c.interceptor = joinInterceptors(c.interceptor, i)
	})
}

// WithHandlerCompression sets the compression algorithms this Handler will
// accept and may use for responses.
func WithHandlerCompression(negotiation *Negotiation) HandlerOption {
	return handlerOptionFunc(func(c *handlerConfig) {
		c.negotiation = negotiation
	})
}

// WithHandlerLogger attaches a ConnLogger for connection-level failures
// ServeHTTP can't otherwise report (the caller has no error channel once
// the HTTP response is already underway).
func WithHandlerLogger(logger ConnLogger) HandlerOption {
	return handlerOptionFunc(func(c *handlerConfig) {
		if logger != nil {
			c.logger = logger
		}
	})
}

// WithTrailersOnlyErrors enables spec.md's trailers-only shortcut for any
// call that ends before a response message is sent, whether with an error
// or with an OK status and no messages: instead of writing a 200 status,
// an empty body, and an HTTP trailer, the handler folds
// grpc-status/grpc-message directly into the initial (and only) HEADERS
// frame. Off by default, since some gRPC-over-HTTP2 clients (notably
// grpc-web proxies) special-case trailers-only responses and a handler
// author may prefer uniform behavior while debugging.
func WithTrailersOnlyErrors() HandlerOption {
	return handlerOptionFunc(func(c *handlerConfig) {
		c.trailersOnlyOK = true
	})
}

// Handler is the server-side implementation of a single RPC. It's
// constructed by NewUnaryHandler or one of the streaming constructors and
// registered on a Mux by Descriptor.Procedure.
type Handler struct {
	descriptor Descriptor
	cfg        *handlerConfig
	serve      func(ctx context.Context, w http.ResponseWriter, r *http.Request, reqHeaders RequestHeaders) error
}

// Descriptor reports the RPC this Handler serves.
func (h *Handler) Descriptor() Descriptor { return h.descriptor }

// NewUnaryHandler constructs a Handler for a request-response procedure.
func NewUnaryHandler[Req, Res any](descriptor Descriptor, fn func(context.Context, *Req, RequestHeaders) (*Res, ResponseHeaders, error), opts ...HandlerOption) *Handler {
	descriptor.StreamType = StreamTypeUnary
	cfg := newHandlerConfig(opts)

	next := UnaryFunc(func(ctx context.Context, reqAny, resAny any) error {
		req := reqAny.(*Req)
		res, rh, err := fn(ctx, req, requestHeadersFromContext(ctx))
		if err != nil {
			return err
		}
		*resAny.(*Res) = *res
		responseHeadersToContext(ctx, rh)
		return nil
	})
	if cfg.interceptor != nil {
		next = cfg.interceptor.WrapUnary(next)
	}

	return &Handler{
		descriptor: descriptor,
		cfg:        cfg,
		serve: func(ctx context.Context, w http.ResponseWriter, r *http.Request, reqHeaders RequestHeaders) error {
			stream := newStreamForHandler[Req, Res](ctx, w, r.Body, descriptor, cfg.negotiation, reqHeaders, cfg.trailersOnlyOK)
			req, err := stream.Receive()
			if err != nil {
				return finishWithError(stream, cfg, err)
			}
			ctx = contextWithRequestHeaders(ctx, reqHeaders)
			ctx = contextWithResponseHeaders(ctx)
			res := new(Res)
			if err := next(ctx, req, res); err != nil {
				return finishWithError(stream, cfg, err)
			}
			rh := responseHeadersFromContext(ctx)
			if err := stream.Send(res, rh); err != nil {
				return finishWithError(stream, cfg, err)
			}
			return stream.CloseSend(Trailers{Status: Status{Code: CodeOK}}, "")
		},
	}
}

// NewClientStreamHandler constructs a Handler for a client-streaming
// procedure: many requests, one response.
func NewClientStreamHandler[Req, Res any](descriptor Descriptor, fn func(context.Context, *StreamForHandler[Req, Res]) (*Res, ResponseHeaders, error), opts ...HandlerOption) *Handler {
	descriptor.StreamType = StreamTypeClient
	cfg := newHandlerConfig(opts)
	return &Handler{
		descriptor: descriptor,
		cfg:        cfg,
		serve: func(ctx context.Context, w http.ResponseWriter, r *http.Request, reqHeaders RequestHeaders) error {
			stream := newStreamForHandler[Req, Res](ctx, w, r.Body, descriptor, cfg.negotiation, reqHeaders, cfg.trailersOnlyOK)
			res, rh, err := fn(ctx, stream)
			if err != nil {
				return finishWithError(stream, cfg, err)
			}
			if err := stream.Send(res, rh); err != nil {
				return finishWithError(stream, cfg, err)
			}
			return stream.CloseSend(Trailers{Status: Status{Code: CodeOK}}, "")
		},
	}
}

// NewServerStreamHandler constructs a Handler for a server-streaming
// procedure: one request, many responses.
func NewServerStreamHandler[Req, Res any](descriptor Descriptor, fn func(context.Context, *Req, *StreamForHandler[Req, Res]) error, opts ...HandlerOption) *Handler {
	descriptor.StreamType = StreamTypeServer
	cfg := newHandlerConfig(opts)
	return &Handler{
		descriptor: descriptor,
		cfg:        cfg,
		serve: func(ctx context.Context, w http.ResponseWriter, r *http.Request, reqHeaders RequestHeaders) error {
			stream := newStreamForHandler[Req, Res](ctx, w, r.Body, descriptor, cfg.negotiation, reqHeaders, cfg.trailersOnlyOK)
			req, err := stream.Receive()
			if err != nil {
				return finishWithError(stream, cfg, err)
			}
			if err := fn(ctx, req, stream); err != nil {
				return finishWithError(stream, cfg, err)
			}
			return stream.CloseSend(Trailers{Status: Status{Code: CodeOK}}, "")
		},
	}
}

// NewBidiStreamHandler constructs a Handler for a fully bidirectional
// streaming procedure.
func NewBidiStreamHandler[Req, Res any](descriptor Descriptor, fn func(context.Context, *StreamForHandler[Req, Res]) error, opts ...HandlerOption) *Handler {
	descriptor.StreamType = StreamTypeBidi
	cfg := newHandlerConfig(opts)
	return &Handler{
		descriptor: descriptor,
		cfg:        cfg,
		serve: func(ctx context.Context, w http.ResponseWriter, r *http.Request, reqHeaders RequestHeaders) error {
			stream := newStreamForHandler[Req, Res](ctx, w, r.Body, descriptor, cfg.negotiation, reqHeaders, cfg.trailersOnlyOK)
			if err := fn(ctx, stream); err != nil {
				return finishWithError(stream, cfg, err)
			}
			return stream.CloseSend(Trailers{Status: Status{Code: CodeOK}}, "")
		},
	}
}

// finishWithError converts a handler error into terminal trailers (or,
// when enabled, a trailers-only response) and logs connection-level
// failures the caller has no other way to observe.
func finishWithError[Req, Res any](stream *StreamForHandler[Req, Res], cfg *handlerConfig, err error) error {
	e, _ := AsError(err)
	if e == nil {
		e = wrap(CodeUnknown, err)
	}
	var detailsBin string
	if len(e.Details()) > 0 {
		bin, encErr := encodeStatusDetails(e)
		if encErr == nil {
			detailsBin = bin
		} else {
			cfg.logger.Errorf(stream.ctx, "grpcwire: encode status details: %v", encErr)
		}
	}
	trailers := Trailers{Status: Status{Code: e.Code(), Message: e.Message()}, CustomMetadata: e.Meta().CustomMetadata}
	if closeErr := stream.CloseSend(trailers, detailsBin); closeErr != nil {
		cfg.logger.Errorf(stream.ctx, "grpcwire: write trailers: %v", closeErr)
		return closeErr
	}
	return nil
}

// ServeHTTP implements http.Handler, so a single Handler can also be
// mounted directly without a Mux.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.descriptor.StreamType == StreamTypeBidi && r.ProtoMajor < 2 {
		w.WriteHeader(http.StatusHTTPVersionNotSupported)
		return
	}
	if err := validatePseudoHeaders(pseudoHeadersFromRequest(r)); err != nil {
		var outOfSpec *OutOfSpecError
		if errors.As(err, &outOfSpec) {
			writeOutOfSpecError(w, outOfSpec)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	reqHeaders, err := parseRequestHeaders(r.Header, h.descriptor.Codec.Name())
	if err != nil {
		msg := err.Error()
		if e, ok := AsError(err); ok {
			msg = e.Message()
		}
		trailers := Trailers{Status: Status{Code: CodeInvalidArgument, Message: msg}}
		for k, values := range buildTrailers(trailers, "") {
			w.Header()[k] = values
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx := r.Context()
	var cancel context.CancelFunc
	if reqHeaders.HasTimeout {
		ctx, cancel = context.WithTimeout(ctx, reqHeaders.Timeout)
		defer cancel()
	}

	if err := h.serve(ctx, w, r, reqHeaders); err != nil {
		h.cfg.logger.Errorf(ctx, "grpcwire: serve %s: %v", h.descriptor.Procedure, err)
	}
}

// requestHeadersFromContext/responseHeadersToContext/etc. let an
// interceptor-wrapped UnaryFunc (which only knows about req/res values)
// still exchange RequestHeaders/ResponseHeaders with the outer serve
// closure.
type ctxKeyRequestHeaders struct{}
type ctxKeyResponseHeaders struct{}

func contextWithRequestHeaders(ctx context.Context, rh RequestHeaders) context.Context {
	return context.WithValue(ctx, ctxKeyRequestHeaders{}, rh)
}

func requestHeadersFromContext(ctx context.Context) RequestHeaders {
	rh, _ := ctx.Value(ctxKeyRequestHeaders{}).(RequestHeaders)
	return rh
}

func contextWithResponseHeaders(ctx context.Context) context.Context {
	box := new(ResponseHeaders)
	return context.WithValue(ctx, ctxKeyResponseHeaders{}, box)
}

func responseHeadersToContext(ctx context.Context, rh ResponseHeaders) {
	if box, ok := ctx.Value(ctxKeyResponseHeaders{}).(*ResponseHeaders); ok {
		*box = rh
	}
}

func responseHeadersFromContext(ctx context.Context) ResponseHeaders {
	if box, ok := ctx.Value(ctxKeyResponseHeaders{}).(*ResponseHeaders); ok {
		return *box
	}
	return ResponseHeaders{}
}
