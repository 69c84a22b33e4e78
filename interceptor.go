package grpcwire

import "context"

// UnaryFunc is the signature of a unary call or handler: given a request,
// produce a response or an error. Interceptors wrap UnaryFuncs to add
// cross-cutting behavior (logging, auth, retries) without the generated
// code needing to know about it.
//
// Generalized from proto.Message to any so it composes with
// UnaryClient[Req, Res] and the server-side unary handler alike.
type UnaryFunc func(ctx context.Context, req, res any) error

// StreamFunc is the signature of a streaming call or handler: it's handed
// the call's Stream and runs until the stream closes.
type StreamFunc func(ctx context.Context, stream Stream) error

// Interceptor wraps unary and streaming calls. Implementations that only
// care about one kind can embed UnimplementedInterceptor and override a
// single method.
type Interceptor interface {
	WrapUnary(UnaryFunc) UnaryFunc
	WrapStream(StreamFunc) StreamFunc
}

// UnimplementedInterceptor is a no-op Interceptor; embed it to implement
// only the methods a concrete interceptor actually needs.
type UnimplementedInterceptor struct{}

func (UnimplementedInterceptor) WrapUnary(next UnaryFunc) UnaryFunc    { return next }
func (UnimplementedInterceptor) WrapStream(next StreamFunc) StreamFunc { return next }

// chain runs interceptors outermost-first: Chain(a, b).WrapUnary(h) calls
// a's wrapper around b's wrapper around h.
type chain []Interceptor

func Chain(interceptors ...Interceptor) Interceptor {
	return chain(interceptors)
}

func (c chain) WrapUnary(next UnaryFunc) UnaryFunc {
	for i := len(c) - 1; i >= 0; i-- {
		next = c[i].WrapUnary(next)
	}
	return next
}

func (c chain) WrapStream(next StreamFunc) StreamFunc {
	for i := len(c) - 1; i >= 0; i-- {
		next = c[i].WrapStream(next)
	}
	return next
}

// joinInterceptors composes two (possibly nil) interceptors into one,
// running existing first (outermost) and added second (innermost). Used by
// WithCallInterceptor/WithHandlerInterceptor to let successive
// interceptor options accumulate rather than clobber each other.
func joinInterceptors(existing, added Interceptor) Interceptor {
	if existing == nil {
		return added
	}
	if added == nil {
		return existing
	}
	return Chain(existing, added)
}
