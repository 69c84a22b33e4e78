// Package greeter is the minimal unary demo cmd/greeterserver and
// cmd/greeterclient exercise end to end over a plain net/http H2C server
// and ClientConn, as opposed to internal/ping's gin-hosted, all-four-
// StreamTypes demo.
package greeter

import (
	"context"
	"time"

	"github.com/coldharbor/grpcwire"
	"github.com/coldharbor/grpcwire/codec"
)

type HelloRequest struct {
	Name string `json:"name"`
}

type HelloResponse struct {
	Greeting string `json:"greeting"`
}

const (
	ProcedureSayHello  = "/internal.greeter.v1.GreeterService/SayHello"
	ProcedureSlowHello = "/internal.greeter.v1.GreeterService/SlowHello"
)

func Descriptor(procedure string) grpcwire.Descriptor {
	return grpcwire.Descriptor{Procedure: procedure, Codec: codec.JSONCodec{}}
}

// Server implements the Greeter service's business logic.
type Server struct {
	// SlowHelloDelay is how long SlowHello sleeps before responding; tests
	// set this short and use an even shorter client timeout to exercise
	// CodeDeadlineExceeded.
	SlowHelloDelay time.Duration
}

func (s Server) SayHello(_ context.Context, req *HelloRequest, _ grpcwire.RequestHeaders) (*HelloResponse, grpcwire.ResponseHeaders, error) {
	if req.Name == "" {
		return nil, grpcwire.ResponseHeaders{}, grpcwire.NewError(grpcwire.CodeInvalidArgument, errNameRequired{})
	}
	return &HelloResponse{Greeting: "Hello, " + req.Name + "!"}, grpcwire.ResponseHeaders{}, nil
}

func (s Server) SlowHello(ctx context.Context, req *HelloRequest, _ grpcwire.RequestHeaders) (*HelloResponse, grpcwire.ResponseHeaders, error) {
	select {
	case <-time.After(s.SlowHelloDelay):
		return &HelloResponse{Greeting: "Hello, " + req.Name + "!"}, grpcwire.ResponseHeaders{}, nil
	case <-ctx.Done():
		return nil, grpcwire.ResponseHeaders{}, grpcwire.NewError(grpcwire.CodeDeadlineExceeded, ctx.Err())
	}
}

type errNameRequired struct{}

func (errNameRequired) Error() string { return "name is required" }

// NewMux builds a Mux serving both Greeter RPCs against impl.
func NewMux(impl Server, opts ...grpcwire.HandlerOption) *grpcwire.Mux {
	mux := grpcwire.NewMux()
	mux.Handle(grpcwire.NewUnaryHandler(Descriptor(ProcedureSayHello), impl.SayHello, opts...))
	mux.Handle(grpcwire.NewUnaryHandler(Descriptor(ProcedureSlowHello), impl.SlowHello, opts...))
	return mux
}
