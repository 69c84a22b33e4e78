// Package ping holds the demo service cmd/repro exercises: one RPC of each
// StreamType, reimplemented against this module's Descriptor/Handler API
// instead of generated code.
package ping

import (
	"context"
	"errors"
	"io"

	"github.com/coldharbor/grpcwire"
	"github.com/coldharbor/grpcwire/codec"
)

type PingRequest struct {
	Number int64  `json:"number"`
	Text   string `json:"text"`
}

type PingResponse struct {
	Number int64  `json:"number"`
	Text   string `json:"text"`
}

type SumRequest struct {
	Number int64 `json:"number"`
}

type SumResponse struct {
	Sum int64 `json:"sum"`
}

type CountUpRequest struct {
	Number int64 `json:"number"`
}

type CountUpResponse struct {
	Number int64 `json:"number"`
}

type CumSumRequest struct {
	Number int64 `json:"number"`
}

type CumSumResponse struct {
	Sum int64 `json:"sum"`
}

const (
	ProcedurePing     = "/internal.ping.v1.PingService/Ping"
	ProcedureSum      = "/internal.ping.v1.PingService/Sum"
	ProcedureCountUp  = "/internal.ping.v1.PingService/CountUp"
	ProcedureCumSum   = "/internal.ping.v1.PingService/CumSum"
)

// Server implements the four RPCs directly against grpcwire's handler
// constructors, mirroring the business logic of cmd/repro/main.go's
// original ExamplePingServer.
type Server struct{}

func (Server) Ping(_ context.Context, req *PingRequest, _ grpcwire.RequestHeaders) (*PingResponse, grpcwire.ResponseHeaders, error) {
	return &PingResponse{Number: req.Number, Text: req.Text}, grpcwire.ResponseHeaders{}, nil
}

func (Server) Sum(_ context.Context, stream *grpcwire.StreamForHandler[SumRequest, SumResponse]) (*SumResponse, grpcwire.ResponseHeaders, error) {
	var sum int64
	for {
		req, err := stream.Receive()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, grpcwire.ResponseHeaders{}, err
		}
		sum += req.Number
	}
	return &SumResponse{Sum: sum}, grpcwire.ResponseHeaders{}, nil
}

func (Server) CountUp(_ context.Context, req *CountUpRequest, stream *grpcwire.StreamForHandler[CountUpRequest, CountUpResponse]) error {
	for n := int64(1); n <= req.Number; n++ {
		if err := stream.Send(&CountUpResponse{Number: n}, grpcwire.ResponseHeaders{}); err != nil {
			return err
		}
	}
	return nil
}

func (Server) CumSum(_ context.Context, stream *grpcwire.StreamForHandler[CumSumRequest, CumSumResponse]) error {
	var sum int64
	for {
		req, err := stream.Receive()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		sum += req.Number
		if err := stream.Send(&CumSumResponse{Sum: sum}, grpcwire.ResponseHeaders{}); err != nil {
			return err
		}
	}
}

// NewMux builds a Mux serving every RPC in Server against impl.
func NewMux(impl Server, opts ...grpcwire.HandlerOption) *grpcwire.Mux {
	mux := grpcwire.NewMux()
	mux.Handle(grpcwire.NewUnaryHandler(
		grpcwire.Descriptor{Procedure: ProcedurePing, Codec: codec.JSONCodec{}},
		impl.Ping,
		opts...,
	))
	mux.Handle(grpcwire.NewClientStreamHandler(
		grpcwire.Descriptor{Procedure: ProcedureSum, Codec: codec.JSONCodec{}},
		impl.Sum,
		opts...,
	))
	mux.Handle(grpcwire.NewServerStreamHandler(
		grpcwire.Descriptor{Procedure: ProcedureCountUp, Codec: codec.JSONCodec{}},
		impl.CountUp,
		opts...,
	))
	mux.Handle(grpcwire.NewBidiStreamHandler(
		grpcwire.Descriptor{Procedure: ProcedureCumSum, Codec: codec.JSONCodec{}},
		impl.CumSum,
		opts...,
	))
	return mux
}
