package ping_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldharbor/grpcwire"
	"github.com/coldharbor/grpcwire/codec"
	"github.com/coldharbor/grpcwire/internal/ping"
)

func descriptor(procedure string, streamType grpcwire.StreamType) grpcwire.Descriptor {
	return grpcwire.Descriptor{Procedure: procedure, StreamType: streamType, Codec: codec.JSONCodec{}}
}

func TestPingUnary(t *testing.T) {
	server := httptest.NewServer(ping.NewMux(ping.Server{}))
	defer server.Close()

	client := grpcwire.NewUnaryClient[ping.PingRequest, ping.PingResponse](
		server.Client(), server.URL+ping.ProcedurePing, descriptor(ping.ProcedurePing, grpcwire.StreamTypeUnary), nil,
	)
	res, _, err := client.Call(context.Background(), &ping.PingRequest{Number: 42, Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), res.Number)
	assert.Equal(t, "hi", res.Text)
}

func TestPingSumClientStreaming(t *testing.T) {
	server := httptest.NewServer(ping.NewMux(ping.Server{}))
	defer server.Close()

	client := grpcwire.NewStreamClient[ping.SumRequest, ping.SumResponse](
		server.Client(), server.URL+ping.ProcedureSum, descriptor(ping.ProcedureSum, grpcwire.StreamTypeClient), nil,
	)
	stream, err := client.Call(context.Background())
	require.NoError(t, err)

	for _, n := range []int64{1, 2, 3, 4} {
		require.NoError(t, stream.Send(&ping.SumRequest{Number: n}))
	}
	require.NoError(t, stream.CloseSend())

	res, err := stream.Receive()
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Sum)

	_, err = stream.Receive()
	assert.True(t, errors.Is(err, io.EOF))
	assert.True(t, stream.Trailers().Status.OK())
}

func TestPingCountUpServerStreaming(t *testing.T) {
	server := httptest.NewServer(ping.NewMux(ping.Server{}))
	defer server.Close()

	client := grpcwire.NewStreamClient[ping.CountUpRequest, ping.CountUpResponse](
		server.Client(), server.URL+ping.ProcedureCountUp, descriptor(ping.ProcedureCountUp, grpcwire.StreamTypeServer), nil,
	)
	stream, err := client.Call(context.Background())
	require.NoError(t, err)
	require.NoError(t, stream.Send(&ping.CountUpRequest{Number: 3}))
	require.NoError(t, stream.CloseSend())

	var got []int64
	for {
		res, err := stream.Receive()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, res.Number)
	}
	assert.Equal(t, []int64{1, 2, 3}, got)
}
