package ping_test

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/coldharbor/grpcwire"
	"github.com/coldharbor/grpcwire/internal/ping"
)

// newH2CServer starts an httptest.Server that accepts cleartext HTTP/2, the
// minimum cmd/repro's gin-hosted server and cmd/greeterserver's NewH2CServer
// both provide, so CumSum (bidi streaming) can be exercised end to end.
func newH2CServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	server := httptest.NewUnstartedServer(h2c.NewHandler(handler, &http2.Server{}))
	server.Start()
	t.Cleanup(server.Close)
	return server
}

func h2cClient(addr string) *http.Client {
	return &http.Client{
		Transport: &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, _ string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		},
	}
}

func TestPingCumSumBidiStreaming(t *testing.T) {
	server := newH2CServer(t, ping.NewMux(ping.Server{}))
	client := h2cClient(server.Listener.Addr().String())

	streamClient := grpcwire.NewStreamClient[ping.CumSumRequest, ping.CumSumResponse](
		client, server.URL+ping.ProcedureCumSum, descriptor(ping.ProcedureCumSum, grpcwire.StreamTypeBidi), nil,
	)
	stream, err := streamClient.Call(context.Background())
	require.NoError(t, err)

	var got []int64
	for _, n := range []int64{1, 2, 3} {
		require.NoError(t, stream.Send(&ping.CumSumRequest{Number: n}))
		res, err := stream.Receive()
		require.NoError(t, err)
		got = append(got, res.Sum)
	}
	require.NoError(t, stream.CloseSend())

	_, err = stream.Receive()
	assert.True(t, errors.Is(err, io.EOF))
	assert.Equal(t, []int64{1, 3, 6}, got)
}
