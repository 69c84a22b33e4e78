package grpcwire

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldharbor/grpcwire/codec"
)

type echoRequest struct {
	Value string `json:"value"`
}

type echoResponse struct {
	Value string `json:"value"`
}

func TestMuxDispatchesByProcedure(t *testing.T) {
	descriptor := Descriptor{Procedure: "/test.Echo/Say", Codec: codec.JSONCodec{}}
	handler := NewUnaryHandler(descriptor, func(ctx context.Context, req *echoRequest, _ RequestHeaders) (*echoResponse, ResponseHeaders, error) {
		return &echoResponse{Value: req.Value}, ResponseHeaders{}, nil
	})

	mux := NewMux().Handle(handler)
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewUnaryClient[echoRequest, echoResponse](server.Client(), server.URL+"/test.Echo/Say", descriptor, nil)
	res, _, err := client.Call(context.Background(), &echoRequest{Value: "ping"})
	require.NoError(t, err)
	assert.Equal(t, "ping", res.Value)
}

func TestMuxReturnsTrailersOnlyUnimplementedForUnregisteredProcedure(t *testing.T) {
	mux := NewMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	resp, err := server.Client().Post(server.URL+"/no/such/procedure", "application/grpc+json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, strconv.Itoa(int(CodeUnimplemented)), resp.Header.Get(headerGrpcStatus))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestMuxRejectsNonPostWith405(t *testing.T) {
	mux := NewMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	resp, err := server.Client().Get(server.URL + "/no/such/procedure")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, http.MethodPost, resp.Header.Get("Allow"))
}

func TestMuxRejectsMalformedPathWith400(t *testing.T) {
	mux := NewMux()

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.URL.Path = ""
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
