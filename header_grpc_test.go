package grpcwire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildParseRequestHeadersRoundTrip(t *testing.T) {
	meta, err := AsciiMeta("x-request-id", "abc-123")
	require.NoError(t, err)

	rh := RequestHeaders{
		HasTimeout:        true,
		Timeout:           5 * time.Second,
		Compression:       CompressionGzip,
		AcceptCompression: []CompressionID{CompressionGzip, CompressionIdentity},
		CustomMetadata:    []MetadataEntry{meta},
		MessageType:       "proto",
	}

	h, err := buildRequestHeaders(rh)
	require.NoError(t, err)
	assert.Equal(t, "trailers", h.Get(headerTE))
	assert.Equal(t, "application/grpc+proto", h.Get(headerContentType))
	assert.Equal(t, "gzip", h.Get(headerGrpcEncoding))
	assert.Equal(t, "5S", h.Get(headerGrpcTimeout))

	parsed, err := parseRequestHeaders(h, "proto")
	require.NoError(t, err)
	assert.True(t, parsed.HasTimeout)
	assert.Equal(t, 5*time.Second, parsed.Timeout)
	assert.Equal(t, CompressionGzip, parsed.Compression)
	assert.ElementsMatch(t, []CompressionID{CompressionGzip, CompressionIdentity}, parsed.AcceptCompression)
	require.Len(t, parsed.CustomMetadata, 1)
	assert.Equal(t, "x-request-id", parsed.CustomMetadata[0].Name())
	assert.Equal(t, "abc-123", parsed.CustomMetadata[0].AsciiValue())
}

func TestParseRequestHeadersRejectsUnsupportedContentType(t *testing.T) {
	h := make(map[string][]string)
	h[headerContentType] = []string{"text/plain"}
	_, err := parseRequestHeaders(h, "proto")
	require.Error(t, err)
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))
}

func TestBuildParseResponseHeadersRoundTrip(t *testing.T) {
	rh := ResponseHeaders{
		HasCompression: true,
		Compression:    CompressionSnappy,
	}
	h, err := buildResponseHeaders(rh, "proto")
	require.NoError(t, err)
	assert.Equal(t, "snappy", h.Get(headerGrpcEncoding))

	parsed, err := parseResponseHeaders(h)
	require.NoError(t, err)
	assert.True(t, parsed.HasCompression)
	assert.Equal(t, CompressionSnappy, parsed.Compression)
}

func TestBuildParseTrailersOK(t *testing.T) {
	trailers := Trailers{Status: Status{Code: CodeOK}}
	h := buildTrailers(trailers, "")
	assert.Equal(t, "0", h.Get(headerGrpcStatus))
	assert.Empty(t, h.Get(headerGrpcMessage))

	parsed, err := parseTrailers(h)
	require.NoError(t, err)
	assert.Equal(t, CodeOK, parsed.Status.Code)
}

func TestBuildParseTrailersWithMessage(t *testing.T) {
	trailers := Trailers{Status: Status{Code: CodeNotFound, Message: "no such widget: 100%"}}
	h := buildTrailers(trailers, "")

	parsed, err := parseTrailers(h)
	require.NoError(t, err)
	assert.Equal(t, CodeNotFound, parsed.Status.Code)
	assert.Equal(t, "no such widget: 100%", parsed.Status.Message)
}

func TestParseTrailersRejectsMissingStatus(t *testing.T) {
	h := make(map[string][]string)
	_, err := parseTrailers(h)
	require.Error(t, err)
	assert.Equal(t, CodeInternal, CodeOf(err))
}

func TestIsReservedHeaderName(t *testing.T) {
	assert.True(t, isReservedHeaderName(":path"))
	assert.True(t, isReservedHeaderName("Grpc-Status"))
	assert.True(t, isReservedHeaderName("content-type"))
	assert.False(t, isReservedHeaderName("x-request-id"))
}
