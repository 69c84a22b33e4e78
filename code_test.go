package grpcwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeMarshalTextRoundTrip(t *testing.T) {
	for c := CodeOK; c <= CodeUnauthenticated; c++ {
		text, err := c.MarshalText()
		require.NoError(t, err)

		var got Code
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, c, got)
	}
}

func TestCodeUnmarshalTextAcceptsSpecStrings(t *testing.T) {
	cases := map[string]Code{
		"OK":                CodeOK,
		"CANCELLED":         CodeCanceled,
		"INVALID_ARGUMENT":  CodeInvalidArgument,
		"DEADLINE_EXCEEDED": CodeDeadlineExceeded,
		"UNAUTHENTICATED":   CodeUnauthenticated,
	}
	for text, want := range cases {
		var got Code
		require.NoError(t, got.UnmarshalText([]byte(text)))
		assert.Equal(t, want, got)
	}
}

func TestCodeUnmarshalTextRejectsOutOfRange(t *testing.T) {
	var c Code
	assert.Error(t, c.UnmarshalText([]byte("17")))
	assert.Error(t, c.UnmarshalText([]byte("-1")))
	assert.Error(t, c.UnmarshalText([]byte("not-a-code")))
}

func TestToGrpcStatusBoundaries(t *testing.T) {
	if _, ok := toGrpcStatus(-1); ok {
		t.Fatal("expected -1 to be out of range")
	}
	if _, ok := toGrpcStatus(17); ok {
		t.Fatal("expected 17 to be out of range")
	}
	for n := 0; n <= 16; n++ {
		status, ok := toGrpcStatus(n)
		require.True(t, ok)
		assert.Equal(t, Code(n), status.Code)
	}
}

func TestCodeHTTPMapping(t *testing.T) {
	assert.Equal(t, 400, CodeInvalidArgument.http())
	assert.Equal(t, 200, CodeOK.http())
	assert.Equal(t, 200, CodeInternal.http())
}
