package grpcwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOK(t *testing.T) {
	assert.True(t, Status{Code: CodeOK}.OK())
	assert.False(t, Status{Code: CodeInternal}.OK())
}

func TestFromGrpcStatusRoundTripsWithToGrpcStatus(t *testing.T) {
	for code := CodeOK; code <= CodeUnauthenticated; code++ {
		want := Status{Code: code, Message: "detail"}
		n := fromGrpcStatus(want)

		got, ok := toGrpcStatus(n)
		assert.True(t, ok)
		assert.Equal(t, code, got.Code)
	}
}
