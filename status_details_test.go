package grpcwire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestEncodeDecodeStatusDetailsRoundTrip(t *testing.T) {
	detail, err := anypb.New(wrapperspb.String("retry after 5s"))
	require.NoError(t, err)

	e := NewError(CodeUnavailable, errors.New("backend overloaded"))
	e.SetDetails(detail)

	encoded, err := encodeStatusDetails(e)
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	decoded, err := decodeStatusDetails(encoded)
	require.NoError(t, err)
	assert.Equal(t, int32(CodeUnavailable), decoded.Code)
	assert.Equal(t, "backend overloaded", decoded.Message)
	require.Len(t, decoded.Details, 1)
}

func TestDecodeStatusDetailsRejectsInvalidBase64(t *testing.T) {
	_, err := decodeStatusDetails("not valid base64!!!")
	assert.Error(t, err)
}
