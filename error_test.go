package grpcwire

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestNewErrorReplacesNilCause(t *testing.T) {
	e := NewError(CodeInternal, nil)
	assert.Equal(t, "Internal", e.Error())
	assert.Equal(t, "", e.Message())
}

func TestErrorStringIncludesMessage(t *testing.T) {
	e := NewError(CodeNotFound, errors.New("widget missing"))
	assert.Equal(t, "NotFound: widget missing", e.Error())
}

func TestErrorUnwrapAndIs(t *testing.T) {
	sentinel := errors.New("sentinel")
	e := NewError(CodeAborted, sentinel)
	assert.True(t, errors.Is(e, sentinel))
}

func TestAsErrorFindsWrappedError(t *testing.T) {
	e := NewError(CodeUnavailable, errors.New("retry"))
	wrapped := fmt.Errorf("outer: %w", e)

	found, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeUnavailable, found.Code())
}

func TestAsErrorFalseForPlainError(t *testing.T) {
	_, ok := AsError(errors.New("plain"))
	assert.False(t, ok)
}

func TestCodeOfNilIsOK(t *testing.T) {
	assert.Equal(t, CodeOK, CodeOf(nil))
}

func TestCodeOfNonGrpcErrorIsUnknown(t *testing.T) {
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("boom")))
}

func TestSetDetailsRoundTrip(t *testing.T) {
	detail, err := anypb.New(wrapperspb.Int32(7))
	require.NoError(t, err)

	e := NewError(CodeInvalidArgument, errors.New("bad field"))
	e.SetDetails(detail)
	require.Len(t, e.Details(), 1)
}

func TestWrapPreservesExistingError(t *testing.T) {
	original := NewError(CodePermissionDenied, errors.New("no access"))
	wrapped := wrap(CodeInternal, original)
	assert.Equal(t, CodePermissionDenied, wrapped.Code())
}

func TestWrapAttachesCodeToPlainError(t *testing.T) {
	wrapped := wrap(CodeUnknown, errors.New("plain"))
	assert.Equal(t, CodeUnknown, wrapped.Code())
	assert.Equal(t, "plain", wrapped.Message())
}
