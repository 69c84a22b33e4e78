package statuspb_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/coldharbor/grpcwire/internal/statuspb"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	detail, err := anypb.New(wrapperspb.String("extra context"))
	require.NoError(t, err)

	want := &statuspb.Status{
		Code:    5,
		Message: "not found",
		Details: []*anypb.Any{detail},
	}

	data, err := statuspb.Marshal(want)
	require.NoError(t, err)

	got, err := statuspb.Unmarshal(data)
	require.NoError(t, err)

	if diff := cmp.Diff(want.Code, got.Code); diff != "" {
		t.Errorf("Code mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.Message, got.Message); diff != "" {
		t.Errorf("Message mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, got.Details, 1)
	if !proto.Equal(want.Details[0], got.Details[0]) {
		t.Errorf("Details[0] mismatch: want %v, got %v", want.Details[0], got.Details[0])
	}
}

func TestMarshalUnmarshalEmptyStatus(t *testing.T) {
	data, err := statuspb.Marshal(&statuspb.Status{})
	require.NoError(t, err)
	require.Empty(t, data)

	got, err := statuspb.Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, int32(0), got.Code)
	require.Equal(t, "", got.Message)
	require.Nil(t, got.Details)
}

func TestUnmarshalRejectsTruncatedInput(t *testing.T) {
	_, err := statuspb.Unmarshal([]byte{0x08}) // tag for field 1, varint type, no value
	require.Error(t, err)
}
