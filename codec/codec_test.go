package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/coldharbor/grpcwire/codec"
)

func TestJSONCodecRoundTrip(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
		N    int    `json:"n"`
	}
	c := codec.JSONCodec{}
	assert.Equal(t, "json", c.Name())

	data, err := c.Marshal(&payload{Name: "a", N: 1})
	require.NoError(t, err)

	var got payload
	require.NoError(t, c.Unmarshal(data, &got))
	assert.Equal(t, payload{Name: "a", N: 1}, got)
}

func TestProtoCodecRoundTrip(t *testing.T) {
	c := codec.ProtoCodec{}
	assert.Equal(t, "proto", c.Name())

	msg := wrapperspb.String("hello")
	data, err := c.Marshal(msg)
	require.NoError(t, err)

	got := &wrapperspb.StringValue{}
	require.NoError(t, c.Unmarshal(data, got))
	assert.Equal(t, "hello", got.Value)
}

func TestProtoCodecRejectsNonProtoMessage(t *testing.T) {
	c := codec.ProtoCodec{}
	_, err := c.Marshal("not a proto message")
	assert.Error(t, err)
}

func TestBinaryCodecRoundTrip(t *testing.T) {
	c := codec.BinaryCodec{}
	assert.Equal(t, "proto", c.Name())

	src := []byte{1, 2, 3}
	data, err := c.Marshal(&src)
	require.NoError(t, err)

	var dst []byte
	require.NoError(t, c.Unmarshal(data, &dst))
	assert.Equal(t, src, dst)
}

func TestBinaryCodecCustomSubtype(t *testing.T) {
	c := codec.BinaryCodec{Subtype: "octet-stream"}
	assert.Equal(t, "octet-stream", c.Name())
}

func TestBinaryCodecRejectsWrongType(t *testing.T) {
	c := codec.BinaryCodec{}
	_, err := c.Marshal("not bytes")
	assert.Error(t, err)
}
