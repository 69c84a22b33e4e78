package grpcwire

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingInterceptor struct {
	UnimplementedInterceptor
	name string
	log  *[]string
}

func (i recordingInterceptor) WrapUnary(next UnaryFunc) UnaryFunc {
	return func(ctx context.Context, req, res any) error {
		*i.log = append(*i.log, i.name+":before")
		err := next(ctx, req, res)
		*i.log = append(*i.log, i.name+":after")
		return err
	}
}

func TestChainRunsOutermostFirst(t *testing.T) {
	var log []string
	chained := Chain(
		recordingInterceptor{name: "outer", log: &log},
		recordingInterceptor{name: "inner", log: &log},
	)

	handler := UnaryFunc(func(ctx context.Context, req, res any) error {
		log = append(log, "handler")
		return nil
	})

	err := chained.WrapUnary(handler)(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer:before", "inner:before", "handler", "inner:after", "outer:after"}, log)
}

func TestJoinInterceptorsHandlesNils(t *testing.T) {
	var log []string
	one := recordingInterceptor{name: "one", log: &log}

	assert.Equal(t, one, joinInterceptors(nil, one))
	assert.Equal(t, one, joinInterceptors(one, nil))
	assert.Nil(t, joinInterceptors(nil, nil))
}

func TestJoinInterceptorsChainsBothWhenNeitherNil(t *testing.T) {
	var log []string
	first := recordingInterceptor{name: "first", log: &log}
	second := recordingInterceptor{name: "second", log: &log}

	joined := joinInterceptors(first, second)
	handler := UnaryFunc(func(ctx context.Context, req, res any) error { return nil })
	require.NoError(t, joined.WrapUnary(handler)(context.Background(), nil, nil))
	assert.Equal(t, []string{"first:before", "second:before", "second:after", "first:after"}, log)
}

func TestUnimplementedInterceptorIsNoOp(t *testing.T) {
	var u UnimplementedInterceptor
	called := false
	next := UnaryFunc(func(ctx context.Context, req, res any) error {
		called = true
		return nil
	})
	require.NoError(t, u.WrapUnary(next)(context.Background(), nil, nil))
	assert.True(t, called)
}
