package grpcwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallLifecycleUnary(t *testing.T) {
	c := newCall(StreamTypeUnary)
	assert.Equal(t, phaseInit, c.snapshot())

	require.NoError(t, c.markHeadersSent())
	assert.Equal(t, phaseHeadersSent, c.snapshot())

	require.NoError(t, c.markOpen())
	assert.Equal(t, phaseOpen, c.snapshot())

	require.NoError(t, c.canSend())
	c.recordSend()
	require.NoError(t, c.closeDirection(directionLocal))
	assert.Equal(t, phaseHalfClosedLocal, c.snapshot())

	require.NoError(t, c.canReceive())
	c.recordReceive()
	require.NoError(t, c.closeDirection(directionRemote))
	assert.Equal(t, phaseClosed, c.snapshot())
	assert.True(t, c.isClosed())
}

func TestCallUnaryRejectsSecondLocalMessage(t *testing.T) {
	c := newCall(StreamTypeUnary)
	require.NoError(t, c.canSend())
	c.recordSend()

	err := c.canSend()
	require.Error(t, err)
	assert.Equal(t, CodeFailedPrecondition, CodeOf(err))
}

func TestCallUnaryRejectsSecondRemoteMessage(t *testing.T) {
	c := newCall(StreamTypeUnary)
	require.NoError(t, c.canReceive())
	c.recordReceive()

	err := c.canReceive()
	require.Error(t, err)
	assert.Equal(t, CodeFailedPrecondition, CodeOf(err))
}

func TestCallServerStreamingAllowsMultipleRemoteMessages(t *testing.T) {
	c := newCall(StreamTypeServer)
	for i := 0; i < 5; i++ {
		require.NoError(t, c.canReceive())
		c.recordReceive()
	}
}

func TestCallClientStreamingAllowsMultipleLocalMessages(t *testing.T) {
	c := newCall(StreamTypeClient)
	for i := 0; i < 5; i++ {
		require.NoError(t, c.canSend())
		c.recordSend()
	}
}

func TestCallSendAfterLocalCloseFails(t *testing.T) {
	c := newCall(StreamTypeBidi)
	require.NoError(t, c.closeDirection(directionLocal))

	err := c.canSend()
	require.Error(t, err)
	assert.Equal(t, CodeFailedPrecondition, CodeOf(err))
}

func TestCallReceiveAfterRemoteCloseFails(t *testing.T) {
	c := newCall(StreamTypeBidi)
	require.NoError(t, c.closeDirection(directionRemote))

	err := c.canReceive()
	require.Error(t, err)
	assert.Equal(t, CodeFailedPrecondition, CodeOf(err))
}

func TestCallCloseDirectionIsIdempotent(t *testing.T) {
	c := newCall(StreamTypeUnary)
	require.NoError(t, c.closeDirection(directionLocal))
	require.NoError(t, c.closeDirection(directionLocal))
	assert.Equal(t, phaseHalfClosedLocal, c.snapshot())
}

func TestCallAbortForcesClosed(t *testing.T) {
	c := newCall(StreamTypeBidi)
	require.NoError(t, c.markHeadersSent())
	require.NoError(t, c.markOpen())
	c.abort()
	assert.True(t, c.isClosed())
}

func TestCallMarkOpenBeforeHeadersSentFails(t *testing.T) {
	c := newCall(StreamTypeUnary)
	err := c.markOpen()
	assert.Error(t, err)
}
