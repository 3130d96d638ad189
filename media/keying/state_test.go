package keying

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportConnectionStateMachine_HandshakeHappyPath(t *testing.T) {
	m := NewTransportConnectionStateMachine()
	assert.Equal(t, StateNew, m.State())

	require.NoError(t, m.Start())
	assert.Equal(t, StateConnecting, m.State())

	require.NoError(t, m.HandshakeComplete())
	assert.Equal(t, StateConnected, m.State())
}

func TestTransportConnectionStateMachine_FailFromConnecting(t *testing.T) {
	m := NewTransportConnectionStateMachine()
	require.NoError(t, m.Start())
	require.NoError(t, m.Fail())
	assert.Equal(t, StateFailed, m.State())

	// Failed is terminal: no further handshake completion applies.
	assert.Error(t, m.HandshakeComplete())
}

func TestTransportConnectionStateMachine_LostAndResume(t *testing.T) {
	m := NewTransportConnectionStateMachine()
	require.NoError(t, m.Start())
	require.NoError(t, m.HandshakeComplete())

	require.NoError(t, m.Lost())
	assert.Equal(t, StateDisconnected, m.State())

	require.NoError(t, m.Resume())
	assert.Equal(t, StateConnected, m.State())
}

func TestTransportConnectionStateMachine_CannotSkipConnecting(t *testing.T) {
	m := NewTransportConnectionStateMachine()
	assert.Error(t, m.HandshakeComplete())
	assert.Equal(t, StateNew, m.State())
}
