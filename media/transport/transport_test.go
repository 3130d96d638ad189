package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransport_PlainIsAlwaysReady(t *testing.T) {
	tr := New("0", KindPlain, DefaultConfig())
	assert.True(t, tr.Ready())
}

func TestTransport_DTLSNotReadyUntilCryptoSet(t *testing.T) {
	tr := New("0", KindDTLS, DefaultConfig())
	assert.False(t, tr.Ready())

	require.NoError(t, tr.State.Start())
	require.NoError(t, tr.SetCrypto(&CryptoContexts{}))
	assert.True(t, tr.Ready())
}

func TestTransport_BufferAndDrainPendingDatagrams(t *testing.T) {
	tr := New("0", KindDTLS, Config{PendingCap: 1})
	assert.True(t, tr.BufferDatagram([]byte{1, 2, 3}))
	assert.False(t, tr.BufferDatagram([]byte{4, 5, 6}))
	assert.Equal(t, uint64(1), tr.DroppedPending())

	drained := tr.DrainPending()
	require.Len(t, drained, 1)
	assert.Equal(t, []byte{1, 2, 3}, drained[0])
	assert.Equal(t, 0, tr.PendingLen())
}
