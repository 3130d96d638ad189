package udpadapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenUDP_SendAndStats(t *testing.T) {
	a, err := ListenUDP("127.0.0.1:0")
	require.NoError(t, err)
	defer a.Close()

	b, err := ListenUDP("127.0.0.1:0")
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Send(b.LocalAddr().String(), []byte("hello")))

	buf := make([]byte, 64)
	n, _, err := b.conn.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	_, sent, errs := a.Stats()
	assert.Equal(t, uint64(1), sent)
	assert.Equal(t, uint64(0), errs)
}

func TestSocket_SendAfterCloseFails(t *testing.T) {
	a, err := ListenUDP("127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	err = a.Send("127.0.0.1:1", []byte("x"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSocket_SendRejectsOversizedPayload(t *testing.T) {
	a, err := ListenUDP("127.0.0.1:0")
	require.NoError(t, err)
	defer a.Close()

	big := make([]byte, maxUDPPayload+1)
	err = a.Send("127.0.0.1:1", big)
	assert.ErrorIs(t, err, ErrMessageTooBig)
}

func TestNewMediaPair_SeparateSocketsWhenNotMuxed(t *testing.T) {
	pair, err := NewMediaPair("tid-1", "127.0.0.1:0", false)
	require.NoError(t, err)
	defer pair.Close()

	require.NotNil(t, pair.RTCP)
	assert.NotEqual(t, pair.RTP.LocalAddr().String(), pair.RTCP.LocalAddr().String())
}

func TestNewMediaPair_SingleSocketWhenMuxed(t *testing.T) {
	pair, err := NewMediaPair("tid-1", "127.0.0.1:0", true)
	require.NoError(t, err)
	defer pair.Close()

	assert.Nil(t, pair.RTCP)
}

func TestMediaPair_DowngradeToMuxClosesRtcpSocket(t *testing.T) {
	pair, err := NewMediaPair("tid-1", "127.0.0.1:0", false)
	require.NoError(t, err)
	defer pair.Close()
	require.NotNil(t, pair.RTCP)

	require.NoError(t, pair.DowngradeToMux())
	assert.Nil(t, pair.RTCP)

	// idempotent: downgrading an already-muxed pair is a no-op
	require.NoError(t, pair.DowngradeToMux())
}
