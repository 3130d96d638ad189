package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamDecoder_PartialThenComplete(t *testing.T) {
	dec := NewStreamDecoder(false)

	full := "OPTIONS sip:carol@chicago.com SIP/2.0\r\n" +
		"Via: SIP/2.0/TCP pc33.atlanta.com;branch=z9hG4bK776\r\n" +
		"CSeq: 1 OPTIONS\r\n" +
		"Content-Length: 5\r\n" +
		"\r\n" +
		"hello"

	dec.Feed([]byte(full[:10]))
	item, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, ItemNone, item.Kind)

	dec.Feed([]byte(full[10:]))
	item, err = dec.Next()
	require.NoError(t, err)
	require.Equal(t, ItemMessage, item.Kind)
	assert.Equal(t, []byte("hello"), item.Message.Body())
}

func TestStreamDecoder_TwoMessagesOneFeed(t *testing.T) {
	dec := NewStreamDecoder(false)
	one := "OPTIONS sip:a@b SIP/2.0\r\nCSeq: 1 OPTIONS\r\nContent-Length: 0\r\n\r\n"
	dec.Feed([]byte(one + one))

	item1, err := dec.Next()
	require.NoError(t, err)
	require.Equal(t, ItemMessage, item1.Kind)

	item2, err := dec.Next()
	require.NoError(t, err)
	require.Equal(t, ItemMessage, item2.Kind)

	item3, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, ItemNone, item3.Kind)
}

func TestStreamDecoder_MissingContentLengthIsFatal(t *testing.T) {
	dec := NewStreamDecoder(false)
	dec.Feed([]byte("OPTIONS sip:a@b SIP/2.0\r\nCSeq: 1 OPTIONS\r\n\r\n"))
	_, err := dec.Next()
	require.ErrorIs(t, err, ErrMissingContentLength)
}

func TestStreamDecoder_KeepAliveProbes(t *testing.T) {
	dec := NewStreamDecoder(false)
	dec.Feed([]byte("\r\n\r\n"))
	item, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, ItemKeepAlivePong, item.Kind)
}
