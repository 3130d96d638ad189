package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_ValidInvite(t *testing.T) {
	parser := NewParser(true)

	raw := "INVITE sip:bob@biloxi.com SIP/2.0\r\n" +
		"Via: SIP/2.0/UDP pc33.atlanta.com;branch=z9hG4bK776asdhds\r\n" +
		"To: Bob <sip:bob@biloxi.com>\r\n" +
		"From: Alice <sip:alice@atlanta.com>;tag=1928301774\r\n" +
		"Call-ID: a84b4c76e66710@pc33.atlanta.com\r\n" +
		"CSeq: 314159 INVITE\r\n" +
		"Max-Forwards: 70\r\n" +
		"Contact: <sip:alice@pc33.atlanta.com>\r\n" +
		"Content-Length: 0\r\n" +
		"\r\n"

	msg, err := parser.ParseMessage([]byte(raw))
	require.NoError(t, err)
	req, ok := msg.(*Request)
	require.True(t, ok)
	assert.Equal(t, "INVITE", req.Method)
	assert.Equal(t, "bob@biloxi.com", req.RequestURI.User+"@"+req.RequestURI.Host)
	assert.Equal(t, "314159 INVITE", req.GetHeader("CSeq"))
}

func TestParser_CompactHeaderForms(t *testing.T) {
	parser := NewParser(false)
	raw := "OPTIONS sip:carol@chicago.com SIP/2.0\r\n" +
		"v: SIP/2.0/UDP pc33.atlanta.com;branch=z9hG4bK776asdhds\r\n" +
		"t: <sip:carol@chicago.com>\r\n" +
		"f: <sip:alice@atlanta.com>;tag=1928301774\r\n" +
		"i: a84b4c76e66710@pc33.atlanta.com\r\n" +
		"CSeq: 1 OPTIONS\r\n" +
		"\r\n"
	msg, err := parser.ParseMessage([]byte(raw))
	require.NoError(t, err)
	req := msg.(*Request)
	assert.Equal(t, req.GetHeader("Via"), req.GetHeader("v"))
	assert.NotEmpty(t, req.GetHeader("Call-ID"))
}

func TestParser_MissingMandatoryHeaderStrict(t *testing.T) {
	parser := NewParser(true)
	raw := "OPTIONS sip:carol@chicago.com SIP/2.0\r\nCSeq: 1 OPTIONS\r\n\r\n"
	_, err := parser.ParseMessage([]byte(raw))
	require.ErrorIs(t, err, ErrMissingHeader)
}

func TestParser_Response(t *testing.T) {
	parser := NewParser(false)
	raw := "SIP/2.0 200 OK\r\nCSeq: 1 INVITE\r\nContent-Length: 0\r\n\r\n"
	msg, err := parser.ParseMessage([]byte(raw))
	require.NoError(t, err)
	resp := msg.(*Response)
	assert.Equal(t, 200, resp.StatusCode)
	assert.True(t, resp.Is2xx())
}

func TestParser_DefaultReasonPhrase(t *testing.T) {
	parser := NewParser(false)
	raw := "SIP/2.0 486\r\nCSeq: 1 INVITE\r\n\r\n"
	msg, err := parser.ParseMessage([]byte(raw))
	require.NoError(t, err)
	resp := msg.(*Response)
	assert.Equal(t, "Busy Here", resp.ReasonPhrase)
}

func TestRequestResponseRoundTrip(t *testing.T) {
	parser := NewParser(true)
	raw := "INVITE sip:bob@biloxi.com SIP/2.0\r\n" +
		"Via: SIP/2.0/UDP pc33.atlanta.com;branch=z9hG4bK776asdhds\r\n" +
		"To: Bob <sip:bob@biloxi.com>\r\n" +
		"From: Alice <sip:alice@atlanta.com>;tag=1928301774\r\n" +
		"Call-ID: a84b4c76e66710@pc33.atlanta.com\r\n" +
		"CSeq: 314159 INVITE\r\n" +
		"Max-Forwards: 70\r\n" +
		"Contact: <sip:alice@pc33.atlanta.com>\r\n" +
		"Content-Length: 0\r\n" +
		"\r\n"
	msg, err := parser.ParseMessage([]byte(raw))
	require.NoError(t, err)

	reparsed, err := parser.ParseMessage([]byte(msg.String()))
	require.NoError(t, err)
	assert.Equal(t, msg.GetHeader("Call-ID"), reparsed.GetHeader("Call-ID"))
	assert.Equal(t, msg.GetHeader("CSeq"), reparsed.GetHeader("CSeq"))
}
