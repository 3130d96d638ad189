package ice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTransactionID() [TransactionIDSize]byte {
	var id [TransactionIDSize]byte
	for i := range id {
		id[i] = byte(i + 1)
	}
	return id
}

func TestMessage_EncodeDecodeRoundTrip(t *testing.T) {
	m := &Message{Class: ClassRequest, Method: MethodBinding, TransactionID: sampleTransactionID()}
	prio := make([]byte, 4)
	prio[0], prio[1], prio[2], prio[3] = 0, 0, 0x10, 0x00
	m.Attributes = append(m.Attributes, Attribute{Type: AttrPriority, Value: prio})
	m.Attributes = append(m.Attributes, Attribute{Type: AttrUseCandidate, Value: nil})

	key := []byte("short-term-password")
	m.SignMessageIntegrity(key)
	m.SignFingerprint()

	raw := m.Raw
	decoded, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, ClassRequest, decoded.Class)
	assert.Equal(t, MethodBinding, decoded.Method)
	assert.Equal(t, m.TransactionID, decoded.TransactionID)

	require.NoError(t, decoded.VerifyMessageIntegrity(key))
	require.NoError(t, decoded.VerifyFingerprint())

	_, ok := decoded.GetAttribute(AttrPriority)
	assert.True(t, ok)
	_, ok = decoded.GetAttribute(AttrUseCandidate)
	assert.True(t, ok)
}

func TestMessage_IntegrityMismatchDetected(t *testing.T) {
	m := &Message{Class: ClassSuccessResponse, Method: MethodBinding, TransactionID: sampleTransactionID()}
	m.SignMessageIntegrity([]byte("right-password"))

	decoded, err := Decode(m.Raw)
	require.NoError(t, err)
	assert.ErrorIs(t, decoded.VerifyMessageIntegrity([]byte("wrong-password")), ErrIntegrityMismatch)
}

func TestMessage_FingerprintMismatchDetected(t *testing.T) {
	m := &Message{Class: ClassRequest, Method: MethodBinding, TransactionID: sampleTransactionID()}
	m.SignFingerprint()
	raw := m.Raw
	raw[len(raw)-1] ^= 0xFF // corrupt the fingerprint

	decoded, err := Decode(raw)
	require.NoError(t, err)
	assert.ErrorIs(t, decoded.VerifyFingerprint(), ErrFingerprintMismatch)
}

func TestDecode_RejectsBadMagicCookie(t *testing.T) {
	m := &Message{Class: ClassRequest, Method: MethodBinding, TransactionID: sampleTransactionID()}
	raw := m.Encode()
	raw[4] = 0x00 // corrupt the magic cookie
	_, err := Decode(raw)
	assert.ErrorIs(t, err, ErrNotSTUN)
}

func TestXORMappedAddress_RoundTripIPv4(t *testing.T) {
	tid := sampleTransactionID()
	ip := []byte{203, 0, 113, 42}
	encoded, err := EncodeXORMappedAddress(ip, 5000, tid)
	require.NoError(t, err)

	decodedIP, port, err := DecodeXORMappedAddress(encoded, tid)
	require.NoError(t, err)
	assert.Equal(t, ip, decodedIP)
	assert.Equal(t, uint16(5000), port)
}

func TestXORMappedAddress_RoundTripIPv6(t *testing.T) {
	tid := sampleTransactionID()
	ip := make([]byte, 16)
	for i := range ip {
		ip[i] = byte(i * 3)
	}
	encoded, err := EncodeXORMappedAddress(ip, 443, tid)
	require.NoError(t, err)

	decodedIP, port, err := DecodeXORMappedAddress(encoded, tid)
	require.NoError(t, err)
	assert.Equal(t, ip, decodedIP)
	assert.Equal(t, uint16(443), port)
}

func TestMessageType_EncodeDecodeAllCombinations(t *testing.T) {
	for _, class := range []Class{ClassRequest, ClassIndication, ClassSuccessResponse, ClassErrorResponse} {
		typ := buildType(MethodBinding, class)
		method, gotClass := splitType(typ)
		assert.Equal(t, MethodBinding, method)
		assert.Equal(t, class, gotClass)
	}
}
