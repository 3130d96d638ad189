package transport

import (
	"github.com/pion/rtp"
	srtp "github.com/pion/srtp/v2"

	"github.com/nordcall/rtcstack/media/keying"
)

// profileForSuite maps an SDES suite name to pion/srtp/v2's protection
// profile constant. Only the two suites media/keying.SRTPSuite marks
// Supported are handled; DTLS-SRTP's exporter-derived keys use the
// same profile for whichever suite the handshake's cipher suite
// implies (128-bit AES-CM + HMAC-SHA1-80 unless negotiated otherwise).
func profileForSuite(name string) (srtp.ProtectionProfile, bool) {
	switch name {
	case "AES_CM_128_HMAC_SHA1_80":
		return srtp.ProtectionProfileAes128CmHmacSha1_80, true
	case "AES_CM_128_HMAC_SHA1_32":
		return srtp.ProtectionProfileAes128CmHmacSha1_32, true
	default:
		return 0, false
	}
}

// CryptoContexts holds the inbound/outbound SRTP protect/unprotect
// contexts for one transport, keyed off a single master key/salt pair
// per direction (either SDES's two crypto lines, or DTLS's exporter
// output split into client/server halves).
type CryptoContexts struct {
	Inbound  *srtp.Context
	Outbound *srtp.Context
}

// NewSDESContexts builds the inbound/outbound SRTP contexts for an
// SDES-SRTP transport from the locally generated and remotely
// selected crypto lines: each side builds two SRTP sessions (inbound,
// outbound), each keyed with the respective policy.
func NewSDESContexts(local, remote keying.CryptoLine) (*CryptoContexts, error) {
	profile, ok := profileForSuite(local.Suite)
	if !ok {
		return nil, ErrUnsupportedKind
	}
	outbound, err := srtp.CreateContext(local.Key, local.Salt, profile)
	if err != nil {
		return nil, err
	}
	inbound, err := srtp.CreateContext(remote.Key, remote.Salt, profile)
	if err != nil {
		return nil, err
	}
	return &CryptoContexts{Inbound: inbound, Outbound: outbound}, nil
}

// NewDTLSContexts builds the inbound/outbound SRTP contexts from
// DTLS's exporter-derived keying material, already split into the two
// (key, salt) halves by the caller (the adapter that owns the DTLS
// connection, per ExportKeyingMaterial's layout: client write key,
// server write key, client write salt, server write salt). isClient
// selects which half is this side's outbound key.
func NewDTLSContexts(clientKey, serverKey, clientSalt, serverSalt []byte, profile srtp.ProtectionProfile, isClient bool) (*CryptoContexts, error) {
	localKey, localSalt, remoteKey, remoteSalt := serverKey, serverSalt, clientKey, clientSalt
	if isClient {
		localKey, localSalt, remoteKey, remoteSalt = clientKey, clientSalt, serverKey, serverSalt
	}
	outbound, err := srtp.CreateContext(localKey, localSalt, profile)
	if err != nil {
		return nil, err
	}
	inbound, err := srtp.CreateContext(remoteKey, remoteSalt, profile)
	if err != nil {
		return nil, err
	}
	return &CryptoContexts{Inbound: inbound, Outbound: outbound}, nil
}

// Protect encrypts an outbound RTP packet. packet is the already
// marshaled RTP packet (header plus payload); header is the same
// packet's parsed header, passed separately since pion/srtp/v2 needs
// it to derive the per-packet keystream without re-parsing it.
func (c *CryptoContexts) Protect(header *rtp.Header, packet []byte) ([]byte, error) {
	return c.Outbound.EncryptRTP(nil, packet, header)
}

// Unprotect decrypts an inbound SRTP packet.
func (c *CryptoContexts) Unprotect(encrypted []byte) ([]byte, error) {
	return c.Inbound.DecryptRTP(nil, encrypted, nil)
}

// ProtectRTCP encrypts an outbound compound RTCP packet.
func (c *CryptoContexts) ProtectRTCP(plaintext []byte) ([]byte, error) {
	return c.Outbound.EncryptRTCP(nil, plaintext, nil)
}

// UnprotectRTCP decrypts an inbound SRTCP packet.
func (c *CryptoContexts) UnprotectRTCP(encrypted []byte) ([]byte, error) {
	return c.Inbound.DecryptRTCP(nil, encrypted, nil)
}
