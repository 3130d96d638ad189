package keying

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/pion/dtls/v2"
)

// GenerateCertificate creates a self-signed ECDSA certificate for
// DTLS, the same shape pkg/rtp/transport_dtls.go's DTLSTransportConfig
// expects in its Certificates field. pion/dtls/v2 only accepts a
// tls.Certificate and exports no certificate-minting helper itself, so
// this uses crypto/x509 directly, the same way the wider ecosystem
// (e.g. pion/webrtc's own certificate generator) bootstraps one.
func GenerateCertificate() (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return tls.Certificate{}, err
	}

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "nordcall-rtcstack"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, nil
}

// Fingerprint computes the RFC8122 a=fingerprint value ("sha-256
// AA:BB:...") for a certificate's leaf DER.
func Fingerprint(cert tls.Certificate) (string, error) {
	if len(cert.Certificate) == 0 {
		return "", ErrNoCryptoLine
	}
	sum := sha256.Sum256(cert.Certificate[0])
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return "sha-256 " + strings.Join(parts, ":"), nil
}

// ResolveSetupRole picks this side's DTLS setup role in response to
// the remote's offered role (RFC5763 §5): active/passive invert,
// actpass (or an absent attribute, on the offering side) leaves the
// choice to us, and per RFC5763 an answerer must commit to active or
// passive rather than echoing actpass.
func ResolveSetupRole(remoteSetup string, isOfferer bool) string {
	switch remoteSetup {
	case "active":
		return "passive"
	case "passive":
		return "active"
	default:
		if isOfferer {
			return "actpass"
		}
		return "active"
	}
}

// BuildConfig constructs the dtls.Config this session's handshake
// should use. The adapter that owns the net.Conn is responsible for
// calling dtls.ClientWithContext/ServerWithContext with it based on
// the resolved setup role (active dials, passive accepts).
func BuildConfig(certs []tls.Certificate, handshakeTimeout time.Duration) *dtls.Config {
	if handshakeTimeout <= 0 {
		handshakeTimeout = 30 * time.Second
	}
	return &dtls.Config{
		Certificates:         certs,
		InsecureSkipVerify:   true, // identity is verified out-of-band via the SDP fingerprint, not the CA chain
		ExtendedMasterSecret: dtls.RequireExtendedMasterSecret,
		ConnectContextMaker: func() (context.Context, func()) {
			return context.WithTimeout(context.Background(), handshakeTimeout)
		},
	}
}

// VerifyFingerprint checks a peer certificate's fingerprint against
// the value negotiated in SDP.
func VerifyFingerprint(cert tls.Certificate, expected string) (bool, error) {
	got, err := Fingerprint(cert)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(got, expected), nil
}
