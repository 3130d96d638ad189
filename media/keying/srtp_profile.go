package keying

import (
	"encoding/base64"
	"io"
	"strconv"
	"strings"
)

// SRTPSuite identifies an SDES-SRTP crypto suite by its SDP suite name
// (RFC4568). Supported reports whether this side can actually
// protect/unprotect with it via pion/srtp/v2 (AEAD/256-bit CM+HMAC
// variants are listed for completeness of the offer but are not
// currently backed by a local cipher).
type SRTPSuite struct {
	Name      string
	KeyLen    int
	SaltLen   int
	Supported bool
}

// suitePreference is ordered highest-preference first:
// "AES_256_CM_HMAC_SHA1_80 > AES_256_CM_HMAC_SHA1_32 >
// AES_CM_128_HMAC_SHA1_80 > AES_CM_128_HMAC_SHA1_32".
var suitePreference = []SRTPSuite{
	{Name: "AES_256_CM_HMAC_SHA1_80", KeyLen: 32, SaltLen: 14, Supported: false},
	{Name: "AES_256_CM_HMAC_SHA1_32", KeyLen: 32, SaltLen: 14, Supported: false},
	{Name: "AES_CM_128_HMAC_SHA1_80", KeyLen: 16, SaltLen: 14, Supported: true},
	{Name: "AES_CM_128_HMAC_SHA1_32", KeyLen: 16, SaltLen: 14, Supported: true},
}

// Suites returns the RFC-preference-ordered suite list.
func Suites() []SRTPSuite {
	return append([]SRTPSuite(nil), suitePreference...)
}

func suiteByName(name string) (SRTPSuite, bool) {
	for _, s := range suitePreference {
		if s.Name == name {
			return s, true
		}
	}
	return SRTPSuite{}, false
}

// CryptoLine is one RFC4568 a=crypto attribute value: a tag, suite
// name, and key/salt material.
type CryptoLine struct {
	Tag   int
	Suite string
	Key   []byte
	Salt  []byte
}

// GenerateOffer builds one crypto line per locally supported suite, in
// preference order, each with freshly generated key material (the
// offerer's half of SDES negotiation).
func GenerateOffer(rng io.Reader) ([]CryptoLine, error) {
	var lines []CryptoLine
	tag := 1
	for _, s := range suitePreference {
		if !s.Supported {
			continue
		}
		line, err := generateCryptoLine(tag, s, rng)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
		tag++
	}
	return lines, nil
}

// SelectAnswer picks the first locally supported suite, in preference
// order, that the remote's offered crypto lines also named, and
// generates fresh key material for it (the answerer's half).
func SelectAnswer(remote []CryptoLine, rng io.Reader) (CryptoLine, bool, error) {
	remoteByName := make(map[string]struct{}, len(remote))
	for _, c := range remote {
		remoteByName[c.Suite] = struct{}{}
	}
	for _, s := range suitePreference {
		if !s.Supported {
			continue
		}
		if _, ok := remoteByName[s.Name]; !ok {
			continue
		}
		line, err := generateCryptoLine(1, s, rng)
		return line, true, err
	}
	return CryptoLine{}, false, nil
}

func generateCryptoLine(tag int, suite SRTPSuite, rng io.Reader) (CryptoLine, error) {
	keySalt := make([]byte, suite.KeyLen+suite.SaltLen)
	if _, err := io.ReadFull(rng, keySalt); err != nil {
		return CryptoLine{}, err
	}
	return CryptoLine{Tag: tag, Suite: suite.Name, Key: keySalt[:suite.KeyLen], Salt: keySalt[suite.KeyLen:]}, nil
}

// Format renders a crypto line back to its a=crypto attribute value.
func (c CryptoLine) Format() string {
	keySalt := append(append([]byte{}, c.Key...), c.Salt...)
	return strconv.Itoa(c.Tag) + " " + c.Suite + " inline:" + base64.StdEncoding.EncodeToString(keySalt)
}

// ParseCryptoLine parses an a=crypto attribute value into a
// CryptoLine, rejecting suites this package doesn't recognize or key
// material of the wrong length for the named suite.
func ParseCryptoLine(raw string) (CryptoLine, bool) {
	fields := strings.Fields(raw)
	if len(fields) < 3 {
		return CryptoLine{}, false
	}
	tag, err := strconv.Atoi(fields[0])
	if err != nil {
		return CryptoLine{}, false
	}
	suite, ok := suiteByName(fields[1])
	if !ok {
		return CryptoLine{}, false
	}
	const prefix = "inline:"
	if !strings.HasPrefix(fields[2], prefix) {
		return CryptoLine{}, false
	}
	b64 := strings.SplitN(fields[2][len(prefix):], "|", 2)[0]
	keySalt, err := base64.StdEncoding.DecodeString(b64)
	if err != nil || len(keySalt) != suite.KeyLen+suite.SaltLen {
		return CryptoLine{}, false
	}
	return CryptoLine{Tag: tag, Suite: suite.Name, Key: keySalt[:suite.KeyLen], Salt: keySalt[suite.KeyLen:]}, true
}
