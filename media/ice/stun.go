package ice

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/binary"
	"hash/crc32"
)

// MagicCookie is the fixed STUN header cookie (RFC5389 §6).
const MagicCookie uint32 = 0x2112A442

// TransactionIDSize is the STUN transaction ID length in bytes.
const TransactionIDSize = 12

// Class is the 2-bit STUN message class.
type Class uint16

const (
	ClassRequest         Class = 0x00
	ClassIndication      Class = 0x01
	ClassSuccessResponse Class = 0x02
	ClassErrorResponse   Class = 0x03
)

// Method is the 12-bit STUN message method.
type Method uint16

const MethodBinding Method = 0x001

// AttrType identifies a STUN/ICE attribute TLV type (RFC5389, RFC8489,
// RFC8445 §16.1).
type AttrType uint16

const (
	AttrMappedAddress          AttrType = 0x0001
	AttrUsername               AttrType = 0x0006
	AttrMessageIntegrity       AttrType = 0x0008
	AttrErrorCode              AttrType = 0x0009
	AttrUnknownAttributes      AttrType = 0x000A
	AttrMessageIntegritySHA256 AttrType = 0x001C
	AttrRealm                  AttrType = 0x0014
	AttrNonce                  AttrType = 0x0015
	AttrXORMappedAddress       AttrType = 0x0020
	AttrPriority               AttrType = 0x0024
	AttrUseCandidate           AttrType = 0x0025
	AttrSoftware               AttrType = 0x8022
	AttrAlternateServer        AttrType = 0x8023
	AttrFingerprint            AttrType = 0x8028
	AttrIceControlled          AttrType = 0x8029
	AttrIceControlling         AttrType = 0x802A
)

// Attribute is one decoded TLV (padding already stripped from Value).
type Attribute struct {
	Type  AttrType
	Value []byte
}

// Message is a decoded STUN message. Raw holds the exact bytes of the
// message as received (or, after Encode, as produced) so that
// MESSAGE-INTEGRITY/FINGERPRINT verification can re-slice it.
type Message struct {
	Class         Class
	Method        Method
	TransactionID [TransactionIDSize]byte
	Attributes    []Attribute
	Raw           []byte
}

func buildType(method Method, class Class) uint16 {
	m := uint16(method)
	c := uint16(class)
	return (m & 0xF) |
		(c&0x1)<<4 |
		((m>>4)&0x7)<<5 |
		((c>>1)&0x1)<<8 |
		((m>>7)&0x7)<<9 |
		((m>>10)&0x3)<<12
}

func splitType(t uint16) (Method, Class) {
	m := (t & 0xF) | (((t >> 5) & 0x7) << 4) | (((t >> 9) & 0x7) << 7) | (((t >> 12) & 0x3) << 10)
	c := (t>>4)&0x1 | (((t >> 8) & 0x1) << 1)
	return Method(m), Class(c)
}

func pad4(n int) int {
	if r := n % 4; r != 0 {
		return n + (4 - r)
	}
	return n
}

// Decode parses a STUN message from a datagram. It validates the
// header's magic cookie and that every attribute fits within the
// declared message length; it does not verify MESSAGE-INTEGRITY or
// FINGERPRINT (callers that need that call VerifyMessageIntegrity/
// VerifyFingerprint explicitly against the same raw bytes).
func Decode(raw []byte) (*Message, error) {
	if len(raw) < 20 {
		return nil, ErrShortBuffer
	}
	typ := binary.BigEndian.Uint16(raw[0:2])
	length := int(binary.BigEndian.Uint16(raw[2:4]))
	cookie := binary.BigEndian.Uint32(raw[4:8])
	if cookie != MagicCookie {
		return nil, ErrNotSTUN
	}
	if 20+length > len(raw) {
		return nil, ErrShortBuffer
	}
	method, class := splitType(typ)
	m := &Message{Class: class, Method: method, Raw: raw[:20+length]}
	copy(m.TransactionID[:], raw[8:20])

	body := raw[20 : 20+length]
	off := 0
	for off+4 <= len(body) {
		at := AttrType(binary.BigEndian.Uint16(body[off : off+2]))
		alen := int(binary.BigEndian.Uint16(body[off+2 : off+4]))
		valStart := off + 4
		if valStart+alen > len(body) {
			return nil, ErrAttributeTooShort
		}
		val := body[valStart : valStart+alen]
		m.Attributes = append(m.Attributes, Attribute{Type: at, Value: val})

		// MESSAGE-INTEGRITY and MESSAGE-INTEGRITY-SHA256 must be last
		// except for FINGERPRINT,
		if at == AttrMessageIntegrity || at == AttrMessageIntegritySHA256 {
			off = valStart + pad4(alen)
			if off+4 <= len(body) {
				next := AttrType(binary.BigEndian.Uint16(body[off : off+2]))
				if next == AttrFingerprint {
					nlen := int(binary.BigEndian.Uint16(body[off+2 : off+4]))
					nStart := off + 4
					if nStart+nlen <= len(body) {
						m.Attributes = append(m.Attributes, Attribute{Type: next, Value: body[nStart : nStart+nlen]})
					}
				}
			}
			break
		}
		off = valStart + pad4(alen)
	}
	return m, nil
}

// Encode serializes the message's Class/Method/TransactionID and
// Attributes into wire form (and stores the result in Raw). Attributes
// must already be in the order they should appear on the wire;
// EncodeWithIntegrity/EncodeWithFingerprint append MESSAGE-INTEGRITY/
// FINGERPRINT as the final step.
func (m *Message) Encode() []byte {
	var body []byte
	for _, a := range m.Attributes {
		body = appendAttr(body, a.Type, a.Value)
	}
	out := make([]byte, 20+len(body))
	binary.BigEndian.PutUint16(out[0:2], buildType(m.Method, m.Class))
	binary.BigEndian.PutUint16(out[2:4], uint16(len(body)))
	binary.BigEndian.PutUint32(out[4:8], MagicCookie)
	copy(out[8:20], m.TransactionID[:])
	copy(out[20:], body)
	m.Raw = out
	return out
}

func appendAttr(body []byte, t AttrType, val []byte) []byte {
	hdr := make([]byte, 4)
	binary.BigEndian.PutUint16(hdr[0:2], uint16(t))
	binary.BigEndian.PutUint16(hdr[2:4], uint16(len(val)))
	body = append(body, hdr...)
	body = append(body, val...)
	if padLen := pad4(len(val)) - len(val); padLen > 0 {
		body = append(body, make([]byte, padLen)...)
	}
	return body
}

// GetAttribute returns the first attribute of the given type.
func (m *Message) GetAttribute(t AttrType) (Attribute, bool) {
	for _, a := range m.Attributes {
		if a.Type == t {
			return a, true
		}
	}
	return Attribute{}, false
}

// signedLengthUpTo returns a copy of raw[:end], where end is the offset
// of an integrity or fingerprint attribute's TLV header, with the
// copy's length field rewritten to cover the message through the end
// of that attribute (its header plus padded value).
func signedLengthUpTo(raw []byte, end int) []byte {
	out := make([]byte, end)
	copy(out, raw[:end])
	alen := int(binary.BigEndian.Uint16(raw[end+2 : end+4]))
	binary.BigEndian.PutUint16(out[2:4], uint16(end-20+4+pad4(alen)))
	return out
}

// attrOffset finds the byte offset (within m.Raw) where the named
// attribute's 4-byte TLV header begins.
func (m *Message) attrOffset(t AttrType) (int, int, bool) {
	body := m.Raw[20:]
	off := 0
	for off+4 <= len(body) {
		at := AttrType(binary.BigEndian.Uint16(body[off : off+2]))
		alen := int(binary.BigEndian.Uint16(body[off+2 : off+4]))
		if at == t {
			return 20 + off, alen, true
		}
		off += 4 + pad4(alen)
	}
	return 0, 0, false
}

// SignMessageIntegrity appends a MESSAGE-INTEGRITY attribute (HMAC-
// SHA1 over the message with the length field rewritten to cover
// through this attribute) using key as the HMAC key.
func (m *Message) SignMessageIntegrity(key []byte) {
	m.Attributes = append(m.Attributes, Attribute{Type: AttrMessageIntegrity, Value: make([]byte, sha1.Size)})
	encoded := m.Encode()
	integrityOff, _, _ := m.attrOffset(AttrMessageIntegrity)
	signed := signedLengthUpTo(encoded, integrityOff)
	mac := hmac.New(sha1.New, key)
	mac.Write(signed)
	sum := mac.Sum(nil)
	copy(encoded[integrityOff+4:integrityOff+4+sha1.Size], sum)
	m.Raw = encoded
	m.Attributes[len(m.Attributes)-1].Value = sum
}

// VerifyMessageIntegrity validates an already-decoded message's
// MESSAGE-INTEGRITY attribute against key.
func (m *Message) VerifyMessageIntegrity(key []byte) error {
	attr, ok := m.GetAttribute(AttrMessageIntegrity)
	if !ok {
		return ErrNoSuchAttribute
	}
	off, _, _ := m.attrOffset(AttrMessageIntegrity)
	signed := signedLengthUpTo(m.Raw, off)
	mac := hmac.New(sha1.New, key)
	mac.Write(signed)
	if !hmac.Equal(mac.Sum(nil), attr.Value) {
		return ErrIntegrityMismatch
	}
	return nil
}

// VerifyMessageIntegritySHA256 is the RFC8489 successor, HMAC-SHA256
// over the same rewritten-length prefix.
func (m *Message) VerifyMessageIntegritySHA256(key []byte) error {
	attr, ok := m.GetAttribute(AttrMessageIntegritySHA256)
	if !ok {
		return ErrNoSuchAttribute
	}
	off, _, _ := m.attrOffset(AttrMessageIntegritySHA256)
	signed := signedLengthUpTo(m.Raw, off)
	mac := hmac.New(sha256.New, key)
	mac.Write(signed)
	sum := mac.Sum(nil)
	if len(attr.Value) > len(sum) || !hmac.Equal(sum[:len(attr.Value)], attr.Value) {
		return ErrIntegrityMismatch
	}
	return nil
}

const fingerprintXOR uint32 = 0x5354554E

// SignFingerprint appends a FINGERPRINT attribute: CRC32 over the
// message (length field rewritten to cover through this attribute)
// XORed with the fixed STUN constant.
func (m *Message) SignFingerprint() {
	m.Attributes = append(m.Attributes, Attribute{Type: AttrFingerprint, Value: make([]byte, 4)})
	encoded := m.Encode()
	off, _, _ := m.attrOffset(AttrFingerprint)
	signed := signedLengthUpTo(encoded, off)
	crc := crc32.ChecksumIEEE(signed) ^ fingerprintXOR
	binary.BigEndian.PutUint32(encoded[off+4:off+8], crc)
	m.Raw = encoded
	m.Attributes[len(m.Attributes)-1].Value = encoded[off+4 : off+8]
}

// VerifyFingerprint validates an already-decoded message's FINGERPRINT
// attribute.
func (m *Message) VerifyFingerprint() error {
	attr, ok := m.GetAttribute(AttrFingerprint)
	if !ok {
		return ErrNoSuchAttribute
	}
	off, _, _ := m.attrOffset(AttrFingerprint)
	signed := signedLengthUpTo(m.Raw, off)
	crc := crc32.ChecksumIEEE(signed) ^ fingerprintXOR
	if len(attr.Value) != 4 || binary.BigEndian.Uint32(attr.Value) != crc {
		return ErrFingerprintMismatch
	}
	return nil
}

// EncodeXORMappedAddress builds an XOR-MAPPED-ADDRESS attribute value
// for an IPv4 or IPv6 address (RFC5389 §15.2).
func EncodeXORMappedAddress(ip []byte, port uint16, transactionID [TransactionIDSize]byte) ([]byte, error) {
	var family byte
	var xored []byte
	switch len(ip) {
	case 4:
		family = 0x01
		xored = make([]byte, 4)
		cookie := make([]byte, 4)
		binary.BigEndian.PutUint32(cookie, MagicCookie)
		for i := range ip {
			xored[i] = ip[i] ^ cookie[i]
		}
	case 16:
		family = 0x02
		xored = make([]byte, 16)
		cookie := make([]byte, 16)
		binary.BigEndian.PutUint32(cookie[0:4], MagicCookie)
		copy(cookie[4:], transactionID[:])
		for i := range ip {
			xored[i] = ip[i] ^ cookie[i]
		}
	default:
		return nil, ErrUnknownFamily
	}
	xport := port ^ uint16(MagicCookie>>16)
	out := make([]byte, 4+len(xored))
	out[1] = family
	binary.BigEndian.PutUint16(out[2:4], xport)
	copy(out[4:], xored)
	return out, nil
}

// DecodeXORMappedAddress is the inverse of EncodeXORMappedAddress.
func DecodeXORMappedAddress(value []byte, transactionID [TransactionIDSize]byte) (ip []byte, port uint16, err error) {
	if len(value) < 4 {
		return nil, 0, ErrAttributeTooShort
	}
	family := value[1]
	xport := binary.BigEndian.Uint16(value[2:4])
	port = xport ^ uint16(MagicCookie>>16)
	switch family {
	case 0x01:
		if len(value) < 8 {
			return nil, 0, ErrAttributeTooShort
		}
		cookie := make([]byte, 4)
		binary.BigEndian.PutUint32(cookie, MagicCookie)
		ip = make([]byte, 4)
		for i := range ip {
			ip[i] = value[4+i] ^ cookie[i]
		}
	case 0x02:
		if len(value) < 20 {
			return nil, 0, ErrAttributeTooShort
		}
		cookie := make([]byte, 16)
		binary.BigEndian.PutUint32(cookie[0:4], MagicCookie)
		copy(cookie[4:], transactionID[:])
		ip = make([]byte, 16)
		for i := range ip {
			ip[i] = value[4+i] ^ cookie[i]
		}
	default:
		return nil, 0, ErrUnknownFamily
	}
	return ip, port, nil
}
