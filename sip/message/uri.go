package message

import (
	"strconv"
	"strings"
)

// URI is a minimal sip:/sips:/tel: URI, enough for routing and dialog
// identity (scheme, user, host, port, and the parameter/header sets
// transaction and dialog matching needs — e.g. tag, transport, lr).
type URI struct {
	Scheme     string
	User       string
	Host       string
	Port       int // 0 = not specified
	Parameters map[string]string
	Headers    map[string]string
}

// ParseURI parses a sip:/sips:/tel: URI. It is intentionally lenient:
// unknown parameters and headers are preserved verbatim for re-
// serialization rather than rejected, matching the leaf-parser posture
// this assigns to individual URI/header grammars.
func ParseURI(raw string) (*URI, error) {
	raw = strings.TrimSpace(raw)
	// Strip a surrounding "Display Name" <uri> or <uri> wrapper.
	if idx := strings.IndexByte(raw, '<'); idx >= 0 {
		end := strings.IndexByte(raw[idx:], '>')
		if end < 0 {
			return nil, ErrInvalidURI
		}
		raw = raw[idx+1 : idx+end]
	}

	schemeIdx := strings.IndexByte(raw, ':')
	if schemeIdx < 0 {
		return nil, ErrInvalidURI
	}
	scheme := strings.ToLower(raw[:schemeIdx])
	switch scheme {
	case "sip", "sips", "tel":
	default:
		return nil, ErrInvalidURI
	}
	rest := raw[schemeIdx+1:]

	u := &URI{Scheme: scheme, Parameters: map[string]string{}, Headers: map[string]string{}}

	if headerIdx := strings.IndexByte(rest, '?'); headerIdx >= 0 {
		parseHeaderList(rest[headerIdx+1:], u.Headers)
		rest = rest[:headerIdx]
	}

	parts := strings.Split(rest, ";")
	userHostPort := parts[0]
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		if eq := strings.IndexByte(p, '='); eq >= 0 {
			u.Parameters[strings.ToLower(p[:eq])] = p[eq+1:]
		} else {
			u.Parameters[strings.ToLower(p)] = ""
		}
	}

	if at := strings.IndexByte(userHostPort, '@'); at >= 0 {
		u.User = userHostPort[:at]
		userHostPort = userHostPort[at+1:]
	}

	host, port := splitHostPort(userHostPort)
	u.Host = host
	u.Port = port

	return u, nil
}

// splitHostPort handles bracketed IPv6 literals ([::1]:5060) in addition
// to plain host[:port].
func splitHostPort(hostport string) (string, int) {
	if strings.HasPrefix(hostport, "[") {
		if end := strings.IndexByte(hostport, ']'); end >= 0 {
			host := hostport[:end+1]
			rest := hostport[end+1:]
			if strings.HasPrefix(rest, ":") {
				if p, err := strconv.Atoi(rest[1:]); err == nil {
					return host, p
				}
			}
			return host, 0
		}
	}
	if idx := strings.LastIndexByte(hostport, ':'); idx >= 0 {
		if p, err := strconv.Atoi(hostport[idx+1:]); err == nil {
			return hostport[:idx], p
		}
	}
	return hostport, 0
}

func parseHeaderList(raw string, into map[string]string) {
	for _, kv := range strings.Split(raw, "&") {
		if eq := strings.IndexByte(kv, '='); eq >= 0 {
			into[kv[:eq]] = kv[eq+1:]
		}
	}
}

// String renders the URI back to wire form.
func (u *URI) String() string {
	var sb strings.Builder
	sb.WriteString(u.Scheme)
	sb.WriteByte(':')
	if u.User != "" {
		sb.WriteString(u.User)
		sb.WriteByte('@')
	}
	sb.WriteString(u.Host)
	if u.Port != 0 {
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(u.Port))
	}
	for _, k := range sortedKeys(u.Parameters) {
		sb.WriteByte(';')
		sb.WriteString(k)
		if v := u.Parameters[k]; v != "" {
			sb.WriteByte('=')
			sb.WriteString(v)
		}
	}
	if len(u.Headers) > 0 {
		sb.WriteByte('?')
		first := true
		for _, k := range sortedKeys(u.Headers) {
			if !first {
				sb.WriteByte('&')
			}
			first = false
			sb.WriteString(k)
			sb.WriteByte('=')
			sb.WriteString(u.Headers[k])
		}
	}
	return sb.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Stable, deterministic output without importing sort's full surface
	// for what is typically 0-3 entries.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// Clone returns a deep copy.
func (u *URI) Clone() *URI {
	if u == nil {
		return nil
	}
	clone := &URI{
		Scheme:     u.Scheme,
		User:       u.User,
		Host:       u.Host,
		Port:       u.Port,
		Parameters: make(map[string]string, len(u.Parameters)),
		Headers:    make(map[string]string, len(u.Headers)),
	}
	for k, v := range u.Parameters {
		clone.Parameters[k] = v
	}
	for k, v := range u.Headers {
		clone.Headers[k] = v
	}
	return clone
}

// HostPort renders host[:port] without scheme/user, used as a transaction
// key's sent-by component.
func (u *URI) HostPort() string {
	if u.Port == 0 {
		return u.Host
	}
	return u.Host + ":" + strconv.Itoa(u.Port)
}
