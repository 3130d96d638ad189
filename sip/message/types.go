// Package message implements the SIP message codec: parsing and
// serialization of requests and responses, with an ordered,
// case-insensitive header multi-map that preserves insertion order for
// faithful re-serialization.
package message

import (
	"fmt"
	"strings"
)

// Message is the common surface shared by Request and Response.
type Message interface {
	IsRequest() bool
	IsResponse() bool

	GetHeader(name string) string
	GetHeaders(name string) []string
	SetHeader(name, value string)
	AddHeader(name, value string)
	RemoveHeader(name string)

	Body() []byte
	SetBody(body []byte)

	String() string
}

// Request is a parsed or constructed SIP request.
type Request struct {
	Method     string
	RequestURI *URI
	Headers    *Headers
	body       []byte
}

// Response is a parsed or constructed SIP response.
type Response struct {
	StatusCode   int
	ReasonPhrase string
	Headers      *Headers
	body         []byte
}

// Headers is an ordered, case-insensitive multi-map of SIP header
// name/value pairs. Compact forms (v/f/t/i/m/c/l) normalize to their long
// name so lookups are alias-transparent; String() re-emits the header
// under whatever name it was originally set or added with.
type Headers struct {
	values map[string][]string // normalized name -> values, insertion order within a name
	order  []string            // original-name insertion order across distinct names
}

// NewHeaders returns an empty header set.
func NewHeaders() *Headers {
	return &Headers{
		values: make(map[string][]string),
		order:  make([]string, 0, 8),
	}
}

// compactAliases maps RFC3261 §7.3.3 compact forms to their long header name.
var compactAliases = map[string]string{
	"i": "call-id",
	"m": "contact",
	"f": "from",
	"t": "to",
	"v": "via",
	"c": "content-type",
	"l": "content-length",
	"e": "content-encoding",
	"s": "subject",
	"k": "supported",
	"r": "refer-to",
	"b": "referred-by",
	"o": "event",
	"u": "allow-events",
	"j": "reject-contact",
	"d": "request-disposition",
	"x": "session-expires",
	"y": "identity",
	"n": "identity-info",
}

func normalizeHeaderName(name string) string {
	lower := strings.ToLower(name)
	if long, ok := compactAliases[lower]; ok {
		return long
	}
	return lower
}

// Get returns the first value stored for name, or "".
func (h *Headers) Get(name string) string {
	if h == nil {
		return ""
	}
	values := h.values[normalizeHeaderName(name)]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// GetAll returns every value stored for name, folded across repeated
// header lines. It does not split comma-separated lists (§6 allows either
// folding convention on the wire; splitting is the caller's concern since
// not every header's grammar treats commas as list separators, e.g. URIs).
func (h *Headers) GetAll(name string) []string {
	if h == nil {
		return nil
	}
	return h.values[normalizeHeaderName(name)]
}

// Set replaces any existing values for name with a single value.
func (h *Headers) Set(name, value string) {
	normalized := normalizeHeaderName(name)
	if _, exists := h.values[normalized]; exists {
		h.removeFromOrder(normalized)
	}
	h.values[normalized] = []string{value}
	h.order = append(h.order, name)
}

// Add appends value, preserving any values already stored under name.
func (h *Headers) Add(name, value string) {
	normalized := normalizeHeaderName(name)
	if _, exists := h.values[normalized]; !exists {
		h.order = append(h.order, name)
	}
	h.values[normalized] = append(h.values[normalized], value)
}

// Remove deletes every value stored for name.
func (h *Headers) Remove(name string) {
	normalized := normalizeHeaderName(name)
	delete(h.values, normalized)
	h.removeFromOrder(normalized)
}

func (h *Headers) removeFromOrder(normalized string) {
	out := h.order[:0]
	for _, n := range h.order {
		if normalizeHeaderName(n) != normalized {
			out = append(out, n)
		}
	}
	h.order = out
}

// Names returns the distinct header names in first-insertion order, each
// under the casing it was originally set or added with.
func (h *Headers) Names() []string {
	if h == nil {
		return nil
	}
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// Clone deep-copies the header set.
func (h *Headers) Clone() *Headers {
	clone := NewHeaders()
	clone.order = append(clone.order, h.order...)
	for name, values := range h.values {
		clone.values[name] = append([]string(nil), values...)
	}
	return clone
}

func (h *Headers) writeTo(sb *strings.Builder) {
	for _, name := range h.order {
		normalized := normalizeHeaderName(name)
		for _, value := range h.values[normalized] {
			fmt.Fprintf(sb, "%s: %s\r\n", name, value)
		}
	}
}

// --- Request ---

func (r *Request) IsRequest() bool  { return true }
func (r *Request) IsResponse() bool { return false }

func (r *Request) headers() *Headers {
	if r.Headers == nil {
		r.Headers = NewHeaders()
	}
	return r.Headers
}

func (r *Request) GetHeader(name string) string    { return r.headers().Get(name) }
func (r *Request) GetHeaders(name string) []string  { return r.headers().GetAll(name) }
func (r *Request) SetHeader(name, value string)     { r.headers().Set(name, value) }
func (r *Request) AddHeader(name, value string)     { r.headers().Add(name, value) }
func (r *Request) RemoveHeader(name string)         { r.headers().Remove(name) }
func (r *Request) Body() []byte                     { return r.body }
func (r *Request) SetBody(body []byte)              { r.body = body }

func (r *Request) String() string {
	var sb strings.Builder
	uri := ""
	if r.RequestURI != nil {
		uri = r.RequestURI.String()
	}
	fmt.Fprintf(&sb, "%s %s SIP/2.0\r\n", r.Method, uri)
	r.headers().writeTo(&sb)
	sb.WriteString("\r\n")
	sb.Write(r.body)
	return sb.String()
}

// Clone returns a deep copy suitable for mutating into a derived request
// (ACK, CANCEL) without disturbing the original.
func (r *Request) Clone() *Request {
	return &Request{
		Method:     r.Method,
		RequestURI: r.RequestURI.Clone(),
		Headers:    r.headers().Clone(),
		body:       append([]byte(nil), r.body...),
	}
}

// --- Response ---

func (r *Response) IsRequest() bool  { return false }
func (r *Response) IsResponse() bool { return true }

func (r *Response) headers() *Headers {
	if r.Headers == nil {
		r.Headers = NewHeaders()
	}
	return r.Headers
}

func (r *Response) GetHeader(name string) string   { return r.headers().Get(name) }
func (r *Response) GetHeaders(name string) []string { return r.headers().GetAll(name) }
func (r *Response) SetHeader(name, value string)   { r.headers().Set(name, value) }
func (r *Response) AddHeader(name, value string)   { r.headers().Add(name, value) }
func (r *Response) RemoveHeader(name string)       { r.headers().Remove(name) }
func (r *Response) Body() []byte                   { return r.body }
func (r *Response) SetBody(body []byte)            { r.body = body }

func (r *Response) IsProvisional() bool { return r.StatusCode >= 100 && r.StatusCode < 200 }
func (r *Response) Is2xx() bool         { return r.StatusCode >= 200 && r.StatusCode < 300 }
func (r *Response) IsFinal() bool       { return r.StatusCode >= 200 }

func (r *Response) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SIP/2.0 %d %s\r\n", r.StatusCode, r.ReasonPhrase)
	r.headers().writeTo(&sb)
	sb.WriteString("\r\n")
	sb.Write(r.body)
	return sb.String()
}

func (r *Response) Clone() *Response {
	return &Response{
		StatusCode:   r.StatusCode,
		ReasonPhrase: r.ReasonPhrase,
		Headers:      r.headers().Clone(),
		body:         append([]byte(nil), r.body...),
	}
}
