package message

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

const (
	maxHeaderLineSize = 8192
	maxHeaderCount    = 200
)

// Parser parses complete, whole-buffer SIP messages, as delivered by a
// datagram transport where one UDP payload is always exactly one message
// (or the remainder-of-datagram body convention in §4.2).
type Parser struct {
	// Strict enables RFC3261 mandatory-header and method-whitelist
	// validation. Non-strict mode is used for fuzz/interop testing where
	// malformed-but-parseable input should still produce a Message.
	Strict bool
}

// NewParser returns a Parser in the given strictness mode.
func NewParser(strict bool) *Parser {
	return &Parser{Strict: strict}
}

// ParseMessage parses data into a Request or Response.
func (p *Parser) ParseMessage(data []byte) (Message, error) {
	if len(data) == 0 {
		return nil, ErrInvalidMessage
	}
	if len(data) > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}

	headerEnd := bytes.Index(data, []byte("\r\n\r\n"))
	sepLen := 4
	if headerEnd < 0 {
		headerEnd = bytes.Index(data, []byte("\n\n"))
		sepLen = 2
		if headerEnd < 0 {
			return nil, ErrInvalidMessage
		}
	}

	headerData := data[:headerEnd]
	rest := data[headerEnd+sepLen:]

	lines := splitLines(headerData)
	if len(lines) == 0 {
		return nil, ErrInvalidMessage
	}

	firstLine := strings.TrimSpace(string(lines[0]))
	headers, err := p.parseHeaders(lines[1:])
	if err != nil {
		return nil, err
	}

	body := rest
	if cl := headers.Get("Content-Length"); cl != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(cl)); err == nil && n >= 0 && n <= len(rest) {
			body = rest[:n]
		}
	}

	if strings.HasPrefix(firstLine, "SIP/") {
		return p.parseResponse(firstLine, headers, body)
	}
	return p.parseRequest(firstLine, headers, body)
}

func splitLines(data []byte) [][]byte {
	if bytes.Contains(data, []byte("\r\n")) {
		return bytes.Split(data, []byte("\r\n"))
	}
	return bytes.Split(data, []byte("\n"))
}

func (p *Parser) parseRequest(firstLine string, headers *Headers, body []byte) (*Request, error) {
	parts := strings.Fields(firstLine)
	if len(parts) != 3 {
		return nil, ErrInvalidRequestLine
	}

	method := strings.ToUpper(parts[0])
	if p.Strict && !isKnownMethod(method) {
		return nil, ErrInvalidMethod
	}

	uri, err := ParseURI(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: request-uri: %w", ErrMalformed, err)
	}

	if !strings.HasPrefix(parts[2], "SIP/2.0") {
		return nil, ErrInvalidSIPVersion
	}

	req := &Request{Method: method, RequestURI: uri, Headers: headers, body: body}

	if p.Strict {
		if err := validateRequestHeaders(req); err != nil {
			return nil, err
		}
	}
	return req, nil
}

func (p *Parser) parseResponse(firstLine string, headers *Headers, body []byte) (*Response, error) {
	parts := strings.SplitN(firstLine, " ", 3)
	if len(parts) < 2 {
		return nil, ErrInvalidStatusLine
	}
	if !strings.HasPrefix(parts[0], "SIP/2.0") {
		return nil, ErrInvalidSIPVersion
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil || code < 100 || code > 699 {
		return nil, ErrInvalidStatusCode
	}
	reason := ""
	if len(parts) > 2 {
		reason = parts[2]
	} else {
		reason = DefaultReasonPhrase(code)
	}
	return &Response{StatusCode: code, ReasonPhrase: reason, Headers: headers, body: body}, nil
}

func (p *Parser) parseHeaders(lines [][]byte) (*Headers, error) {
	headers := NewHeaders()
	if len(lines) > maxHeaderCount {
		return nil, fmt.Errorf("%w: too many headers (%d)", ErrMalformed, len(lines))
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if len(line) == 0 {
			continue
		}
		// RFC3261 §7.3.1 line folding: a continuation line starts with
		// whitespace.
		for i+1 < len(lines) && len(lines[i+1]) > 0 && (lines[i+1][0] == ' ' || lines[i+1][0] == '\t') {
			i++
			folded := make([]byte, 0, len(line)+1+len(lines[i]))
			folded = append(folded, line...)
			folded = append(folded, ' ')
			folded = append(folded, bytes.TrimSpace(lines[i])...)
			line = folded
		}
		if len(line) > maxHeaderLineSize {
			return nil, ErrHeaderTooLarge
		}

		colon := bytes.IndexByte(line, ':')
		if colon < 0 {
			if p.Strict {
				return nil, ErrInvalidHeader
			}
			continue
		}
		name := string(bytes.TrimSpace(line[:colon]))
		value := string(bytes.TrimSpace(line[colon+1:]))
		if name == "" {
			if p.Strict {
				return nil, ErrInvalidHeader
			}
			continue
		}
		headers.Add(name, value)
	}
	return headers, nil
}

func validateRequestHeaders(req *Request) error {
	for _, name := range []string{"To", "From", "Call-ID", "CSeq", "Via"} {
		if req.GetHeader(name) == "" {
			return fmt.Errorf("%w: %s", ErrMissingHeader, name)
		}
	}
	switch req.Method {
	case "INVITE", "REGISTER", "SUBSCRIBE", "REFER":
		if req.GetHeader("Contact") == "" {
			return fmt.Errorf("%w: Contact required for %s", ErrMissingHeader, req.Method)
		}
	}

	cseq := req.GetHeader("CSeq")
	parts := strings.Fields(cseq)
	if len(parts) != 2 {
		return fmt.Errorf("%w: invalid CSeq %q", ErrMalformed, cseq)
	}
	if _, err := strconv.Atoi(parts[0]); err != nil {
		return fmt.Errorf("%w: invalid CSeq number %q", ErrMalformed, parts[0])
	}
	if parts[1] != req.Method {
		return fmt.Errorf("%w: CSeq method mismatch %s != %s", ErrMalformed, parts[1], req.Method)
	}
	return nil
}

func isKnownMethod(method string) bool {
	switch method {
	case "INVITE", "ACK", "BYE", "CANCEL", "OPTIONS", "REGISTER",
		"PRACK", "SUBSCRIBE", "NOTIFY", "PUBLISH", "INFO", "REFER",
		"MESSAGE", "UPDATE":
		return true
	default:
		return false
	}
}

// DefaultReasonPhrase returns the RFC3261 reason phrase for a status code,
// used when a parsed response line omits one and when building responses.
func DefaultReasonPhrase(code int) string {
	switch code {
	case 100:
		return "Trying"
	case 180:
		return "Ringing"
	case 181:
		return "Call Is Being Forwarded"
	case 182:
		return "Queued"
	case 183:
		return "Session Progress"
	case 200:
		return "OK"
	case 202:
		return "Accepted"
	case 300:
		return "Multiple Choices"
	case 301:
		return "Moved Permanently"
	case 302:
		return "Moved Temporarily"
	case 305:
		return "Use Proxy"
	case 380:
		return "Alternative Service"
	case 400:
		return "Bad Request"
	case 401:
		return "Unauthorized"
	case 403:
		return "Forbidden"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 406:
		return "Not Acceptable"
	case 407:
		return "Proxy Authentication Required"
	case 408:
		return "Request Timeout"
	case 410:
		return "Gone"
	case 413:
		return "Request Entity Too Large"
	case 414:
		return "Request-URI Too Long"
	case 415:
		return "Unsupported Media Type"
	case 416:
		return "Unsupported URI Scheme"
	case 420:
		return "Bad Extension"
	case 421:
		return "Extension Required"
	case 423:
		return "Interval Too Brief"
	case 480:
		return "Temporarily Unavailable"
	case 481:
		return "Call/Transaction Does Not Exist"
	case 482:
		return "Loop Detected"
	case 483:
		return "Too Many Hops"
	case 484:
		return "Address Incomplete"
	case 485:
		return "Ambiguous"
	case 486:
		return "Busy Here"
	case 487:
		return "Request Terminated"
	case 488:
		return "Not Acceptable Here"
	case 489:
		return "Bad Event"
	case 491:
		return "Request Pending"
	case 493:
		return "Undecipherable"
	case 500:
		return "Server Internal Error"
	case 501:
		return "Not Implemented"
	case 502:
		return "Bad Gateway"
	case 503:
		return "Service Unavailable"
	case 504:
		return "Server Time-out"
	case 505:
		return "Version Not Supported"
	case 513:
		return "Message Too Large"
	case 600:
		return "Busy Everywhere"
	case 603:
		return "Decline"
	case 604:
		return "Does Not Exist Anywhere"
	case 606:
		return "Not Acceptable"
	default:
		return "Unknown"
	}
}
