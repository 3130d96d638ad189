package message

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ParseCSeq splits a CSeq header value into its sequence number and
// method, e.g. "314159 INVITE" -> (314159, "INVITE").
func ParseCSeq(value string) (int, string, error) {
	parts := strings.Fields(value)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("%w: malformed CSeq %q", ErrMalformed, value)
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", fmt.Errorf("%w: malformed CSeq number %q", ErrMalformed, parts[0])
	}
	return n, parts[1], nil
}

// ViaParams holds the parsed components of a single Via header value
// needed for transaction-key matching and response routing.
type ViaParams struct {
	Protocol   string // e.g. "SIP/2.0/UDP"
	SentBy     string // host[:port]
	Branch     string
	Received   string
	RPort      string
	Parameters map[string]string
}

// ParseVia parses the topmost Via header value.
func ParseVia(value string) (*ViaParams, error) {
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: malformed Via %q", ErrMalformed, value)
	}
	v := &ViaParams{Protocol: parts[0], Parameters: map[string]string{}}
	segments := strings.Split(parts[1], ";")
	v.SentBy = strings.TrimSpace(segments[0])
	for _, seg := range segments[1:] {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if eq := strings.IndexByte(seg, '='); eq >= 0 {
			key := strings.ToLower(seg[:eq])
			val := seg[eq+1:]
			v.Parameters[key] = val
			switch key {
			case "branch":
				v.Branch = val
			case "received":
				v.Received = val
			case "rport":
				v.RPort = val
			}
		} else {
			v.Parameters[strings.ToLower(seg)] = ""
		}
	}
	return v, nil
}

// NewBranch generates an RFC3261 §8.1.1.7 compliant branch parameter:
// the "z9hG4bK" magic cookie followed by a random token unique enough
// to disambiguate concurrent transactions.
func NewBranch() string {
	return "z9hG4bK" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewCallID generates a process-unique Call-ID.
func NewCallID() string {
	return uuid.NewString()
}

// NewTag generates a From/To tag.
func NewTag() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

// NewACK builds an ACK for a non-2xx final response to req, per §4.3's
// INVITE-client-transaction requirement that the transaction itself send
// ACK for non-2xx finals (RFC3261 §17.1.1.3).
func NewACK(req *Request, resp *Response) *Request {
	ack := &Request{
		Method:     "ACK",
		RequestURI: req.RequestURI.Clone(),
		Headers:    NewHeaders(),
	}
	ack.SetHeader("Via", req.GetHeader("Via"))
	ack.SetHeader("From", req.GetHeader("From"))
	ack.SetHeader("To", resp.GetHeader("To"))
	ack.SetHeader("Call-ID", req.GetHeader("Call-ID"))
	if n, _, err := ParseCSeq(req.GetHeader("CSeq")); err == nil {
		ack.SetHeader("CSeq", fmt.Sprintf("%d ACK", n))
	}
	for _, route := range req.GetHeaders("Route") {
		ack.AddHeader("Route", route)
	}
	ack.SetHeader("Max-Forwards", "70")
	return ack
}

// NewCANCEL builds the companion CANCEL for an outstanding INVITE
// request, reusing its branch so the server can match it to the
// transaction it cancels (§4.3).
func NewCANCEL(req *Request) *Request {
	cancel := &Request{
		Method:     "CANCEL",
		RequestURI: req.RequestURI.Clone(),
		Headers:    NewHeaders(),
	}
	cancel.SetHeader("Via", req.GetHeader("Via"))
	cancel.SetHeader("From", req.GetHeader("From"))
	cancel.SetHeader("To", req.GetHeader("To"))
	cancel.SetHeader("Call-ID", req.GetHeader("Call-ID"))
	if n, _, err := ParseCSeq(req.GetHeader("CSeq")); err == nil {
		cancel.SetHeader("CSeq", fmt.Sprintf("%d CANCEL", n))
	}
	for _, route := range req.GetHeaders("Route") {
		cancel.AddHeader("Route", route)
	}
	cancel.SetHeader("Max-Forwards", "70")
	return cancel
}

// NewResponse builds a response to req sharing its dialog-identifying
// headers (Via stack, From, To, Call-ID, CSeq). To is copied unchanged;
// adding a To-tag is left to the caller.
func NewResponse(req *Request, statusCode int, reason string) *Response {
	if reason == "" {
		reason = DefaultReasonPhrase(statusCode)
	}
	resp := &Response{StatusCode: statusCode, ReasonPhrase: reason, Headers: NewHeaders()}
	for _, via := range req.GetHeaders("Via") {
		resp.AddHeader("Via", via)
	}
	resp.SetHeader("From", req.GetHeader("From"))
	resp.SetHeader("To", req.GetHeader("To"))
	resp.SetHeader("Call-ID", req.GetHeader("Call-ID"))
	resp.SetHeader("CSeq", req.GetHeader("CSeq"))
	return resp
}
