package transaction

import (
	"fmt"
	"strings"

	"github.com/nordcall/rtcstack/sip/message"
)

// Role distinguishes a client transaction (we sent the request) from a
// server transaction (we received it).
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

func (r Role) String() string {
	if r == RoleClient {
		return "client"
	}
	return "server"
}

// Key is the transaction identity: (branch, sent-by
// host/port, CSeq method, role). Unique within an endpoint for the
// lifetime of the transaction.
type Key struct {
	Branch string
	SentBy string
	Method string
	Role   Role
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.Branch, k.SentBy, k.Method, k.Role)
}

// KeyForRequest derives the server-transaction key an inbound request
// would be matched against (RFC3261 §17.2.3 top-Via branch + sent-by +
// CSeq method). The method is req.Method as is, so an ACK or CANCEL
// keys under its own method; Manager.HandleRequest rebuilds the INVITE
// server key from the same branch and sent-by to match them.
func KeyForRequest(req *message.Request) (Key, error) {
	via, err := topVia(req)
	if err != nil {
		return Key{}, err
	}
	method := req.Method
	return Key{Branch: via.Branch, SentBy: via.SentBy, Method: method, Role: RoleServer}, nil
}

// KeyForResponse derives the client-transaction key a response should be
// routed to: same branch/sent-by as the request that created it, method
// taken from CSeq (a response to INVITE still carries "INVITE" in CSeq
// even for a 2xx, which is what distinguishes it from the ACK).
func KeyForResponse(resp *message.Response) (Key, error) {
	vias := resp.GetHeaders("Via")
	if len(vias) == 0 {
		return Key{}, ErrMissingBranch
	}
	via, err := message.ParseVia(vias[0])
	if err != nil {
		return Key{}, err
	}
	if via.Branch == "" || !strings.HasPrefix(via.Branch, "z9hG4bK") {
		return Key{}, ErrMissingBranch
	}
	_, method, err := message.ParseCSeq(resp.GetHeader("CSeq"))
	if err != nil {
		return Key{}, err
	}
	return Key{Branch: via.Branch, SentBy: via.SentBy, Method: method, Role: RoleClient}, nil
}

// KeyForOutboundRequest derives the key a newly-sent client transaction
// registers itself under.
func KeyForOutboundRequest(req *message.Request) (Key, error) {
	via, err := topVia(req)
	if err != nil {
		return Key{}, err
	}
	return Key{Branch: via.Branch, SentBy: via.SentBy, Method: req.Method, Role: RoleClient}, nil
}

func topVia(req *message.Request) (*message.ViaParams, error) {
	vias := req.GetHeaders("Via")
	if len(vias) == 0 {
		return nil, ErrMissingBranch
	}
	via, err := message.ParseVia(vias[0])
	if err != nil {
		return nil, err
	}
	if via.Branch == "" || !strings.HasPrefix(via.Branch, "z9hG4bK") {
		return nil, ErrMissingBranch
	}
	return via, nil
}
