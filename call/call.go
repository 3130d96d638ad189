package call

import (
	"fmt"
	"time"

	pionsdp "github.com/pion/sdp/v3"

	mediasession "github.com/nordcall/rtcstack/media/session"
	"github.com/nordcall/rtcstack/sip/dialog"
	"github.com/nordcall/rtcstack/sip/message"
	"github.com/nordcall/rtcstack/sip/session"
	"github.com/nordcall/rtcstack/sip/transaction"
)

// Role distinguishes which side of the INVITE this Call originated.
type Role int

const (
	RoleUAC Role = iota
	RoleUAS
)

// Call composes one sip/session.InviteSession with one
// media/session.SdpSession into a single call object, grounded on
// pkg/ua_media/ua_session.go's uaMediaSession
// (GetDialog/State/Accept/Reject/Bye/WaitAnswer/Close).
// It also implements dialog.Usage so the owning Manager can register it
// directly with a dialog for in-dialog request dispatch (BYE, re-INVITE,
// PRACK, UPDATE).
type Call struct {
	ID   string // Call-ID
	Role Role

	Sip   *session.InviteSession
	Media *mediasession.SdpSession

	localURI, remoteURI   *message.URI
	localTag, remoteTag   string
	localCSeq             uint32
	target                string // request-URI/address for in-dialog requests
	protocol              string
	contact               string

	inviteReq *message.Request              // UAC: the original INVITE we sent
	inviteCt  *transaction.ClientTransaction // UAC: its client transaction
	inviteSt  *transaction.ServerTransaction // UAS: the INVITE server transaction

	pendingByeCt *transaction.ClientTransaction // UAC-initiated BYE awaiting response

	// dialogCreated tracks whether the Manager has already registered
	// this call's dialog.Manager entry. A UAS call gets one immediately
	// on the initial INVITE; a UAC call's peer CSeq baseline is unknown
	// until the peer's first in-dialog request arrives, so that side is
	// created lazily in Manager.receiveInDialog instead.
	dialogCreated bool

	closed bool
}

// Name satisfies dialog.Usage.
func (c *Call) Name() string { return "INVITE" }

// DialogKey identifies the dialog this call owns once established (or,
// pre-answer on the UAC side, the early-dialog key with an empty peer tag).
func (c *Call) DialogKey() dialog.Key {
	return dialog.Key{CallID: c.ID, LocalTag: c.localTag, RemoteTag: c.remoteTag}
}

// State mirrors the INVITE session's lifecycle.
func (c *Call) State() string { return c.Sip.State() }

// Receive satisfies dialog.Usage: it is offered every in-dialog request
// the owning Dialog delivers in CSeq order. BYE terminates the call
// directly; re-INVITE and UPDATE are handled by the Manager (which has
// the transport/endpoint context this method does not), so this only
// claims BYE and leaves everything else for the Manager's own request
// inspection to pick up via the RequestHandle.Server it was given.
func (c *Call) Receive(now time.Time, req *message.Request) bool {
	switch req.Method {
	case "BYE":
		_ = c.Sip.Terminate()
		return true
	default:
		return false
	}
}

// parseSDP unmarshals an offer/answer body. DTLS setup/fingerprint and
// SDES crypto negotiation happen downstream in media/session's
// ApplyOffer/ApplyAnswer; Call only needs to hand them parsed SDP.
func parseSDP(body []byte) (*pionsdp.SessionDescription, error) {
	sd := &pionsdp.SessionDescription{}
	if err := sd.Unmarshal(body); err != nil {
		return nil, fmt.Errorf("call: parsing SDP body: %w", err)
	}
	return sd, nil
}

// BuildOffer renders this call's current local offer as a byte body
// suitable for an INVITE or re-INVITE, synchronizing Media.Transports
// as a side effect (media/session.SdpSession.BuildOffer's contract).
func (c *Call) BuildOffer() ([]byte, error) {
	offer := c.Media.BuildOffer()
	return offer.Marshal()
}

// ApplyAnswer consumes a remote 2xx's SDP body as the answer to our
// most recent offer.
func (c *Call) ApplyAnswer(body []byte) error {
	sd, err := parseSDP(body)
	if err != nil {
		return err
	}
	c.Media.ApplyAnswer(sd)
	return nil
}

// ApplyOfferAndAnswer consumes a remote offer (initial INVITE or
// re-INVITE) and returns the answer body to carry in our response.
func (c *Call) ApplyOfferAndAnswer(body []byte) ([]byte, error) {
	sd, err := parseSDP(body)
	if err != nil {
		return nil, err
	}
	answer := c.Media.ApplyOffer(sd)
	return answer.Marshal()
}

// NextDeadline is the earliest of the INVITE session's own timers
// (100rel retransmit, session-timer refresh) and the media session's
// ICE/keepalive timers, so a Manager driving many calls can still
// reduce to one wakeup per call before reducing further across calls.
func (c *Call) NextDeadline(now time.Time) (time.Time, bool) {
	best, found := c.Sip.NextDeadline()
	if d, ok := c.Media.Timeout(now); ok {
		cand := now.Add(d)
		if !found || cand.Before(best) {
			best, found = cand, true
		}
	}
	return best, found
}

// RemoteOffer returns the SDP body of the request that is still waiting
// on an answer: the original INVITE for an inbound call still in
// EventIncoming, or nil once Accept/Reject has already consumed it.
// Callers pass this to ApplyOfferAndAnswer to get the bytes Accept wants.
func (c *Call) RemoteOffer() []byte {
	if c.inviteSt == nil {
		return nil
	}
	return c.inviteSt.Request().Body()
}

// Closed reports whether Close has already run for this call.
func (c *Call) Closed() bool { return c.closed }
