package call

import (
	"fmt"
	"time"

	mediasession "github.com/nordcall/rtcstack/media/session"
	"github.com/nordcall/rtcstack/sip/dialog"
	"github.com/nordcall/rtcstack/sip/endpoint"
	"github.com/nordcall/rtcstack/sip/message"
	"github.com/nordcall/rtcstack/sip/session"
	"github.com/nordcall/rtcstack/sip/transaction"
	"github.com/nordcall/rtcstack/sip/transport"
)

// Manager is the endpoint.Layer that turns inbound INVITE/BYE/CANCEL/
// re-INVITE traffic into Call lifecycle events, and the entry point an
// application uses to originate calls. Grounded on
// pkg/ua_media/ua_session.go's uaMediaSessionManager (there folded into
// the UA itself); split out here since sip/endpoint already owns the
// layer bus this plugs into.
type Manager struct {
	Endpoint *endpoint.Endpoint
	Dialogs  *dialog.Manager

	LocalURI *message.URI
	Contact  string // this UA's own Contact header value, e.g. "<sip:alice@1.2.3.4:5060>"
	Protocol string // default outbound transport token, e.g. "udp"

	// MediaFactory builds a fresh, application-configured SdpSession for
	// each new inbound call (its own codec list, bundle/rtcp-mux policy).
	// Inbound-INVITE handling calls it once per Call; Dial does not call
	// it and uses the SdpSession its caller passes in.
	MediaFactory func() *mediasession.SdpSession

	calls  map[string]*Call // by Call-ID
	events []Event
}

// NewManager wires a Manager over an endpoint and dialog table.
func NewManager(ep *endpoint.Endpoint, dialogs *dialog.Manager, localURI *message.URI, contact, protocol string, mediaFactory func() *mediasession.SdpSession) *Manager {
	return &Manager{
		Endpoint:     ep,
		Dialogs:      dialogs,
		LocalURI:     localURI,
		Contact:      contact,
		Protocol:     protocol,
		MediaFactory: mediaFactory,
		calls:        map[string]*Call{},
	}
}

// Name satisfies endpoint.Layer.
func (m *Manager) Name() string { return "call" }

// Init satisfies endpoint.Layer: this layer owns the dialog-forming
// INVITE transaction family plus the extensions Sip.InviteSession
// tracks (RFC3262 100rel, RFC4028 session timers).
func (m *Manager) Init(caps *endpoint.Capabilities) {
	for _, method := range []string{"INVITE", "ACK", "BYE", "CANCEL", "PRACK", "UPDATE"} {
		caps.AddAllow(method)
	}
	caps.AddSupported("100rel")
	caps.AddSupported("timer")
}

// DrainEvents returns and clears every Event raised since the last drain.
func (m *Manager) DrainEvents() []Event {
	out := m.events
	m.events = nil
	return out
}

func (m *Manager) emit(e Event) { m.events = append(m.events, e) }

// Lookup returns the call for a Call-ID, if any.
func (m *Manager) Lookup(callID string) (*Call, bool) {
	c, ok := m.calls[callID]
	return c, ok
}

// Calls returns every call currently tracked, for a driver loop that
// needs to reconcile each one's media transports after a batch of work.
func (m *Manager) Calls() []*Call {
	out := make([]*Call, 0, len(m.calls))
	for _, c := range m.calls {
		out = append(out, c)
	}
	return out
}

// --- UAC: originating a call ---

// Dial originates an INVITE to target, offering media's current local
// description in the body. media is already configured with this
// call's local codecs/bundle policy by the caller (or via MediaFactory).
func (m *Manager) Dial(now time.Time, target *message.URI, media *mediasession.SdpSession) (*Call, error) {
	tp, err := m.Endpoint.Transports.Resolve(m.Protocol)
	if err != nil {
		return nil, err
	}

	callID := message.NewCallID()
	localTag := message.NewTag()
	branch := message.NewBranch()
	const initialCSeq = uint32(1)

	req := &message.Request{Method: "INVITE", RequestURI: target.Clone(), Headers: message.NewHeaders()}
	req.SetHeader("Via", fmt.Sprintf("SIP/2.0/%s %s;branch=%s", transportToken(tp.Protocol()), tp.LocalAddr().String(), branch))
	req.SetHeader("Max-Forwards", "70")
	req.SetHeader("From", addTag(formatContactURI(m.LocalURI), localTag))
	req.SetHeader("To", formatContactURI(target))
	req.SetHeader("Call-ID", callID)
	req.SetHeader("CSeq", cseqHeader(initialCSeq, "INVITE"))
	req.SetHeader("Contact", m.Contact)
	req.SetHeader("Allow", joinTokens(m.Endpoint.Allow()))
	req.SetHeader("Supported", joinTokens(m.Endpoint.Supported()))
	req.SetHeader("Content-Type", "application/sdp")

	sip := session.NewInviteSession(dialog.Key{CallID: callID, LocalTag: localTag}, branch, initialCSeq)

	c := &Call{
		ID:        callID,
		Role:      RoleUAC,
		Sip:       sip,
		Media:     media,
		localURI:  m.LocalURI,
		localTag:  localTag,
		localCSeq: initialCSeq,
		target:    target.String(),
		protocol:  m.Protocol,
		contact:   m.Contact,
		inviteReq: req,
	}

	offer, err := c.BuildOffer()
	if err != nil {
		return nil, err
	}
	req.SetBody(offer)

	ct, err := m.Endpoint.SendRequest(now, req, target.HostPort(), m.Protocol)
	if err != nil {
		return nil, err
	}
	c.inviteCt = ct
	m.calls[callID] = c
	return c, nil
}

// --- UAS: answering a call ---

// Receive satisfies endpoint.Layer: claims a brand-new dialog-forming
// INVITE (detected by an absent To-tag) and dispatches everything else
// to the dialog it already belongs to.
func (m *Manager) Receive(now time.Time, handle *endpoint.RequestHandle) {
	req := handle.Request
	toTag := extractTag(req.GetHeader("To"))

	if req.Method == "INVITE" && toTag == "" {
		m.receiveNewInvite(now, handle)
		return
	}
	m.receiveInDialog(now, handle)
}

func (m *Manager) receiveNewInvite(now time.Time, handle *endpoint.RequestHandle) {
	req := handle.Request
	callID := req.GetHeader("Call-ID")
	if _, exists := m.calls[callID]; exists {
		return // retransmission of an INVITE we've already claimed; endpoint absorbed it
	}

	fromTag := extractTag(req.GetHeader("From"))
	localTag := message.NewTag()
	cseqNum, err := parseCSeqNumber(req.GetHeader("CSeq"))
	if err != nil {
		return
	}
	via, err := message.ParseVia(req.GetHeader("Via"))
	if err != nil {
		return
	}

	key := dialog.Key{CallID: callID, LocalTag: localTag, RemoteTag: fromTag}
	d, err := m.Dialogs.Create(key, cseqNum+1)
	if err != nil {
		return
	}

	sip := session.NewInviteSession(key, via.Branch, cseqNum)
	media := m.MediaFactory()

	c := &Call{
		ID:           callID,
		Role:         RoleUAS,
		Sip:          sip,
		Media:        media,
		localURI:     m.LocalURI,
		localTag:     localTag,
		remoteTag:    fromTag,
		target:       req.GetHeader("Contact"),
		protocol:     m.Protocol,
		contact:      m.Contact,
		inviteSt:     handle.Server,
		dialogCreated: true,
	}
	if remoteURI, err := message.ParseURI(req.GetHeader("From")); err == nil {
		c.remoteURI = remoteURI
	}

	d.AddUsage(c)
	m.calls[callID] = c
	handle.Take()

	_ = handle.Server.Respond(now, message.NewResponse(req, 100, "Trying"))
	m.emit(Event{Kind: EventIncoming, Call: c})
}

func (m *Manager) receiveInDialog(now time.Time, handle *endpoint.RequestHandle) {
	req := handle.Request
	callID := req.GetHeader("Call-ID")
	c, ok := m.calls[callID]
	if !ok {
		return
	}

	fromTag := extractTag(req.GetHeader("From"))
	toTag := extractTag(req.GetHeader("To"))
	key := dialog.Key{CallID: callID, LocalTag: toTag, RemoteTag: fromTag}

	d, found := m.Dialogs.Find(key)
	if !found {
		if c.Role != RoleUAC || c.dialogCreated {
			return
		}
		// First in-dialog request we've seen for a call we originated:
		// the peer's own CSeq counter is only known once it sends one,
		// so the dialog is established lazily here rather than at
		// response time (sip/dialog.NewSequence needs a starting value).
		cseqNum, err := parseCSeqNumber(req.GetHeader("CSeq"))
		if err != nil {
			return
		}
		nd, err := m.Dialogs.Create(key, cseqNum)
		if err != nil {
			return
		}
		nd.AddUsage(c)
		c.dialogCreated = true
		c.remoteTag = fromTag
		d = nd
	}

	cseqNum, err := parseCSeqNumber(req.GetHeader("CSeq"))
	if err != nil {
		return
	}
	unconsumed := d.Receive(now, cseqNum, req)
	claimed := true
	for _, u := range unconsumed {
		if u == req {
			claimed = false
		}
	}
	if !claimed && handle.Server == nil {
		// an ACK to a 2xx has no server transaction to answer through
		return
	}
	handle.Take()
	m.respondInDialog(now, c, handle.Server, req)
}

func (m *Manager) respondInDialog(now time.Time, c *Call, st *transaction.ServerTransaction, req *message.Request) {
	switch req.Method {
	case "BYE":
		_ = st.Respond(now, message.NewResponse(req, 200, "OK"))
		m.emit(Event{Kind: EventTerminated, Call: c})
		delete(m.calls, c.ID)

	case "INVITE": // re-INVITE
		answer, err := c.ApplyOfferAndAnswer(req.Body())
		if err != nil {
			_ = st.Respond(now, message.NewResponse(req, 488, "Not Acceptable Here"))
			return
		}
		resp := message.NewResponse(req, 200, "OK")
		resp.SetHeader("Contact", c.contact)
		resp.SetHeader("Content-Type", "application/sdp")
		resp.SetBody(answer)
		_ = st.Respond(now, resp)
		m.emit(Event{Kind: EventRemoteMediaChanged, Call: c})

	case "UPDATE":
		resp := message.NewResponse(req, 200, "OK")
		if len(req.Body()) > 0 {
			answer, err := c.ApplyOfferAndAnswer(req.Body())
			if err != nil {
				_ = st.Respond(now, message.NewResponse(req, 488, "Not Acceptable Here"))
				return
			}
			resp.SetHeader("Content-Type", "application/sdp")
			resp.SetBody(answer)
		}
		_ = st.Respond(now, resp)

	case "PRACK":
		_ = st.Respond(now, message.NewResponse(req, 200, "OK"))

	default:
		_ = st.Respond(now, message.NewResponse(req, 501, "Not Implemented"))
	}
}

// --- Application actions ---

// Accept sends a 2xx with answer as the SDP body for an inbound call
// still in EventIncoming. now is passed to the INVITE server
// transaction's Respond; no layer retransmits the 2xx afterwards.
func (c *Call) Accept(now time.Time, answerBody []byte) error {
	if c.Role != RoleUAS {
		return ErrNotUAS
	}
	if c.inviteSt == nil {
		return ErrWrongState
	}
	req := c.inviteSt.Request()
	resp := message.NewResponse(req, 200, "OK")
	resp.SetHeader("To", addTag(req.GetHeader("To"), c.localTag))
	resp.SetHeader("Contact", c.contact)
	resp.SetHeader("Content-Type", "application/sdp")
	resp.SetBody(answerBody)
	if err := c.inviteSt.Respond(now, resp); err != nil {
		return err
	}
	c.inviteSt = nil
	return c.Sip.Accept()
}

// Reject declines an inbound call still in EventIncoming with code/reason.
func (c *Call) Reject(now time.Time, code int, reason string) error {
	if c.Role != RoleUAS {
		return ErrNotUAS
	}
	if c.inviteSt == nil {
		return ErrWrongState
	}
	req := c.inviteSt.Request()
	resp := message.NewResponse(req, code, reason)
	resp.SetHeader("To", addTag(req.GetHeader("To"), c.localTag))
	if err := c.inviteSt.Respond(now, resp); err != nil {
		return err
	}
	c.inviteSt = nil
	return c.Sip.Terminate()
}

// Bye terminates an established call from our side.
func (m *Manager) Bye(now time.Time, c *Call) error {
	if c.State() != session.StateEstablished {
		return ErrWrongState
	}
	tp, err := m.Endpoint.Transports.Resolve(c.protocol)
	if err != nil {
		return err
	}
	c.localCSeq++
	req := c.byeRequest(tp, c.localCSeq)
	ct, err := m.Endpoint.SendRequest(now, req, c.target, c.protocol)
	if err != nil {
		return err
	}
	c.pendingByeCt = ct
	return c.Sip.Terminate()
}

func (c *Call) byeRequest(tp transport.Transport, cseq uint32) *message.Request {
	req := &message.Request{Method: "BYE", RequestURI: c.remoteRequestURI(), Headers: message.NewHeaders()}
	req.SetHeader("Via", fmt.Sprintf("SIP/2.0/%s %s;branch=%s", transportToken(tp.Protocol()), tp.LocalAddr().String(), message.NewBranch()))
	req.SetHeader("Max-Forwards", "70")
	req.SetHeader("From", addTag(formatContactURI(c.localURI), c.localTag))
	to := formatContactURI(c.remoteURI)
	if c.remoteTag != "" {
		to = addTag(to, c.remoteTag)
	}
	req.SetHeader("To", to)
	req.SetHeader("Call-ID", c.ID)
	req.SetHeader("CSeq", cseqHeader(cseq, "BYE"))
	return req
}

func (c *Call) remoteRequestURI() *message.URI {
	if c.remoteURI != nil {
		return c.remoteURI.Clone()
	}
	return &message.URI{Scheme: "sip", Host: c.target}
}

// Cancel aborts an outgoing call still ringing (UAC, pre-final-response).
func (m *Manager) Cancel(now time.Time, c *Call) error {
	if c.Role != RoleUAC || c.inviteCt == nil {
		return ErrNotUAC
	}
	if err := c.inviteCt.Cancel(); err != nil {
		return err
	}
	tp, err := m.Endpoint.Transports.Resolve(c.protocol)
	if err != nil {
		return err
	}
	_, err = m.Endpoint.Transactions().SendCancel(now, c.inviteCt, c.inviteCt.Target(), tp)
	return err
}

// --- Transport-facing driver ---

// HandleInbound wraps endpoint.HandleInbound with the call-lifecycle
// bookkeeping the transaction/endpoint layers themselves don't do: CANCEL
// needs both a 200 OK built from the CANCEL request and a 487 built from
// the original INVITE (RFC3261 §9.2), and an INVITE client transaction's
// Accepted/final event needs its ACK built and sent directly, since
// RFC6026 leaves that to the layer that can tell a late ACK from a new
// dialog-forming request.
func (m *Manager) HandleInbound(now time.Time, data []byte, source string, tp transport.Transport) endpoint.Result {
	res := m.Endpoint.HandleInbound(now, data, source, tp)
	switch res.Kind {
	case endpoint.ResultCancel:
		m.handleCancel(now, res, source, tp)
	case endpoint.ResultResponseDelivered:
		m.handleClientEvent(now, res)
	}
	return res
}

// handleCancel builds both mandatory responses RFC3261 §9.2 requires for
// a matched CANCEL: a 200 OK to the CANCEL itself (sent directly, since
// the CANCEL never got its own lasting transaction the way an INVITE
// does) and a 487 to the original INVITE via its still-live server
// transaction.
func (m *Manager) handleCancel(now time.Time, res endpoint.Result, source string, tp transport.Transport) {
	target := res.CancelTarget
	cancelReq := res.Request
	if target == nil || cancelReq == nil {
		return
	}
	okResp := message.NewResponse(cancelReq, 200, "OK")
	_ = tp.Send(source, []byte(okResp.String()))

	invite := target.Request()
	callID := invite.GetHeader("Call-ID")
	if c, ok := m.calls[callID]; ok {
		_ = c.Sip.HandleCancel("CANCEL")
		m.emit(Event{Kind: EventFailed, Call: c})
		delete(m.calls, callID)

		resp := message.NewResponse(invite, 487, "Request Terminated")
		resp.SetHeader("To", addTag(invite.GetHeader("To"), c.localTag))
		_ = target.Respond(now, resp)
		return
	}
	_ = target.Respond(now, message.NewResponse(invite, 487, "Request Terminated"))
}

func (m *Manager) handleClientEvent(now time.Time, res endpoint.Result) {
	if res.Client == nil {
		return
	}
	req := res.Client.Request()
	if req == nil {
		return
	}
	if req.Method == "BYE" {
		m.handleByeFinal(res)
		return
	}
	if req.Method != "INVITE" {
		return
	}
	switch res.ClientEvent.Kind {
	case transaction.EventAccepted:
		callID := req.GetHeader("Call-ID")
		c, ok := m.calls[callID]
		if !ok {
			return
		}
		resp := res.ClientEvent.Response
		if c.remoteTag == "" {
			c.remoteTag = extractTag(resp.GetHeader("To"))
			if c.Sip.DialogKey.RemoteTag == "" {
				c.Sip.DialogKey.RemoteTag = c.remoteTag
			}
		}
		_ = c.ApplyAnswer(resp.Body())
		_ = c.Sip.Accept()
		ack := message.NewACK(req, resp)
		if c.contact != "" {
			ack.RequestURI = contactRequestURI(resp, req.RequestURI)
		}
		raw := []byte(ack.String())
		_ = sendRaw(m.Endpoint, c.protocol, c.target, raw)
		m.emit(Event{Kind: EventEstablished, Call: c})

	case transaction.EventFinal:
		callID := req.GetHeader("Call-ID")
		c, ok := m.calls[callID]
		ack := message.NewACK(req, res.ClientEvent.Response)
		raw := []byte(ack.String())
		target := ""
		if ok {
			target = c.target
			_ = c.Sip.Terminate()
			m.emit(Event{Kind: EventFailed, Call: c})
			delete(m.calls, callID)
		}
		_ = sendRaw(m.Endpoint, m.Protocol, target, raw)

	case transaction.EventProvisional:
		callID := req.GetHeader("Call-ID")
		if c, ok := m.calls[callID]; ok {
			m.emit(Event{Kind: EventRinging, Call: c, Response: res.ClientEvent.Response})
		}
	}
}

// handleByeFinal reacts to the response to a locally-initiated BYE: no
// ACK is needed (non-INVITE transactions never get one), only the
// lifecycle bookkeeping Bye's caller is waiting on.
func (m *Manager) handleByeFinal(res endpoint.Result) {
	if res.ClientEvent.Kind != transaction.EventFinal {
		return
	}
	req := res.Client.Request()
	callID := req.GetHeader("Call-ID")
	c, ok := m.calls[callID]
	if !ok {
		return
	}
	m.emit(Event{Kind: EventTerminated, Call: c})
	delete(m.calls, callID)
}

func contactRequestURI(resp *message.Response, fallback *message.URI) *message.URI {
	if contact := resp.GetHeader("Contact"); contact != "" {
		if u, err := message.ParseURI(contact); err == nil {
			return u
		}
	}
	return fallback.Clone()
}

func sendRaw(ep *endpoint.Endpoint, protocol, target string, raw []byte) error {
	if target == "" {
		return nil
	}
	tp, err := ep.Transports.Resolve(protocol)
	if err != nil {
		return err
	}
	return tp.Send(target, raw)
}

// NextDeadline is the earliest of the endpoint's own transaction timers
// and every live call's NextDeadline, for a driver loop reducing to one
// wakeup across the whole process (its poll_event cadence).
func (m *Manager) NextDeadline(now time.Time) (time.Time, bool) {
	best, found := m.Endpoint.NextDeadline()
	for _, c := range m.calls {
		if d, ok := c.NextDeadline(now); ok {
			if !found || d.Before(best) {
				best, found = d, true
			}
		}
	}
	return best, found
}

// pollTransactions advances the endpoint's transaction timers and fails
// any call whose INVITE transaction gave up waiting (Timer B/F).
func (m *Manager) pollTransactions(now time.Time) {
	events, _ := m.Endpoint.Poll(now)
	for _, te := range events {
		if te.Event.Kind != transaction.EventTimeout {
			continue
		}
		var req *message.Request
		switch {
		case te.Client != nil:
			req = te.Client.Request()
		case te.Server != nil:
			req = te.Server.Request()
		}
		if req == nil {
			continue
		}
		callID := req.GetHeader("Call-ID")
		if c, ok := m.calls[callID]; ok {
			_ = c.Sip.Terminate()
			m.emit(Event{Kind: EventFailed, Call: c})
			delete(m.calls, callID)
		}
	}
}

// Poll advances every call's own timers (session timer, 100rel
// retransmit, media ICE/keepalive), surfacing an Event for whatever a
// deadline firing implies.
func (m *Manager) Poll(now time.Time) {
	m.pollTransactions(now)
	for id, c := range m.calls {
		c.Media.Poll(now)
		for _, mediaEvent := range c.Media.DrainEvents() {
			if mediaEvent.Kind == mediasession.EventMediaChanged {
				m.emit(Event{Kind: EventRemoteMediaChanged, Call: c})
			}
		}
		if c.Sip.Timer != nil {
			switch c.Sip.Timer.Poll(now) {
			case session.TimerEventRefreshNeeded:
				m.emit(Event{Kind: EventRefreshNeeded, Call: c})
			case session.TimerEventPeerExpired:
				_ = c.Sip.Terminate()
				m.emit(Event{Kind: EventFailed, Call: c})
			}
		}
		if c.Sip.State() == session.StateTerminated {
			delete(m.calls, id)
		}
	}
}

func transportToken(protocol string) string {
	switch protocol {
	case "tls":
		return "TLS"
	case "tcp":
		return "TCP"
	default:
		return "UDP"
	}
}

func joinTokens(tokens []string) string {
	out := ""
	for i, t := range tokens {
		if i > 0 {
			out += ", "
		}
		out += t
	}
	return out
}
