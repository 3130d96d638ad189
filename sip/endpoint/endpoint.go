package endpoint

import (
	"time"

	"github.com/nordcall/rtcstack/sip/message"
	"github.com/nordcall/rtcstack/sip/transaction"
	"github.com/nordcall/rtcstack/sip/transport"
)

// ResultKind classifies what HandleInbound did with a datagram.
type ResultKind int

const (
	ResultResponseDelivered ResultKind = iota // response routed to its client transaction
	ResultResponseStray                       // response matched no transaction, silently dropped per RFC3261
	ResultRequestClaimed                      // a layer took ownership of a new request
	ResultRequestRejected                     // no layer claimed it; endpoint sent 481/404 itself
	ResultRequestRetransmission               // absorbed by an existing server transaction
	ResultACK
	ResultCancel
	ResultParseError
)

// Result is what HandleInbound reports back to the driver loop.
type Result struct {
	Kind         ResultKind
	ClientEvent  transaction.Event
	Client       *transaction.ClientTransaction
	Server       *transaction.ServerTransaction
	CancelTarget *transaction.ServerTransaction
	// Request is the parsed inbound request, populated for the request-
	// shaped results (ResultCancel in particular: CANCEL bypasses the
	// layer walk entirely, so this is the only way its caller sees the
	// CANCEL request itself to build the 200 OK for it).
	Request *message.Request
	Err     error
}

// Endpoint is the process-wide registry: transports,
// layers, transactions, and the cached default capability headers.
// Grounded on pkg/sip/stack/stack.go's manager wiring, restructured so
// the endpoint itself never owns a goroutine — HandleInbound and Poll
// are both called by the adapter's driving loop.
type Endpoint struct {
	Transports   *transport.Registry
	transactions *transaction.Manager
	parser       *message.Parser
	layers       []Layer
	allowList    []string
	supportedList []string
	initialized  bool
}

// NewEndpoint wires an endpoint over an existing transport registry.
// strict controls the message parser's leniency (see sip/message.Parser).
func NewEndpoint(registry *transport.Registry, strict bool) *Endpoint {
	return &Endpoint{
		Transports:   registry,
		transactions: transaction.NewManager(),
		parser:       message.NewParser(strict),
	}
}

// AddLayer registers a layer. Layers are consulted in registration
// order for unmatched requests.
func (e *Endpoint) AddLayer(l Layer) {
	e.layers = append(e.layers, l)
	e.initialized = false
}

// Init lets every layer contribute to the cached Allow/Supported
// header sets. Must be called once after all layers are added and
// before serving traffic; idempotent.
func (e *Endpoint) Init() {
	if e.initialized {
		return
	}
	caps := newCapabilities()
	for _, l := range e.layers {
		l.Init(caps)
	}
	e.allowList = sortedKeys(caps.allow)
	e.supportedList = sortedKeys(caps.supported)
	e.initialized = true
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// Allow returns the cached Allow header token list.
func (e *Endpoint) Allow() []string { return e.allowList }

// Supported returns the cached Supported header token list.
func (e *Endpoint) Supported() []string { return e.supportedList }

// Transactions exposes the transaction table for layers that need to
// originate requests (e.g. the dialog layer sending BYE).
func (e *Endpoint) Transactions() *transaction.Manager { return e.transactions }

// SendRequest originates a new client transaction for req.
func (e *Endpoint) SendRequest(now time.Time, req *message.Request, target string, protocol string) (*transaction.ClientTransaction, error) {
	tp, err := e.Transports.Resolve(protocol)
	if err != nil {
		return nil, err
	}
	return e.transactions.SendRequest(now, req, target, tp)
}

// HandleInbound parses a datagram from source received over tp and
// routes it: matched responses go to their client transaction,
// requests are matched to an existing server transaction or walked
// through the layer list, and anything nobody wants gets a synthetic
// 481 (or 404 for an unmatched non-INVITE outside any dialog... the
// default here is 481; layers return a more specific
// code themselves by claiming and responding).
func (e *Endpoint) HandleInbound(now time.Time, data []byte, source string, tp transport.Transport) Result {
	msg, err := e.parser.ParseMessage(data)
	if err != nil {
		return Result{Kind: ResultParseError, Err: err}
	}

	if resp, ok := msg.(*message.Response); ok {
		ev, ct, err := e.transactions.HandleResponse(now, resp)
		if err != nil {
			return Result{Kind: ResultResponseStray, Err: err}
		}
		return Result{Kind: ResultResponseDelivered, ClientEvent: ev, Client: ct}
	}

	req := msg.(*message.Request)
	rr, err := e.transactions.HandleRequest(req, source, tp)
	if err != nil {
		return Result{Kind: ResultParseError, Err: err}
	}

	switch rr.Disposition {
	case transaction.DispositionRetransmission:
		return Result{Kind: ResultRequestRetransmission, Server: rr.Server}
	case transaction.DispositionACKMatched:
		_ = rr.Server.DeliverACK(now)
		return Result{Kind: ResultACK, Server: rr.Server}
	case transaction.DispositionACKUnmatched:
		// ACK to a 2xx: the transaction is already gone (RFC6026); this
		// belongs to the dialog/session layer, which tracks it by
		// Call-ID/tags rather than transaction Key. Surface it as a
		// claimed-request-shaped event so a layer can still observe it.
		handle := &RequestHandle{Request: req, Source: source}
		e.walkLayers(now, handle)
		return Result{Kind: ResultACK}
	case transaction.DispositionCancelMatched:
		return Result{Kind: ResultCancel, CancelTarget: rr.Target, Request: req}
	case transaction.DispositionCancelNotFound:
		resp := message.NewResponse(req, 481, "Call/Transaction Does Not Exist")
		_ = tp.Send(source, []byte(resp.String()))
		return Result{Kind: ResultRequestRejected}
	default: // DispositionNew
		handle := &RequestHandle{Request: req, Source: source, Server: rr.Server}
		e.walkLayers(now, handle)
		if !handle.Taken() {
			e.rejectUnclaimed(now, req, rr.Server, source, tp)
			return Result{Kind: ResultRequestRejected, Server: rr.Server, Request: req}
		}
		return Result{Kind: ResultRequestClaimed, Server: rr.Server, Request: req}
	}
}

func (e *Endpoint) walkLayers(now time.Time, handle *RequestHandle) {
	for _, l := range e.layers {
		l.Receive(now, handle)
		if handle.Taken() {
			return
		}
	}
}

func (e *Endpoint) rejectUnclaimed(now time.Time, req *message.Request, st *transaction.ServerTransaction, source string, tp transport.Transport) {
	// A request with no layer willing to claim it is, by default, taken
	// as falling outside any known dialog/transaction context (481); if
	// the method itself is not one any layer declared support for, 404
	// is the more specific answer (RFC3261 §8.2.1/§11).
	code, reason := 481, "Call/Transaction Does Not Exist"
	known := false
	for _, m := range e.allowList {
		if m == req.Method {
			known = true
			break
		}
	}
	if !known {
		code, reason = 404, "Not Found"
	}
	resp := message.NewResponse(req, code, reason)
	if st != nil {
		_ = st.Respond(now, resp)
		return
	}
	_ = tp.Send(source, []byte(resp.String()))
}

// NextDeadline is the earliest pending transaction timer.
func (e *Endpoint) NextDeadline() (time.Time, bool) {
	return e.transactions.NextDeadline()
}

// Poll advances every transaction to now.
func (e *Endpoint) Poll(now time.Time) ([]transaction.TimerEvent, error) {
	return e.transactions.Poll(now)
}
