package endpoint

import (
	"time"

	"github.com/nordcall/rtcstack/sip/message"
	"github.com/nordcall/rtcstack/sip/transaction"
)

// Capabilities lets a Layer contribute to the endpoint's cached Allow
// and Supported header sets during Init, without the layer needing to
// know about every other layer.
type Capabilities struct {
	allow     map[string]struct{}
	supported map[string]struct{}
}

func newCapabilities() *Capabilities {
	return &Capabilities{allow: map[string]struct{}{}, supported: map[string]struct{}{}}
}

// AddAllow registers a method this layer handles.
func (c *Capabilities) AddAllow(method string) { c.allow[method] = struct{}{} }

// AddSupported registers an RFC3261 option tag this layer implements.
func (c *Capabilities) AddSupported(tag string) { c.supported[tag] = struct{}{} }

// RequestHandle is the single-ownership "take-once" wrapper around an
// inbound request the endpoint walks its layers with: the first layer
// to call Take gets the request, every later call fails.
type RequestHandle struct {
	Request *message.Request
	Source  string
	// Server is the server transaction already created for Request, when
	// one exists (every DispositionNew request has one; an ACK surfaced
	// via DispositionACKUnmatched does not). A layer that claims the
	// request uses this to send its response directly rather than
	// threading one back through HandleInbound's return value.
	Server *transaction.ServerTransaction
	taken  bool
}

// Take claims the request. Returns false if another layer already has.
func (h *RequestHandle) Take() bool {
	if h.taken {
		return false
	}
	h.taken = true
	return true
}

// Taken reports whether some layer has already claimed this request.
func (h *RequestHandle) Taken() bool { return h.taken }

// Layer is a pluggable request handler — the dialog/session layer, a
// registrar, a REFER handler, and so on all implement this.
type Layer interface {
	// Name identifies the layer in logs and metrics.
	Name() string
	// Init lets the layer register the methods and option tags it
	// handles, feeding the endpoint's cached Allow/Supported headers.
	Init(caps *Capabilities)
	// Receive is offered every unmatched inbound request in layer
	// registration order. now is the receipt time. A layer that wants
	// the request calls handle.Take(); any layer may inspect the
	// request even without taking it (e.g. to update passive dialog
	// state), but only one may claim it.
	Receive(now time.Time, handle *RequestHandle)
}
