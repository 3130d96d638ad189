// Package endpoint is the central dispatcher: it owns the
// transport registry, the transaction table, and an ordered list of
// layers, routing every inbound message to the right place and handing
// unclaimed requests a default rejection.
package endpoint

import "errors"

var (
	ErrNoLayerClaimed = errors.New("sip/endpoint: no layer claimed the request")
	ErrAlreadyTaken   = errors.New("sip/endpoint: request handle already taken")
)
