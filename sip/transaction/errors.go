// Package transaction implements the four RFC3261 §17 transaction state
// machines as sans-I/O cores: each transaction consumes messages and a
// monotonic clock, and emits outbound bytes plus a next-deadline query.
// No transaction ever owns a goroutine or a real timer; scheduling is
// driven by the endpoint calling Poll with the current time.
package transaction

import "errors"

var (
	ErrInvalidRequest  = errors.New("sip/transaction: invalid request")
	ErrMissingBranch   = errors.New("sip/transaction: missing or non-RFC3261 branch parameter")
	ErrInvalidState    = errors.New("sip/transaction: operation invalid in current state")
	ErrCannotCancel    = errors.New("sip/transaction: CANCEL only applies to a Calling/Proceeding INVITE client transaction")
	ErrDuplicateKey    = errors.New("sip/transaction: a transaction with this key already exists")
	ErrRequestTimedOut = errors.New("sip/transaction: request timed out")
	ErrUnknownTransaction = errors.New("sip/transaction: no transaction matches this message")
)
