package ice

import "time"

// Binding transaction retry schedule: initial RTO 250ms
// (libwebrtc default), doubling per retransmit, capped at 3s, up to 7
// attempts total before the transaction is abandoned as failed.
const (
	initialRTO  = 250 * time.Millisecond
	maxRTO      = 3 * time.Second
	maxAttempts = 7
)

// BindingTransaction tracks one outstanding connectivity check's retry
// state. Sans-I/O: it only computes when the next retransmit is due;
// the caller is responsible for actually sending bytes and feeding
// back Success/Timeout.
type BindingTransaction struct {
	TransactionID [TransactionIDSize]byte
	Pair          *CandidatePair

	attempts int
	lastSent time.Time
	rto      time.Duration
	done     bool
	succeeded bool
}

// NewBindingTransaction starts a transaction at time now (its first
// attempt counts as attempt 1).
func NewBindingTransaction(id [TransactionIDSize]byte, pair *CandidatePair, now time.Time) *BindingTransaction {
	return &BindingTransaction{
		TransactionID: id,
		Pair:          pair,
		attempts:      1,
		lastSent:      now,
		rto:           initialRTO,
	}
}

// Attempts returns how many Binding requests have been sent so far.
func (t *BindingTransaction) Attempts() int { return t.attempts }

// Done reports whether the transaction has concluded (success or
// attempts exhausted).
func (t *BindingTransaction) Done() bool { return t.done }

// Succeeded reports whether the transaction concluded with a Binding
// success response.
func (t *BindingTransaction) Succeeded() bool { return t.succeeded }

// NextRetransmit returns the deadline at which this transaction's next
// retransmit (or, once attempts are exhausted, its failure) is due.
func (t *BindingTransaction) NextRetransmit() time.Time {
	return t.lastSent.Add(t.rto)
}

// Poll advances the transaction's retry state given the current time.
// It returns true if a new Binding request should be (re)sent now.
func (t *BindingTransaction) Poll(now time.Time) bool {
	if t.done {
		return false
	}
	if now.Before(t.NextRetransmit()) {
		return false
	}
	if t.attempts >= maxAttempts {
		t.done = true
		return false
	}
	t.attempts++
	t.lastSent = now
	t.rto *= 2
	if t.rto > maxRTO {
		t.rto = maxRTO
	}
	return true
}

// Success marks the transaction as having received a valid Binding
// success response.
func (t *BindingTransaction) Success() {
	t.done = true
	t.succeeded = true
}
