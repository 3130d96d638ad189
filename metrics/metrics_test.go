package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_DialogLifecycleUpdatesActiveGaugeAndDuration(t *testing.T) {
	r := NewRegistry("rtcstack_test", "dialog_lifecycle")

	r.DialogCreated()
	r.DialogCreated()
	assert.Equal(t, float64(2), testutil.ToFloat64(r.DialogsActive))
	assert.Equal(t, float64(2), testutil.ToFloat64(r.DialogsTotal))

	r.DialogTerminated(time.Now().Add(-5 * time.Second))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.DialogsActive))
	assert.Equal(t, 1, testutil.CollectAndCount(r.CallDuration), "one observation recorded")
}

func TestRegistry_TransactionCounters(t *testing.T) {
	r := NewRegistry("rtcstack_test", "transaction_counters")

	r.TransactionStarted("INVITE", "client")
	r.TransactionStarted("INVITE", "client")
	r.Retransmit("INVITE")
	r.TransactionTimedOut("INVITE", "client")

	assert.Equal(t, float64(2), testutil.ToFloat64(r.TransactionsTotal.WithLabelValues("INVITE", "client")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.TransactionRetransmits.WithLabelValues("INVITE")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.TransactionTimeouts.WithLabelValues("INVITE", "client")))
}

func TestRegistry_IceStateChangedMovesGaugeBetweenLabels(t *testing.T) {
	r := NewRegistry("rtcstack_test", "ice_state")

	r.IceStateChanged("", "checking")
	assert.Equal(t, float64(1), testutil.ToFloat64(r.IceConnectionState.WithLabelValues("checking")))

	r.IceStateChanged("checking", "connected")
	assert.Equal(t, float64(0), testutil.ToFloat64(r.IceConnectionState.WithLabelValues("checking")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.IceConnectionState.WithLabelValues("connected")))
}
