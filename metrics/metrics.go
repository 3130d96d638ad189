// Package metrics wires Prometheus instrumentation across the SIP and
// media engines. Grounded on
// _examples/arzzra-soft_phone/pkg/dialog/metrics.go's promauto-based
// MetricsCollector, stripped of its build-tag-gated stub twin
// (pkg/dialog/metrics_simple.go) and its health-check subsystem: here
// prometheus/client_golang is a direct module dependency rather than an
// optional one, so there is no non-prometheus build to fall back to,
// and the per-operation error surface already covers what that
// health-check subsystem duplicated.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every counter/gauge/histogram this module exports, all
// under the single namespace/subsystem pair given to NewRegistry.
type Registry struct {
	DialogsTotal  prometheus.Counter
	DialogsActive prometheus.Gauge
	CallDuration  prometheus.Histogram

	TransactionsTotal      *prometheus.CounterVec // labels: method, role (client/server)
	TransactionRetransmits *prometheus.CounterVec // labels: method
	TransactionTimeouts    *prometheus.CounterVec // labels: method, role

	IceConnectionState *prometheus.GaugeVec // labels: state; value is the count of transports in that state
	IceCheckRTT        prometheus.Histogram

	RtpPacketsSent     prometheus.Counter
	RtpPacketsReceived prometheus.Counter
	RtpPacketsLost     prometheus.Counter
	RtcpJitter         prometheus.Histogram

	PendingDatagramsDropped prometheus.Counter
}

// NewRegistry registers every metric against the default Prometheus
// registerer (promauto's behavior) under namespace/subsystem.
func NewRegistry(namespace, subsystem string) *Registry {
	opts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help}
	}
	gopts := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help}
	}
	hopts := func(name, help string, buckets []float64) prometheus.HistogramOpts {
		return prometheus.HistogramOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help, Buckets: buckets}
	}

	return &Registry{
		DialogsTotal:  promauto.NewCounter(opts("dialogs_total", "Total number of SIP dialogs created")),
		DialogsActive: promauto.NewGauge(gopts("dialogs_active", "Number of currently active SIP dialogs")),
		CallDuration: promauto.NewHistogram(hopts("call_duration_seconds", "Duration of established calls in seconds",
			[]float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600})),

		TransactionsTotal: promauto.NewCounterVec(opts("transactions_total", "Total number of SIP transactions processed"),
			[]string{"method", "role"}),
		TransactionRetransmits: promauto.NewCounterVec(opts("transaction_retransmits_total", "Total number of request/response retransmissions"),
			[]string{"method"}),
		TransactionTimeouts: promauto.NewCounterVec(opts("transaction_timeouts_total", "Total number of transactions that timed out"),
			[]string{"method", "role"}),

		IceConnectionState: promauto.NewGaugeVec(gopts("ice_connection_state", "Number of media transports currently in each ICE connection state"),
			[]string{"state"}),
		IceCheckRTT: promauto.NewHistogram(hopts("ice_check_rtt_seconds", "Round-trip time of successful ICE connectivity checks",
			[]float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2})),

		RtpPacketsSent:     promauto.NewCounter(opts("rtp_packets_sent_total", "Total number of RTP packets sent")),
		RtpPacketsReceived: promauto.NewCounter(opts("rtp_packets_received_total", "Total number of RTP packets received")),
		RtpPacketsLost:     promauto.NewCounter(opts("rtp_packets_lost_total", "Total number of RTP packets inferred lost from sequence gaps")),
		RtcpJitter: promauto.NewHistogram(hopts("rtcp_jitter_seconds", "Interarrival jitter reported in RTCP receiver reports",
			[]float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1})),

		PendingDatagramsDropped: promauto.NewCounter(opts("pending_datagrams_dropped_total", "Total number of pre-ready datagrams dropped once a transport's buffer cap was reached")),
	}
}

// DialogCreated records a new dialog starting, for DialogsActive and the
// eventual CallDuration observation at DialogTerminated.
func (r *Registry) DialogCreated() {
	r.DialogsTotal.Inc()
	r.DialogsActive.Inc()
}

// DialogTerminated records a dialog ending after having lived since start.
func (r *Registry) DialogTerminated(start time.Time) {
	r.DialogsActive.Dec()
	r.CallDuration.Observe(time.Since(start).Seconds())
}

// TransactionStarted records a new client or server transaction.
func (r *Registry) TransactionStarted(method, role string) {
	r.TransactionsTotal.WithLabelValues(method, role).Inc()
}

// Retransmit records one retransmitted request or response.
func (r *Registry) Retransmit(method string) {
	r.TransactionRetransmits.WithLabelValues(method).Inc()
}

// TransactionTimedOut records a transaction reaching Timer B/F/H without
// a final response/ACK.
func (r *Registry) TransactionTimedOut(method, role string) {
	r.TransactionTimeouts.WithLabelValues(method, role).Inc()
}

// IceStateChanged moves one transport's count from an old ICE
// connection state to a new one.
func (r *Registry) IceStateChanged(from, to string) {
	if from != "" {
		r.IceConnectionState.WithLabelValues(from).Dec()
	}
	r.IceConnectionState.WithLabelValues(to).Inc()
}
