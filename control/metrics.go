// control/metrics.go
//
// Operation counters for socket-level monitoring. All methods are
// nil-safe so instrumentation stays optional on the hot path.

// Package control carries the observability surface: metrics counters
// and debug probes.
package control

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the socket-layer counters.
type Metrics struct {
	socketsOpened prometheus.Counter
	socketsClosed prometheus.Counter
	retries       prometheus.Counter
	timeouts      prometheus.Counter
	wouldBlocks   prometheus.Counter
	bytesSent     prometheus.Counter
	bytesReceived prometheus.Counter
}

// NewMetrics registers the counters with reg and returns the collector.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		socketsOpened: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "usock", Name: "sockets_opened_total",
			Help: "Sockets created, including accepted ones.",
		}),
		socketsClosed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "usock", Name: "sockets_closed_total",
			Help: "Sockets closed.",
		}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "usock", Name: "poll_retries_total",
			Help: "Retry-loop attempts that did not complete an operation.",
		}),
		timeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "usock", Name: "timeouts_total",
			Help: "Operations that exhausted a positive retry budget.",
		}),
		wouldBlocks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "usock", Name: "would_blocks_total",
			Help: "Non-blocking attempts that could not complete immediately.",
		}),
		bytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "usock", Name: "bytes_sent_total",
			Help: "Payload bytes handed to the kernel.",
		}),
		bytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "usock", Name: "bytes_received_total",
			Help: "Payload bytes read from the kernel.",
		}),
	}
}

func (m *Metrics) IncOpened() {
	if m != nil {
		m.socketsOpened.Inc()
	}
}

func (m *Metrics) IncClosed() {
	if m != nil {
		m.socketsClosed.Inc()
	}
}

func (m *Metrics) IncRetry() {
	if m != nil {
		m.retries.Inc()
	}
}

func (m *Metrics) IncTimeout() {
	if m != nil {
		m.timeouts.Inc()
	}
}

func (m *Metrics) IncWouldBlock() {
	if m != nil {
		m.wouldBlocks.Inc()
	}
}

func (m *Metrics) AddBytesSent(n int) {
	if m != nil && n > 0 {
		m.bytesSent.Add(float64(n))
	}
}

func (m *Metrics) AddBytesReceived(n int) {
	if m != nil && n > 0 {
		m.bytesReceived.Add(float64(n))
	}
}
