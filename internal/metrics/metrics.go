package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "convo"

// Phase labels for broadcast batches.
const (
	PhaseSender = "sender"
	PhaseBot    = "bot"
)

type Metrics struct {
	BroadcastBatches  *prometheus.CounterVec
	BroadcastMessages *prometheus.CounterVec
	BroadcastsTotal   prometheus.Counter
	BotsSkipped       prometheus.Counter
	HTTPDuration      *prometheus.HistogramVec
}

// New builds the collectors and registers them on reg. A nil reg leaves
// them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BroadcastBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_batches_total",
			Help:      "Broadcast insert batches by phase and outcome.",
		}, []string{"phase", "outcome"}),
		BroadcastMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_messages_total",
			Help:      "Messages written by broadcasts, by phase.",
		}, []string{"phase"}),
		BroadcastsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Broadcast requests that passed validation.",
		}),
		BotsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_bots_skipped_total",
			Help:      "Bots skipped because the reply catalog had no entry for them.",
		}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	if reg != nil {
		reg.MustRegister(m.BroadcastBatches, m.BroadcastMessages, m.BroadcastsTotal, m.BotsSkipped, m.HTTPDuration)
	}
	return m
}

func (m *Metrics) ObserveBatch(phase string, size int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.BroadcastBatches.WithLabelValues(phase, "failed").Inc()
		return
	}
	m.BroadcastBatches.WithLabelValues(phase, "ok").Inc()
	m.BroadcastMessages.WithLabelValues(phase).Add(float64(size))
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
