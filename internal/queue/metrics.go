package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is nil-safe.
type Metrics struct {
	enqueued     *prometheus.CounterVec
	retried      prometheus.Counter
	deadLettered *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		enqueued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hrops",
			Subsystem: "queue",
			Name:      "enqueued_total",
			Help:      "Enqueue calls, by result.",
		}, []string{"result"}),
		retried: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "hrops",
			Subsystem: "queue",
			Name:      "retried_total",
			Help:      "Deliveries scheduled for another attempt.",
		}),
		deadLettered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hrops",
			Subsystem: "queue",
			Name:      "dead_lettered_total",
			Help:      "Deliveries moved to the dead queue, by reason.",
		}, []string{"reason"}),
	}
}

func (m *Metrics) incEnqueued(result string) {
	if m == nil {
		return
	}
	m.enqueued.WithLabelValues(result).Inc()
}

func (m *Metrics) incRetried() {
	if m == nil {
		return
	}
	m.retried.Inc()
}

func (m *Metrics) incDeadLettered(reason string) {
	if m == nil {
		return
	}
	m.deadLettered.WithLabelValues(reason).Inc()
}
