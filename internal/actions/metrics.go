package actions

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	actionsProcessed *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	pushFailures     prometheus.Counter
	emitFailures     prometheus.Counter
	duration         prometheus.Histogram
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		actionsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hrops",
			Subsystem: "actions",
			Name:      "processed_total",
			Help:      "Actions handled by the worker, by result.",
		}, []string{"result"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hrops",
			Subsystem: "actions",
			Name:      "notifications_total",
			Help:      "Per-recipient notification outcomes.",
		}, []string{"outcome"}),
		pushFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "hrops",
			Subsystem: "actions",
			Name:      "push_failures_total",
			Help:      "Mobile push sends that failed.",
		}),
		emitFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "hrops",
			Subsystem: "actions",
			Name:      "emit_failures_total",
			Help:      "Real-time emits that failed.",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hrops",
			Subsystem: "actions",
			Name:      "processing_seconds",
			Help:      "Time spent processing one action.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) observeAction(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.actionsProcessed.WithLabelValues(result).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) incNotification(outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) incPushFailure() {
	if m == nil {
		return
	}
	m.pushFailures.Inc()
}

func (m *Metrics) incEmitFailure() {
	if m == nil {
		return
	}
	m.emitFailures.Inc()
}
