package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "checkout_reconciliation"

// ReconciliationMetrics records what happened to each checkout event.
type ReconciliationMetrics struct {
	outcomes      *prometheus.CounterVec
	resolutions   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// NewReconciliationMetrics registers the reconciliation metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewReconciliationMetrics(reg prometheus.Registerer) *ReconciliationMetrics {
	if reg == nil {
		return &ReconciliationMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outcomes_total",
		Help:      "Checkout events by final outcome.",
	}, []string{"outcome"})
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resolution_total",
		Help:      "Identity fields resolved, by strategy.",
	}, []string{"strategy"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Failed notification deliveries, by channel.",
	}, []string{"channel"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "duration_seconds",
		Help:      "Time spent reconciling a checkout event.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(outcomes, resolutions, notifications, duration)
	return &ReconciliationMetrics{
		outcomes:      outcomes,
		resolutions:   resolutions,
		notifications: notifications,
		duration:      duration,
	}
}

// IncOutcome counts a finished event under its outcome label.
func (m *ReconciliationMetrics) IncOutcome(outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncResolution counts a field resolved by the named strategy.
func (m *ReconciliationMetrics) IncResolution(strategy string) {
	if m == nil || m.resolutions == nil {
		return
	}
	m.resolutions.WithLabelValues(normalizeLabel(strategy)).Inc()
}

// IncNotificationFailure counts a failed delivery on the named channel.
func (m *ReconciliationMetrics) IncNotificationFailure(channel string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(channel)).Inc()
}

// ObserveDuration records how long an event took, labelled by outcome.
func (m *ReconciliationMetrics) ObserveDuration(outcome string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
