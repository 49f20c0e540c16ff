package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid"
	OutcomeNotFound = "not_found"
	OutcomeBusy     = "busy"
	OutcomeError    = "error"
)

// CheckoutMetrics records checkout and notification activity.
type CheckoutMetrics struct {
	duration      *prometheus.HistogramVec
	checkouts     *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome", "guest"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_total",
		Help: "Notifications by kind and delivery result.",
	}, []string{"kind", "result"})
	reg.MustRegister(duration, checkouts, notifications)
	return &CheckoutMetrics{
		duration:      duration,
		checkouts:     checkouts,
		notifications: notifications,
	}
}

// ObserveCheckout records one checkout attempt.
func (m *CheckoutMetrics) ObserveCheckout(outcome string, guest bool, d time.Duration) {
	if m == nil || m.checkouts == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	m.duration.WithLabelValues(outcome).Observe(d.Seconds())
	g := "false"
	if guest {
		g = "true"
	}
	m.checkouts.WithLabelValues(outcome, g).Inc()
}

// IncNotification counts a notification result such as sent, failed or dropped.
func (m *CheckoutMetrics) IncNotification(kind, result string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(kind), normalizeLabel(result)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
