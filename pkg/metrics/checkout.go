package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcome labels.
const (
	OutcomeSuccess      = "success"
	OutcomeDeclined     = "declined"
	OutcomeAborted      = "aborted"
	OutcomeInconsistent = "inconsistent"
)

// CheckoutMetrics records saga outcomes and step timings.
type CheckoutMetrics struct {
	outcomes     *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	lockBusy     prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_outcomes_total",
		Help: "Completed checkout sagas by terminal outcome.",
	}, []string{"outcome"})
	stepDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_step_duration_seconds",
		Help:    "Duration of individual checkout saga steps in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"step"})
	lockBusy := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_lock_busy_total",
		Help: "Checkout attempts rejected because the buyer lock was held.",
	})
	reg.MustRegister(outcomes, stepDuration, lockBusy)
	return &CheckoutMetrics{
		outcomes:     outcomes,
		stepDuration: stepDuration,
		lockBusy:     lockBusy,
	}
}

// IncOutcome increments the counter for the given terminal outcome.
func (c *CheckoutMetrics) IncOutcome(outcome string) {
	if c == nil || c.outcomes == nil {
		return
	}
	c.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveStep records the duration of a single saga step.
func (c *CheckoutMetrics) ObserveStep(step string, duration time.Duration) {
	if c == nil || c.stepDuration == nil {
		return
	}
	c.stepDuration.WithLabelValues(normalizeLabel(step)).Observe(duration.Seconds())
}

// IncLockBusy increments the lock-contention counter.
func (c *CheckoutMetrics) IncLockBusy() {
	if c == nil || c.lockBusy == nil {
		return
	}
	c.lockBusy.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
