package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the intake module.
type Metrics struct {
	ApplicationsSubmitted prometheus.Counter
	ManualDecisions       *prometheus.CounterVec
}

// New creates a new Metrics instance with all intake module metrics registered.
func New() *Metrics {
	return &Metrics{
		ApplicationsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leaseguard_applications_submitted_total",
			Help: "Total number of applications accepted at intake",
		}),
		ManualDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leaseguard_manual_decisions_total",
			Help: "Human override decisions by resulting status",
		}, []string{"decision"}),
	}
}

// IncrementSubmitted records one accepted submission.
func (m *Metrics) IncrementSubmitted() {
	m.ApplicationsSubmitted.Inc()
}

// IncrementManualDecision records a human override.
func (m *Metrics) IncrementManualDecision(decision string) {
	m.ManualDecisions.WithLabelValues(decision).Inc()
}
