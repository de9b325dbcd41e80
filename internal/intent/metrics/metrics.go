package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the fact pipeline.
type Metrics struct {
	// Pipeline outcomes by result and error code ("" on success)
	FactsProcessed *prometheus.CounterVec

	// Successful mappings by domain
	DomainMapped *prometheus.CounterVec

	// Backend call latency by outcome
	BackendLatency *prometheus.HistogramVec

	// Overall pipeline latency by operation
	PipelineLatency *prometheus.HistogramVec

	// Pending intents transitions by operation
	PendingTransitions *prometheus.CounterVec
}

// New creates a Metrics instance registered on the default registry.
func New() *Metrics {
	return &Metrics{
		FactsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "speechact_facts_processed_total",
			Help: "Total fact batches processed by outcome and error code",
		}, []string{"outcome", "code"}), // outcome: "success", "failure"

		DomainMapped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "speechact_domain_mapped_total",
			Help: "Total fact batches mapped, by domain",
		}, []string{"domain"}),

		BackendLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "speechact_backend_request_duration_seconds",
			Help:    "Duration of backend event recording calls",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"outcome"}),

		PipelineLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "speechact_pipeline_duration_seconds",
			Help:    "Duration of a full pipeline run including backend calls",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}), // operation: "process", "preview", "confirm"

		PendingTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "speechact_pending_intents_total",
			Help: "Pending intent lifecycle transitions",
		}, []string{"transition"}), // transition: "created", "confirmed", "rejected", "expired"
	}
}

// IncrementOutcome records the outcome of one pipeline run.
func (m *Metrics) IncrementOutcome(outcome, code string) {
	if m != nil {
		m.FactsProcessed.WithLabelValues(outcome, code).Inc()
	}
}

// IncrementDomain records a successful mapping to domain.
func (m *Metrics) IncrementDomain(domain string) {
	if m != nil {
		m.DomainMapped.WithLabelValues(domain).Inc()
	}
}

// ObserveBackendLatency records one backend call.
func (m *Metrics) ObserveBackendLatency(outcome string, d time.Duration) {
	if m != nil {
		m.BackendLatency.WithLabelValues(outcome).Observe(d.Seconds())
	}
}

// ObservePipelineLatency records the total duration of an operation.
func (m *Metrics) ObservePipelineLatency(operation string, d time.Duration) {
	if m != nil {
		m.PipelineLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

// IncrementPending records a pending intent transition.
func (m *Metrics) IncrementPending(transition string) {
	if m != nil {
		m.PendingTransitions.WithLabelValues(transition).Inc()
	}
}
