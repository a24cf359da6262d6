package services

import (
	"controltower/internal/health"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the custom Prometheus metrics of the tool service
type Metrics struct {
	// Knowledge pipeline
	SearchRequests   *prometheus.CounterVec
	SearchLatency    prometheus.Histogram
	FilterExclusions *prometheus.CounterVec

	// Precedents
	PrecedentRequests *prometheus.CounterVec

	// Audit log
	AuditAppends *prometheus.CounterVec
}

// NewMetrics registers the metrics with reg. Backend health is exported as a gauge per component.
func NewMetrics(reg prometheus.Registerer, healthSvc *health.Service) *Metrics {
	factory := promauto.With(reg)

	metrics := &Metrics{
		// Search requests by outcome (success, error, malformed) and mode (live, simulation)
		SearchRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "controltower_search_requests_total",
			Help: "Total number of knowledge searches by outcome and mode",
		}, []string{"status", "mode"}),

		SearchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "controltower_search_duration_seconds",
			Help:    "Knowledge search latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),

		// Documents removed by each filter stage
		FilterExclusions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "controltower_filter_exclusions_total",
			Help: "Documents removed by the contextual filter, by stage",
		}, []string{"stage"}), // stage: "quality" or "customer"

		PrecedentRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "controltower_precedent_requests_total",
			Help: "Total number of precedent lookups by outcome",
		}, []string{"status"}),

		// Decision log appends: success, failure, skipped (simulation)
		AuditAppends: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "controltower_audit_appends_total",
			Help: "Decision log appends by result",
		}, []string{"result"}),
	}

	if healthSvc != nil {
		for _, c := range []health.Component{health.ComponentIndex, health.ComponentEventStore} {
			component := c
			factory.NewGaugeFunc(prometheus.GaugeOpts{
				Name:        "controltower_backend_healthy",
				Help:        "1 when the backend is usable, 0 otherwise",
				ConstLabels: prometheus.Labels{"component": string(component)},
			}, func() float64 {
				if healthSvc.IsHealthy(component) {
					return 1
				}
				return 0
			})
		}
	}

	return metrics
}

// RecordSearch records a finished search
func (m *Metrics) RecordSearch(status string, simulated bool, seconds float64) {
	if m == nil {
		return
	}
	m.SearchRequests.WithLabelValues(status, modeLabel(simulated)).Inc()
	m.SearchLatency.Observe(seconds)
}

// RecordExclusions records how many documents each filter stage removed
func (m *Metrics) RecordExclusions(quality, customer int) {
	if m == nil {
		return
	}
	m.FilterExclusions.WithLabelValues("quality").Add(float64(quality))
	m.FilterExclusions.WithLabelValues("customer").Add(float64(customer))
}

// RecordPrecedentRequest records a precedent lookup outcome
func (m *Metrics) RecordPrecedentRequest(status string) {
	if m == nil {
		return
	}
	m.PrecedentRequests.WithLabelValues(status).Inc()
}

// RecordAudit records a decision log append result
func (m *Metrics) RecordAudit(result string) {
	if m == nil {
		return
	}
	m.AuditAppends.WithLabelValues(result).Inc()
}

func modeLabel(simulated bool) string {
	if simulated {
		return "simulation"
	}
	return "live"
}
