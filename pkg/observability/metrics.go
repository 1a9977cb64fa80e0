package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/lettergraph/pkg/domain"
)

// Metrics holds the Prometheus collectors fed by the engine hooks.
type Metrics struct {
	NodeVisits         *prometheus.CounterVec
	ProviderCalls      *prometheus.CounterVec
	ProviderDuration   *prometheus.HistogramVec
	Evaluations        *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	Violations         prometheus.Counter
	Warnings           prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// It panics if a collector is already registered, like prometheus.MustRegister.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lettergraph_node_visits_total",
				Help: "Total number of node visits by node type",
			},
			[]string{"node_type"},
		),
		ProviderCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lettergraph_provider_calls_total",
				Help: "Data provider attempts by provider and result",
			},
			[]string{"provider", "result"},
		),
		ProviderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lettergraph_provider_duration_seconds",
				Help:    "Duration of data provider attempts",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lettergraph_evaluations_total",
				Help: "Finished evaluations by outcome",
			},
			[]string{"outcome"},
		),
		EvaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lettergraph_evaluation_duration_seconds",
				Help:    "Duration of evaluations",
				Buckets: prometheus.DefBuckets,
			},
		),
		Violations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lettergraph_violations_total",
			Help: "Compliance violations reported in results",
		}),
		Warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lettergraph_warnings_total",
			Help: "Node-level warnings reported in results",
		}),
	}
	reg.MustRegister(
		m.NodeVisits, m.ProviderCalls, m.ProviderDuration,
		m.Evaluations, m.EvaluationDuration, m.Violations, m.Warnings,
	)
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(string(e.NodeType)).Inc()
		},
		OnProviderReturn: func(_ context.Context, e *domain.ProviderEvent) {
			result := "ok"
			if e.IsError {
				result = "error"
			}
			m.ProviderCalls.WithLabelValues(e.Provider, result).Inc()
			m.ProviderDuration.WithLabelValues(e.Provider).Observe(e.Duration.Seconds())
		},
		OnEvaluationDone: func(_ context.Context, e *domain.EvaluationEvent) {
			m.Evaluations.WithLabelValues(string(e.Outcome)).Inc()
			m.EvaluationDuration.Observe(e.Duration.Seconds())
			m.Violations.Add(float64(e.Violations))
			m.Warnings.Add(float64(e.Warnings))
		},
	}
}
