package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes resolution, validation and mutation activity. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	AnalysisDuration   *prometheus.HistogramVec
	UBODeterminations  *prometheus.CounterVec
	StructuralFindings *prometheus.CounterVec
	LinkMutations      *prometheus.CounterVec
	HTTPRequests       *prometheus.HistogramVec
}

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// New registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AnalysisDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ownergraph_analysis_duration_seconds",
			Help:    "Duration of ownership analyses by operation",
			Buckets: durationBuckets,
		}, []string{"operation"}),
		UBODeterminations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ownergraph_ubo_determinations_total",
			Help: "UBOs determined, by basis (ownership, control, fallback, none)",
		}, []string{"basis"}),
		StructuralFindings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ownergraph_structural_findings_total",
			Help: "Structural problems found by validation, by kind",
		}, []string{"kind"}),
		LinkMutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ownergraph_link_mutations_total",
			Help: "Link mutations by operation and result",
		}, []string{"operation", "result"}),
		HTTPRequests: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ownergraph_http_request_duration_seconds",
			Help:    "HTTP request duration by route and status code",
			Buckets: durationBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// ObserveAnalysis records the duration of an analysis started at start.
func (m *Metrics) ObserveAnalysis(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.AnalysisDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// IncUBO counts one determination with the given basis.
func (m *Metrics) IncUBO(basis string) {
	if m == nil {
		return
	}
	m.UBODeterminations.WithLabelValues(basis).Inc()
}

// AddFindings counts n structural findings of kind.
func (m *Metrics) AddFindings(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.StructuralFindings.WithLabelValues(kind).Add(float64(n))
}

// IncLinkMutation counts one link mutation.
func (m *Metrics) IncLinkMutation(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.LinkMutations.WithLabelValues(operation, result).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
}
