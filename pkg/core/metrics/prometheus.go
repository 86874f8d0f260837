// Package metrics exposes Prometheus counters for assessments and SEC traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"forensic_accounting/pkg/core/forensic"
)

const namespace = "forensic"

// Recorder owns a private registry so tests and multiple servers do not collide.
type Recorder struct {
	registry *prometheus.Registry

	assessments  *prometheus.CounterVec
	redFlags     *prometheus.CounterVec
	skippedPairs prometheus.Counter
	duration     prometheus.Histogram
	secRequests  *prometheus.CounterVec
}

// NewRecorder registers every metric. withRuntime adds the Go and process collectors.
func NewRecorder(withRuntime bool) *Recorder {
	registry := prometheus.NewRegistry()
	if withRuntime {
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	r := &Recorder{
		registry: registry,
		assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      "Completed assessments by overall risk level.",
		}, []string{"risk_level"}),
		redFlags: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "red_flags_total",
			Help:      "Red-flag findings by category and severity.",
		}, []string{"category", "severity"}),
		skippedPairs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "beneish_pairs_skipped_total",
			Help:      "Year pairs whose M-Score could not be computed.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assessment_duration_seconds",
			Help:      "Time per forensic run; ticker runs include data retrieval.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		secRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sec_requests_total",
			Help:      "Requests to SEC EDGAR by endpoint and HTTP status.",
		}, []string{"endpoint", "status"}),
	}

	registry.MustRegister(r.assessments, r.redFlags, r.skippedPairs, r.duration, r.secRequests)
	return r
}

// ObserveAssessment records one finished assessment.
func (r *Recorder) ObserveAssessment(a *forensic.Assessment, elapsed time.Duration) {
	if r == nil || a == nil {
		return
	}
	r.assessments.WithLabelValues(a.RiskLevel.String()).Inc()
	for _, f := range a.RedFlags {
		r.redFlags.WithLabelValues(f.Category.String(), f.Severity.String()).Inc()
	}
	r.skippedPairs.Add(float64(len(a.Skipped)))
	r.duration.Observe(elapsed.Seconds())
}

// ObserveSECRequest matches the ingest request observer signature. Status 0 means transport failure.
func (r *Recorder) ObserveSECRequest(endpoint string, status int) {
	if r == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	r.secRequests.WithLabelValues(endpoint, label).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry is exposed for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
