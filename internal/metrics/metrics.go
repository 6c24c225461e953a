// Package metrics содержит Prometheus-метрики каскада.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Исходы вызова детектора.
const (
	OutcomeHit     = "hit"     // детектор что-то нашёл
	OutcomeEmpty   = "empty"   // пустой результат
	OutcomeFailure = "failure" // ошибка, паника, таймаут или мусор
)

// Metrics holds all cascade metrics
type Metrics struct {
	Requests         *prometheus.CounterVec
	PromptsScored    prometheus.Counter
	PromptsAdmitted  prometheus.Counter
	DegenerateScores prometheus.Counter
	DetectorRuns     *prometheus.CounterVec
	DetectorsSkipped prometheus.Counter
	StageLatency     *prometheus.HistogramVec
	RegisteredModels prometheus.Gauge

	registry *prometheus.Registry
}

// New создаёт метрики на собственном реестре
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cascade_requests_total",
			Help: "Cascade requests by mode (detect, score, video, frame) and result",
		}, []string{"mode", "result"}),
		PromptsScored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cascade_prompts_scored_total",
			Help: "Prompts sent to the zero-shot scorer",
		}),
		PromptsAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cascade_prompts_admitted_total",
			Help: "Prompts that passed the significance policy",
		}),
		DegenerateScores: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cascade_degenerate_scores_total",
			Help: "Scoring batches with zero similarity variance",
		}),
		DetectorRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cascade_detector_runs_total",
			Help: "Detector invocations by detector and outcome",
		}, []string{"detector", "outcome"}),
		DetectorsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cascade_detectors_skipped_total",
			Help: "Registered detectors not run because triage found no significant prompt",
		}),
		StageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cascade_stage_seconds",
			Help:    "Latency of cascade stages",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"stage"}),
		RegisteredModels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cascade_registered_models",
			Help: "Detectors in the current registry snapshot",
		}),
	}

	m.registry.MustRegister(
		m.Requests,
		m.PromptsScored,
		m.PromptsAdmitted,
		m.DegenerateScores,
		m.DetectorRuns,
		m.DetectorsSkipped,
		m.StageLatency,
		m.RegisteredModels,
	)

	return m
}

// ObserveStage записывает длительность стадии с момента start
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageLatency.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
