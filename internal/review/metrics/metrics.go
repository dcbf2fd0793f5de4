package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the review pipeline.
// Tracks scoring outcomes per path and the pipeline's critical durations.
type Metrics struct {
	ReviewsCompleted *prometheus.CounterVec
	ScorerFallbacks  prometheus.Counter
	ScoreDuration    *prometheus.HistogramVec
	PipelineDuration prometheus.Histogram
}

// New creates a new Metrics instance with all review module metrics registered.
func New() *Metrics {
	return &Metrics{
		ReviewsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leaseguard_reviews_completed_total",
			Help: "Completed review pipelines by scorer path and resulting status",
		}, []string{"path", "status"}),
		ScorerFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leaseguard_scorer_fallbacks_total",
			Help: "Remote scoring failures recovered by the local fallback",
		}),
		ScoreDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "leaseguard_score_duration_seconds",
			Help:    "Duration of scoring calls by path (remote is network bound)",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"path"}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "leaseguard_review_pipeline_duration_seconds",
			Help:    "End-to-end duration of the review orchestration",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// IncrementCompleted records one finished pipeline run.
func (m *Metrics) IncrementCompleted(path, status string) {
	m.ReviewsCompleted.WithLabelValues(path, status).Inc()
}

// IncrementFallback records a remote scoring failure handled locally.
func (m *Metrics) IncrementFallback() {
	m.ScorerFallbacks.Inc()
}

// ObserveScore records the duration of one scoring call.
// Call with time.Now() at the start of the call.
func (m *Metrics) ObserveScore(path string, start time.Time) {
	m.ScoreDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
}

// ObservePipeline records the end-to-end pipeline duration.
// Call with time.Now() at the start of the run.
func (m *Metrics) ObservePipeline(start time.Time) {
	m.PipelineDuration.Observe(time.Since(start).Seconds())
}
