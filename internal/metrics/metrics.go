// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	// ModelLoadSeconds is a histogram for model load latency
	ModelLoadSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "model_load_seconds",
			Help:    "Histogram of model load latency (seconds) including signature enumeration.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// InferenceLatencySeconds is a histogram for inference-only latency
	InferenceLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inference_latency_seconds",
			Help:    "Histogram of inference latency (seconds) excluding load and reporting overhead.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// PredictionValue is a gauge holding the last extracted prediction
	PredictionValue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "prediction_value",
			Help: "The scalar prediction extracted from the last completed run.",
		},
	)

	// RunStatus is a gauge indicating the outcome of the run, labeled with the
	// failure kind ("none" on success)
	RunStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "run_status",
			Help: "Outcome of the run (1 = completed, 0 = failed), labeled by failure kind.",
		},
		[]string{"kind"},
	)
)

// RecordModelLoad records the latency of a model load
func RecordModelLoad(seconds float64) {
	ModelLoadSeconds.Observe(seconds)
}

// RecordInferenceLatency records the latency of an inference call
func RecordInferenceLatency(seconds float64) {
	InferenceLatencySeconds.Observe(seconds)
}

// RecordPrediction records the extracted scalar prediction
func RecordPrediction(value float32) {
	PredictionValue.Set(float64(value))
}

// RecordSuccess marks the run as completed
func RecordSuccess() {
	RunStatus.WithLabelValues("none").Set(1)
}

// RecordFailure marks the run as failed with the given kind
func RecordFailure(kind string) {
	RunStatus.WithLabelValues(kind).Set(0)
}

// Push delivers the collected metrics to a Pushgateway. The process is
// single-shot, so there is nothing for Prometheus to scrape; pushing at exit
// is the supported path for batch-style jobs.
func Push(gateway, job string) error {
	return push.New(gateway, job).
		Gatherer(prometheus.DefaultGatherer).
		Push()
}
