// Package observability provides Prometheus metrics for upstream inference
// and embedding calls, plus HTTP middleware for the local mock backend.
package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rhuss/morpheus/pkg/api"
)

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// Stream frame outcomes.
const (
	FrameDelta   = "delta"
	FrameSkipped = "skipped"
)

var (
	// ProviderRequestsTotal counts upstream calls by outcome. status is "ok"
	// or the api.ErrorType of the failure.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "morpheus_provider_requests_total",
			Help: "Provider requests",
		},
		[]string{"provider", "model", "status"},
	)

	// ProviderLatency records upstream latency in seconds, including the
	// full stream read for chat completions.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "morpheus_provider_latency_seconds",
			Help:    "Provider latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// StreamFramesTotal counts SSE data frames by outcome.
	StreamFramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "morpheus_stream_frames_total",
			Help: "SSE frames processed",
		},
		[]string{"provider", "outcome"},
	)

	// EmbeddingDimensions reports the length of the last vector returned per model.
	EmbeddingDimensions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "morpheus_embedding_dimensions",
			Help: "Embedding vector length",
		},
		[]string{"model"},
	)

	// RequestsTotal counts HTTP requests served by the mock backend.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "morpheus_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records served request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "morpheus_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// StreamingConnections tracks the number of active SSE responses being served.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "morpheus_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ProviderRequestsTotal,
		ProviderLatency,
		StreamFramesTotal,
		EmbeddingDimensions,
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
	)
}

// ObserveProviderRequest records one upstream call that started at start
// and finished with err.
func ObserveProviderRequest(provider, model string, start time.Time, err error) {
	ProviderRequestsTotal.WithLabelValues(provider, model, StatusLabel(err)).Inc()
	ProviderLatency.WithLabelValues(provider, model).Observe(time.Since(start).Seconds())
}

// StatusLabel maps an error to the status label value.
func StatusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return string(apiErr.Type)
	}
	return "error"
}
