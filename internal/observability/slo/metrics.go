package slo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SLO targets define the service level objectives for tool calls.
// Targets account for upstream fetches: a cold call may spend several
// seconds on the chart API including retries, while cache hits return in
// microseconds.
const (
	// AvailabilitySLO defines the target share of tool calls that complete
	// without a server-side failure (99.5%)
	AvailabilitySLO = 99.5

	// LatencyP95SLO defines the target for 95th percentile tool-call latency
	// in seconds (2.5s covers a single upstream fetch)
	LatencyP95SLO = 2.5

	// LatencyP99SLO defines the target for 99th percentile tool-call latency
	// in seconds (10s covers a fetch with backoff retries)
	LatencyP99SLO = 10.0

	// ErrorRateSLO defines the maximum acceptable server-side error rate
	// as a ratio (1% = 0.01). Validation failures are client errors and do
	// not count.
	ErrorRateSLO = 0.01
)

// SLO tracking metrics
// These gauges are updated by the tool-call Recorder from a rolling window
// of recent calls, so dashboards can alert on SLO burn without PromQL
// quantile math.
var (
	// SLOAvailability tracks the current availability ratio (0-1)
	// calculated as: (total_calls - server_failures) / total_calls
	SLOAvailability = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_availability_ratio",
			Help: "Current tool-call availability ratio (0-1), target: 0.995",
		},
	)

	// SLOLatencyP95 tracks the current p95 tool-call latency in seconds
	SLOLatencyP95 = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_latency_p95_seconds",
			Help: "Current p95 tool-call latency in seconds, target: 2.5",
		},
	)

	// SLOLatencyP99 tracks the current p99 tool-call latency in seconds
	SLOLatencyP99 = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_latency_p99_seconds",
			Help: "Current p99 tool-call latency in seconds, target: 10",
		},
	)

	// SLOErrorRate tracks the current server-side error rate ratio (0-1)
	SLOErrorRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_error_rate_ratio",
			Help: "Current tool-call server error rate ratio (0-1), target: 0.01",
		},
	)
)

// UpdateAvailability updates the availability SLO metric.
// The Recorder calls this after each tool call; it is exported so an
// external reconciler could drive the gauges instead.
func UpdateAvailability(ratio float64) {
	SLOAvailability.Set(ratio)
}

// UpdateLatencyP95 updates the p95 latency SLO metric.
func UpdateLatencyP95(seconds float64) {
	SLOLatencyP95.Set(seconds)
}

// UpdateLatencyP99 updates the p99 latency SLO metric.
func UpdateLatencyP99(seconds float64) {
	SLOLatencyP99.Set(seconds)
}

// UpdateErrorRate updates the error rate SLO metric.
func UpdateErrorRate(ratio float64) {
	SLOErrorRate.Set(ratio)
}
