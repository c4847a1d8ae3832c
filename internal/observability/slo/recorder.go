package slo

import (
	"sort"
	"sync"
	"time"
)

// DefaultWindowSize is the rolling window length used when NewRecorder is
// given a non-positive size.
const DefaultWindowSize = 256

// Recorder maintains a rolling window of recent tool-call outcomes and
// keeps the SLO gauges current. It is safe for concurrent use.
//
// Only server-side failures count against availability. A client sending
// an invalid symbol is not an outage; the breaker rejecting calls is.
type Recorder struct {
	mu        sync.Mutex
	durations []float64
	failures  []bool
	next      int
	filled    int
}

// NewRecorder creates a Recorder with the given window size.
func NewRecorder(windowSize int) *Recorder {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Recorder{
		durations: make([]float64, windowSize),
		failures:  make([]bool, windowSize),
	}
}

// Record adds one tool-call outcome to the window and refreshes the SLO
// gauges from the window contents.
func (r *Recorder) Record(duration time.Duration, serverFailure bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.durations[r.next] = duration.Seconds()
	r.failures[r.next] = serverFailure
	r.next = (r.next + 1) % len(r.durations)
	if r.filled < len(r.durations) {
		r.filled++
	}

	r.publishLocked()
}

// Snapshot returns the current availability ratio, p95 and p99 latencies
// and error rate computed over the window. Returns zeros before the first
// recorded call.
func (r *Recorder) Snapshot() (availability, p95, p99, errorRate float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.computeLocked()
}

func (r *Recorder) publishLocked() {
	availability, p95, p99, errorRate := r.computeLocked()
	UpdateAvailability(availability)
	UpdateLatencyP95(p95)
	UpdateLatencyP99(p99)
	UpdateErrorRate(errorRate)
}

func (r *Recorder) computeLocked() (availability, p95, p99, errorRate float64) {
	if r.filled == 0 {
		return 0, 0, 0, 0
	}

	failed := 0
	for i := 0; i < r.filled; i++ {
		if r.failures[i] {
			failed++
		}
	}
	errorRate = float64(failed) / float64(r.filled)
	availability = 1 - errorRate

	sorted := make([]float64, r.filled)
	copy(sorted, r.durations[:r.filled])
	sort.Float64s(sorted)
	p95 = quantile(sorted, 0.95)
	p99 = quantile(sorted, 0.99)
	return availability, p95, p99, errorRate
}

// quantile returns the value at quantile q from an ascending-sorted slice
// using the nearest-rank method.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(q*float64(len(sorted))+0.5) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
