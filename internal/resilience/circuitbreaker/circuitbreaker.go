// Package circuitbreaker provides circuit breaker protection for external
// upstream calls. It uses the github.com/sony/gobreaker library to prevent
// cascading failures: after a run of consecutive failures the breaker fails
// fast without touching the upstream, then probes for recovery after a
// cooldown.
package circuitbreaker

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen tags every rejection the breaker issues without invoking the
// wrapped operation: calls while Open, and calls racing the single
// half-open probe.
var ErrOpen = errors.New("circuit breaker open")

// State is the breaker state as exposed in stats and health payloads.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the state by name so stats payloads stay readable.
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

// Stats is a snapshot of the breaker counters. FailureCount is the number of
// consecutive recorded failures; it resets to zero on any recorded success.
// LastFailureTime is the zero time until the first failure is recorded.
type Stats struct {
	State           State     `json:"state"`
	FailureCount    int       `json:"failure_count"`
	LastFailureTime time.Time `json:"last_failure_time"`
}

// Config holds the configuration for a circuit breaker.
type Config struct {
	// Name is the circuit breaker name for logging and metrics
	Name string

	// FailureThreshold is the number of consecutive failures that trips
	// the breaker from closed to open
	FailureThreshold uint32

	// RecoveryTimeout is how long the breaker stays open before the next
	// call is admitted as a half-open probe
	RecoveryTimeout time.Duration
}

// DefaultConfig returns a default configuration for circuit breakers.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
	}
}

// CircuitBreaker wraps gobreaker.CircuitBreaker with consecutive-failure
// tripping and a stats mirror. The open-to-half-open transition is evaluated
// lazily on the next call; there is no background timer.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string

	mu          sync.Mutex
	failures    int
	lastFailure time.Time
}

// New creates a new circuit breaker with the given configuration.
func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	settings := gobreaker.Settings{
		Name: cfg.Name,
		// Exactly one probe is admitted while half-open; concurrent
		// callers are rejected until the probe's outcome is known.
		MaxRequests: 1,
		Timeout:     cfg.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}

	return &CircuitBreaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		name:    cfg.Name,
	}
}

// Execute runs the given function through the circuit breaker. Rejections
// surface as ErrOpen without invoking fn. Every admitted call records
// exactly one success or failure against the breaker counters.
func (cb *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cb.breaker.Execute(fn)
	switch {
	case err == nil:
		cb.recordSuccess()
		return result, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: %s", ErrOpen, cb.name)
	default:
		cb.recordFailure()
		return nil, err
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	cb.lastFailure = time.Now()
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() State {
	switch cb.breaker.State() {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// Stats returns a snapshot of the breaker counters.
func (cb *CircuitBreaker) Stats() Stats {
	state := cb.State()
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Stats{
		State:           state,
		FailureCount:    cb.failures,
		LastFailureTime: cb.lastFailure,
	}
}

// Name returns the name of the circuit breaker.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// IsOpen returns true if the circuit breaker is in the open state.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.State() == StateOpen
}
