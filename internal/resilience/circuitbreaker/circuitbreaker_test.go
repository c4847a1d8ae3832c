package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	cfg := Config{
		Name:             "test-circuit",
		FailureThreshold: 5,
		RecoveryTimeout:  20 * time.Second,
	}

	cb := New(cfg)

	if cb == nil {
		t.Fatal("expected circuit breaker, got nil")
	}
	if cb.Name() != "test-circuit" {
		t.Errorf("expected name='test-circuit', got %q", cb.Name())
	}
	if cb.State() != StateClosed {
		t.Errorf("expected initial state=closed, got %v", cb.State())
	}
}

func TestCircuitBreaker_Execute_Success(t *testing.T) {
	cb := New(DefaultConfig("test-circuit"))

	result, err := cb.Execute(func() (interface{}, error) {
		return "success", nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != "success" {
		t.Errorf("expected result='success', got %v", result)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected state=closed after success, got %v", cb.State())
	}
}

func TestCircuitBreaker_Execute_Failure(t *testing.T) {
	cb := New(DefaultConfig("test-circuit"))

	testErr := errors.New("test error")
	result, err := cb.Execute(func() (interface{}, error) {
		return nil, testErr
	})

	if err != testErr {
		t.Errorf("expected error=%v, got %v", testErr, err)
	}
	if result != nil {
		t.Errorf("expected nil result, got %v", result)
	}

	stats := cb.Stats()
	if stats.FailureCount != 1 {
		t.Errorf("expected failure count 1, got %d", stats.FailureCount)
	}
	if stats.LastFailureTime.IsZero() {
		t.Error("expected last failure time to be recorded")
	}
}

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	cfg := Config{
		Name:             "test-circuit",
		FailureThreshold: 5,
		RecoveryTimeout:  time.Second,
	}
	cb := New(cfg)

	testErr := errors.New("test error")
	for i := 0; i < 5; i++ {
		if cb.State() != StateClosed {
			t.Fatalf("expected closed before failure %d, got %v", i+1, cb.State())
		}
		_, err := cb.Execute(func() (interface{}, error) {
			return nil, testErr
		})
		if err != testErr {
			t.Errorf("request %d: expected test error, got %v", i, err)
		}
	}

	// Exactly threshold consecutive failures: open.
	if cb.State() != StateOpen {
		t.Fatalf("expected state=open after 5 consecutive failures, got %v", cb.State())
	}
	if !cb.IsOpen() {
		t.Error("expected IsOpen()=true")
	}

	// The 6th call is rejected without invoking the operation.
	_, err := cb.Execute(func() (interface{}, error) {
		t.Error("function should not be called when circuit is open")
		return nil, nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cfg := Config{
		Name:             "test-circuit",
		FailureThreshold: 5,
		RecoveryTimeout:  time.Second,
	}
	cb := New(cfg)

	testErr := errors.New("test error")
	for i := 0; i < 4; i++ {
		_, _ = cb.Execute(func() (interface{}, error) {
			return nil, testErr
		})
	}
	if got := cb.Stats().FailureCount; got != 4 {
		t.Fatalf("expected failure count 4, got %d", got)
	}

	_, err := cb.Execute(func() (interface{}, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := cb.Stats().FailureCount; got != 0 {
		t.Errorf("expected failure count reset to 0 after success, got %d", got)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected state=closed, got %v", cb.State())
	}

	// The run of consecutive failures restarts: four more do not trip it.
	for i := 0; i < 4; i++ {
		_, _ = cb.Execute(func() (interface{}, error) {
			return nil, testErr
		})
	}
	if cb.State() != StateClosed {
		t.Errorf("expected state=closed after interrupted failure run, got %v", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenProbeSuccessCloses(t *testing.T) {
	cfg := Config{
		Name:             "test-circuit",
		FailureThreshold: 3,
		RecoveryTimeout:  100 * time.Millisecond, // Short timeout for testing
	}
	cb := New(cfg)

	testErr := errors.New("test error")
	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(func() (interface{}, error) {
			return nil, testErr
		})
	}
	if cb.State() != StateOpen {
		t.Fatalf("circuit should be open, got %v", cb.State())
	}

	// A call before the cooldown elapses is still rejected.
	_, err := cb.Execute(func() (interface{}, error) {
		t.Error("function should not be called before recovery timeout")
		return nil, nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen before timeout, got %v", err)
	}

	// Wait out the cooldown: the next call runs as the half-open probe.
	time.Sleep(150 * time.Millisecond)

	invoked := false
	result, err := cb.Execute(func() (interface{}, error) {
		invoked = true
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("expected probe to succeed, got %v", err)
	}
	if !invoked {
		t.Fatal("expected probe to invoke the operation")
	}
	if result != "recovered" {
		t.Errorf("expected 'recovered', got %v", result)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected state=closed after successful probe, got %v", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	cfg := Config{
		Name:             "test-circuit",
		FailureThreshold: 3,
		RecoveryTimeout:  100 * time.Millisecond,
	}
	cb := New(cfg)

	testErr := errors.New("test error")
	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(func() (interface{}, error) {
			return nil, testErr
		})
	}

	time.Sleep(150 * time.Millisecond)

	_, err := cb.Execute(func() (interface{}, error) {
		return nil, testErr
	})
	if err != testErr {
		t.Fatalf("expected probe to surface the operation error, got %v", err)
	}

	if cb.State() != StateOpen {
		t.Errorf("expected state=open after failed probe, got %v", cb.State())
	}
	_, err = cb.Execute(func() (interface{}, error) {
		t.Error("function should not be called after failed probe")
		return nil, nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen, got %v", err)
	}
}

func TestCircuitBreaker_SingleProbeWhileHalfOpen(t *testing.T) {
	cfg := Config{
		Name:             "test-circuit",
		FailureThreshold: 3,
		RecoveryTimeout:  100 * time.Millisecond,
	}
	cb := New(cfg)

	testErr := errors.New("test error")
	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(func() (interface{}, error) {
			return nil, testErr
		})
	}

	time.Sleep(150 * time.Millisecond)

	// Hold the single probe slot open, then race a second call against it.
	probeStarted := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = cb.Execute(func() (interface{}, error) {
			close(probeStarted)
			<-release
			return "ok", nil
		})
	}()

	<-probeStarted
	_, err := cb.Execute(func() (interface{}, error) {
		t.Error("second call must not run while the probe is in flight")
		return nil, nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen for call racing the probe, got %v", err)
	}

	close(release)
	wg.Wait()

	if cb.State() != StateClosed {
		t.Errorf("expected state=closed after successful probe, got %v", cb.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateHalfOpen, "half-open"},
		{StateOpen, "open"},
		{State(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestState_MarshalJSON(t *testing.T) {
	b, err := StateHalfOpen.MarshalJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != `"half-open"` {
		t.Errorf("expected %q, got %q", `"half-open"`, string(b))
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("test")

	if cfg.Name != "test" {
		t.Errorf("expected Name='test', got %q", cfg.Name)
	}
	if cfg.FailureThreshold != 5 {
		t.Errorf("expected FailureThreshold=5, got %d", cfg.FailureThreshold)
	}
	if cfg.RecoveryTimeout != 30*time.Second {
		t.Errorf("expected RecoveryTimeout=30s, got %v", cfg.RecoveryTimeout)
	}
}

func TestUpstreamConfigs(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantName  string
		threshold uint32
	}{
		{"market data", MarketDataConfig(), "market-data", 5},
		{"news feed", NewsFeedConfig(), "news-feed", 5},
		{"article fetch", ArticleFetchConfig(), "article-fetch", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cfg.Name != tt.wantName {
				t.Errorf("expected Name=%q, got %q", tt.wantName, tt.cfg.Name)
			}
			if tt.cfg.FailureThreshold != tt.threshold {
				t.Errorf("expected FailureThreshold=%d, got %d", tt.threshold, tt.cfg.FailureThreshold)
			}
		})
	}
}
