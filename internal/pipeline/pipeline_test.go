package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"trading-mcp/internal/cache"
	"trading-mcp/internal/resilience/circuitbreaker"
	"trading-mcp/internal/resilience/retry"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func fastRetry(attempts int) retry.Config {
	return retry.Config{
		MaxAttempts:    attempts,
		InitialDelay:   time.Millisecond,
		MaxDelay:       4 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0,
	}
}

func newTestPipeline(threshold uint32, attempts int, opts ...Option) *Pipeline {
	return New(Config{
		Name:          "test",
		CacheCapacity: 10,
		Breaker: circuitbreaker.Config{
			Name:             "test",
			FailureThreshold: threshold,
			RecoveryTimeout:  100 * time.Millisecond,
		},
		Retry: fastRetry(attempts),
	}, opts...)
}

func TestFetchOrCompute_MissThenHit(t *testing.T) {
	p := newTestPipeline(5, 3)
	var calls atomic.Int32

	op := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return "candles", nil
	}

	v, err := p.FetchOrCompute(context.Background(), "k1", time.Minute, op)
	if err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	if v != "candles" {
		t.Errorf("expected candles, got %v", v)
	}

	v, err = p.FetchOrCompute(context.Background(), "k1", time.Minute, op)
	if err != nil {
		t.Fatalf("second fetch failed: %v", err)
	}
	if v != "candles" {
		t.Errorf("expected cached candles, got %v", v)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 operation call, got %d", got)
	}

	stats := p.CacheStats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %d hits %d misses", stats.Hits, stats.Misses)
	}
}

func TestFetchOrCompute_FailureIsNotCached(t *testing.T) {
	p := newTestPipeline(5, 2)
	var calls atomic.Int32

	op := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return nil, errors.New("upstream down")
	}

	_, err := p.FetchOrCompute(context.Background(), "k1", time.Minute, op)
	if !errors.Is(err, retry.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}

	// The failure must not have populated the cache: a second fetch
	// reaches upstream again.
	_, err = p.FetchOrCompute(context.Background(), "k1", time.Minute, op)
	if !errors.Is(err, retry.ErrExhausted) {
		t.Fatalf("expected ErrExhausted on second fetch, got %v", err)
	}
	if got := calls.Load(); got != 4 {
		t.Errorf("expected 4 attempts total, got %d", got)
	}
	if size := p.CacheStats().Size; size != 0 {
		t.Errorf("expected empty cache, got size %d", size)
	}
}

func TestFetchOrCompute_BreakerTripsOnAggregateFailures(t *testing.T) {
	p := newTestPipeline(3, 2)
	var calls atomic.Int32

	op := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return nil, errors.New("upstream down")
	}

	// Each fetch is one aggregate failure regardless of retry attempts.
	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("k%d", i)
		if _, err := p.FetchOrCompute(context.Background(), key, time.Minute, op); err == nil {
			t.Fatalf("fetch %d should have failed", i)
		}
	}
	if got := calls.Load(); got != 6 {
		t.Fatalf("expected 6 attempts before trip, got %d", got)
	}

	stats := p.BreakerStats()
	if stats.State != circuitbreaker.StateOpen {
		t.Fatalf("expected open breaker, got %v", stats.State)
	}
	if stats.FailureCount != 3 {
		t.Errorf("expected failure count 3, got %d", stats.FailureCount)
	}

	// The open breaker rejects without reaching upstream.
	_, err := p.FetchOrCompute(context.Background(), "k-rejected", time.Minute, op)
	if !errors.Is(err, circuitbreaker.ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	if got := calls.Load(); got != 6 {
		t.Errorf("rejected fetch must not invoke the operation, got %d calls", got)
	}
}

func TestFetchOrCompute_AggregateSuccessAfterRetries(t *testing.T) {
	p := newTestPipeline(5, 3)
	var calls atomic.Int32

	op := func(ctx context.Context) (any, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("transient")
		}
		return 42, nil
	}

	v, err := p.FetchOrCompute(context.Background(), "k1", time.Minute, op)
	if err != nil {
		t.Fatalf("fetch should have succeeded on third attempt: %v", err)
	}
	if v != 42 {
		t.Errorf("expected 42, got %v", v)
	}

	// The breaker saw a single successful outcome, not two failures.
	if count := p.BreakerStats().FailureCount; count != 0 {
		t.Errorf("expected failure count 0, got %d", count)
	}
}

func TestFetchOrCompute_CacheHitServedWhileOpen(t *testing.T) {
	p := newTestPipeline(3, 1)

	warm := func(ctx context.Context) (any, error) { return "warm", nil }
	fail := func(ctx context.Context) (any, error) { return nil, errors.New("down") }

	if _, err := p.FetchOrCompute(context.Background(), "warm-key", time.Minute, warm); err != nil {
		t.Fatalf("warmup fetch failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("fail%d", i)
		if _, err := p.FetchOrCompute(context.Background(), key, time.Minute, fail); err == nil {
			t.Fatal("expected failure")
		}
	}
	if state := p.BreakerStats().State; state != circuitbreaker.StateOpen {
		t.Fatalf("expected open breaker, got %v", state)
	}

	// Cached data stays available while the breaker is open.
	v, err := p.FetchOrCompute(context.Background(), "warm-key", time.Minute, fail)
	if err != nil {
		t.Fatalf("cache hit should bypass the open breaker: %v", err)
	}
	if v != "warm" {
		t.Errorf("expected warm, got %v", v)
	}

	// Uncached keys are still rejected.
	if _, err := p.FetchOrCompute(context.Background(), "cold-key", time.Minute, fail); !errors.Is(err, circuitbreaker.ErrOpen) {
		t.Errorf("expected ErrOpen for uncached key, got %v", err)
	}
}

func TestFetchOrCompute_CanceledContextBeforeDispatch(t *testing.T) {
	p := newTestPipeline(5, 3)
	var calls atomic.Int32

	op := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return "never", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.FetchOrCompute(ctx, "k1", time.Minute, op)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := calls.Load(); got != 0 {
		t.Errorf("operation must not run for a canceled caller, got %d calls", got)
	}
	if count := p.BreakerStats().FailureCount; count != 0 {
		t.Errorf("caller cancellation must not count against the breaker, got %d", count)
	}
}

func TestFetchOrCompute_ExpiredEntryRecomputed(t *testing.T) {
	clock := newFakeClock()
	p := newTestPipeline(5, 3, WithClock(clock.now))
	var calls atomic.Int32

	op := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return calls.Load(), nil
	}

	v, err := p.FetchOrCompute(context.Background(), "k1", 300*time.Second, op)
	if err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	if v != int32(1) {
		t.Errorf("expected 1, got %v", v)
	}

	clock.advance(301 * time.Second)

	v, err = p.FetchOrCompute(context.Background(), "k1", 300*time.Second, op)
	if err != nil {
		t.Fatalf("fetch after expiry failed: %v", err)
	}
	if v != int32(2) {
		t.Errorf("expected recomputed value 2, got %v", v)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 operation calls, got %d", got)
	}
}

func TestFetchOrCompute_CoalescesConcurrentMisses(t *testing.T) {
	p := New(Config{
		Name:          "coalesce-test",
		CacheCapacity: 10,
		Breaker:       circuitbreaker.DefaultConfig("coalesce-test"),
		Retry:         fastRetry(3),
		Coalesce:      true,
	})

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	op := func(ctx context.Context) (any, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return "shared", nil
	}

	const workers = 5
	results := make([]any, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = p.FetchOrCompute(context.Background(), "k1", time.Minute, op)
		}(i)
	}

	<-started
	// Give the remaining workers time to pile up behind the flight.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d failed: %v", i, errs[i])
		}
		if results[i] != "shared" {
			t.Errorf("worker %d got %v, expected shared", i, results[i])
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected a single upstream call, got %d", got)
	}
}

func TestFetch_TypedResult(t *testing.T) {
	p := newTestPipeline(5, 3)

	v, err := Fetch(context.Background(), p, "k1", time.Minute, func(ctx context.Context) (string, error) {
		return "typed", nil
	})
	if err != nil {
		t.Fatalf("typed fetch failed: %v", err)
	}
	if v != "typed" {
		t.Errorf("expected typed, got %q", v)
	}

	// Errors pass through with the zero value.
	_, err = Fetch(context.Background(), p, "k2", time.Minute, func(ctx context.Context) (string, error) {
		return "", errors.New("down")
	})
	if !errors.Is(err, retry.ErrExhausted) {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
}

func TestStats_CombinedSnapshot(t *testing.T) {
	p := newTestPipeline(5, 3)

	if _, err := p.FetchOrCompute(context.Background(), "k1", time.Minute, func(ctx context.Context) (any, error) {
		return "v", nil
	}); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	stats := p.Stats()
	if stats.Pipeline != "test" {
		t.Errorf("expected pipeline name test, got %q", stats.Pipeline)
	}
	if stats.Cache.Size != 1 {
		t.Errorf("expected cache size 1, got %d", stats.Cache.Size)
	}
	if stats.Breaker.State != circuitbreaker.StateClosed {
		t.Errorf("expected closed breaker, got %v", stats.Breaker.State)
	}
}

func TestNew_Defaults(t *testing.T) {
	p := New(Config{Name: "defaults"})

	if p.Name() != "defaults" {
		t.Errorf("expected name defaults, got %q", p.Name())
	}
	if got := p.CacheStats().Capacity; got != cache.DefaultCapacity {
		t.Errorf("expected default capacity %d, got %d", cache.DefaultCapacity, got)
	}
	if state := p.BreakerStats().State; state != circuitbreaker.StateClosed {
		t.Errorf("expected closed breaker, got %v", state)
	}
}
