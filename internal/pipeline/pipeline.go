// Package pipeline composes the read-through cache, circuit breaker, and
// retry layers into a single fetch path for upstream data.
//
// Each pipeline owns one cache and one circuit breaker. A fetch consults the
// cache first; only on a miss does the request pass through the breaker, and
// only inside a single breaker-guarded call does the retry loop run. The
// breaker therefore observes one outcome per logical fetch, no matter how
// many attempts the retry loop consumed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"trading-mcp/internal/cache"
	"trading-mcp/internal/observability/metrics"
	"trading-mcp/internal/resilience/circuitbreaker"
	"trading-mcp/internal/resilience/retry"
)

// Operation computes a value when the cache cannot serve it.
// Implementations should honor ctx cancellation.
type Operation func(ctx context.Context) (any, error)

// Config holds the settings for one fetch pipeline.
type Config struct {
	// Name identifies the pipeline in logs, metrics, and stats output.
	Name string

	// CacheCapacity is the maximum number of cached entries.
	// Non-positive values fall back to cache.DefaultCapacity.
	CacheCapacity int

	// Breaker configures the pipeline's circuit breaker. An empty
	// Breaker.Name inherits the pipeline name.
	Breaker circuitbreaker.Config

	// Retry configures the backoff loop run inside the breaker.
	// A zero MaxAttempts falls back to retry.DefaultConfig.
	Retry retry.Config

	// Coalesce collapses concurrent fetches for the same key into a
	// single upstream call whose result is shared by all waiters.
	Coalesce bool
}

// Stats aggregates cache and breaker statistics for one pipeline.
type Stats struct {
	Pipeline string               `json:"pipeline"`
	Cache    cache.Stats          `json:"cache"`
	Breaker  circuitbreaker.Stats `json:"circuit_breaker"`
}

// Pipeline is a resilient fetch path in front of one upstream concern.
// It is safe for concurrent use.
type Pipeline struct {
	name     string
	cache    *cache.Cache
	breaker  *circuitbreaker.CircuitBreaker
	retryCfg retry.Config
	coalesce bool
	group    singleflight.Group
	logger   *slog.Logger
	clock    func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the time source used for cache expiry. Tests use
// this to control TTL behavior deterministically.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.clock = now
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a pipeline from cfg.
func New(cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		name:     cfg.Name,
		retryCfg: cfg.Retry,
		coalesce: cfg.Coalesce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	var cacheOpts []cache.Option
	if p.clock != nil {
		cacheOpts = append(cacheOpts, cache.WithClock(p.clock))
	}
	p.cache = cache.New(cfg.CacheCapacity, cacheOpts...)

	breakerCfg := cfg.Breaker
	if breakerCfg.Name == "" {
		breakerCfg.Name = cfg.Name
	}
	p.breaker = circuitbreaker.New(breakerCfg)

	if p.retryCfg.MaxAttempts <= 0 {
		p.retryCfg = retry.DefaultConfig()
	}
	return p
}

// FetchOrCompute returns the cached value for key when present and fresh.
// On a miss it runs op through the circuit breaker and retry loop, caches
// a successful result for ttl, and returns it.
//
// Errors are inspectable with errors.Is: circuitbreaker.ErrOpen when the
// breaker rejected the call, retry.ErrExhausted when every attempt failed,
// and the context error when the caller gave up. Failed operations never
// populate the cache.
func (p *Pipeline) FetchOrCompute(ctx context.Context, key string, ttl time.Duration, op Operation) (any, error) {
	if v, ok := p.cache.Get(key); ok {
		metrics.RecordCacheHit(p.name)
		p.logger.Debug("cache hit",
			slog.String("pipeline", p.name),
			slog.String("key", key))
		return v, nil
	}
	metrics.RecordCacheMiss(p.name)

	// A caller that already gave up must not count against the breaker.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.coalesce {
		v, err, shared := p.group.Do(key, func() (any, error) {
			return p.compute(ctx, key, ttl, op)
		})
		if shared && err == nil {
			p.logger.Debug("coalesced fetch",
				slog.String("pipeline", p.name),
				slog.String("key", key))
		}
		return v, err
	}
	return p.compute(ctx, key, ttl, op)
}

func (p *Pipeline) compute(ctx context.Context, key string, ttl time.Duration, op Operation) (any, error) {
	start := time.Now()
	result, err := p.breaker.Execute(func() (interface{}, error) {
		var value any
		retryErr := retry.WithBackoff(ctx, p.retryCfg, func() error {
			v, opErr := op(ctx)
			if opErr != nil {
				return opErr
			}
			value = v
			return nil
		})
		if retryErr != nil {
			return nil, retryErr
		}
		return value, nil
	})
	metrics.UpdateBreakerState(p.name, int(p.breaker.State()))

	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			metrics.RecordBreakerRejection(p.name)
			p.logger.Warn("fetch rejected by open circuit",
				slog.String("pipeline", p.name),
				slog.String("key", key))
			return nil, err
		}
		p.logger.Warn("fetch failed",
			slog.String("pipeline", p.name),
			slog.String("key", key),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("error", err.Error()))
		return nil, err
	}

	p.cache.Put(key, result, ttl)
	metrics.UpdateCacheSize(p.name, p.cache.Len())
	p.logger.Debug("fetch succeeded",
		slog.String("pipeline", p.name),
		slog.String("key", key),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return result, nil
}

// Fetch runs p.FetchOrCompute and asserts the result to T. Mixing value
// types under one key is a programming error and is reported as such.
func Fetch[T any](ctx context.Context, p *Pipeline, key string, ttl time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := p.FetchOrCompute(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return op(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("pipeline %s: unexpected value type %T for key %q", p.name, v, key)
	}
	return typed, nil
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string {
	return p.name
}

// CacheStats returns a snapshot of the pipeline's cache counters.
func (p *Pipeline) CacheStats() cache.Stats {
	return p.cache.Stats()
}

// BreakerStats returns a snapshot of the pipeline's breaker state.
func (p *Pipeline) BreakerStats() circuitbreaker.Stats {
	return p.breaker.Stats()
}

// Stats returns the combined cache and breaker snapshot used by the
// health endpoint and the get_pipeline_stats tool.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Pipeline: p.name,
		Cache:    p.cache.Stats(),
		Breaker:  p.breaker.Stats(),
	}
}
