// Package cache is the cross-transaction memoisation layer.
//
// The cache is advisory: backend failures are logged and served as misses so
// a transaction falls through to a live lookup instead of failing. On a miss,
// GetOrCompute runs the compute function once per key per process; concurrent
// callers for the same key wait on that single run.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"xhuma/pkg/platform/circuit"
	"xhuma/pkg/platform/sentinel"
)

// Store is the backend contract: atomic single-key get and set-with-ttl.
// Get returns sentinel.ErrNotFound on a miss.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ComputeFunc produces the value for a missing key. It receives a context that
// is not cancelled when the original caller goes away.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// Cache wraps a Store with outage handling and single-flight computation.
type Cache struct {
	store          Store
	group          singleflight.Group
	breaker        *circuit.Breaker
	logger         *slog.Logger
	metrics        *Metrics
	computeTimeout time.Duration
}

type Option func(*Cache)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithComputeTimeout bounds a detached compute run.
func WithComputeTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.computeTimeout = d
		}
	}
}

func New(store Store, opts ...Option) (*Cache, error) {
	if store == nil {
		return nil, errors.New("cache store is required")
	}
	c := &Cache{
		store:          store,
		breaker:        circuit.New("cache"),
		logger:         slog.Default(),
		computeTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the live value for key. Backend errors are reported as a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	kind := string(KindOf(key))
	v, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		c.recordSuccess(ctx)
		if c.metrics != nil {
			c.metrics.Hits.WithLabelValues(kind).Inc()
		}
		return v, true
	case errors.Is(err, sentinel.ErrNotFound):
		c.recordSuccess(ctx)
	default:
		c.recordFailure(ctx, key, "get", err)
	}
	if c.metrics != nil {
		c.metrics.Misses.WithLabelValues(kind).Inc()
	}
	return nil, false
}

// Set stores value with ttl. Failures are logged and swallowed.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.store.Set(ctx, key, value, ttl); err != nil {
		c.recordFailure(ctx, key, "set", err)
		return
	}
	c.recordSuccess(ctx)
}

type flightResult struct {
	value []byte
	hit   bool
}

// GetOrCompute returns the cached value for key or computes, stores and
// returns it. hit reports whether the value came from the store.
//
// If ctx is cancelled while the computation is in flight, GetOrCompute
// returns ctx.Err() but the computation continues and its result is cached.
// A compute error is returned to every waiter and nothing is stored.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, fn ComputeFunc) ([]byte, bool, error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, true, nil
	}
	return c.compute(ctx, key, ttl, fn, true)
}

func (c *Cache) compute(ctx context.Context, key string, ttl time.Duration, fn ComputeFunc, recheck bool) ([]byte, bool, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.computeTimeout)
		defer cancel()

		// A flight that finished just before this one started may have
		// filled the key.
		if recheck {
			if v, err := c.store.Get(runCtx, key); err == nil {
				return flightResult{value: v, hit: true}, nil
			}
		}

		start := time.Now()
		v, err := fn(runCtx)
		if c.metrics != nil {
			c.metrics.ComputeDuration.WithLabelValues(string(KindOf(key))).Observe(time.Since(start).Seconds())
		}
		if err != nil {
			return nil, err
		}
		c.Set(runCtx, key, v, ttl)
		return flightResult{value: v}, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		r := res.Val.(flightResult)
		return r.value, r.hit, nil
	}
}

func (c *Cache) recordFailure(ctx context.Context, key, op string, err error) {
	if c.metrics != nil {
		c.metrics.Errors.WithLabelValues(string(KindOf(key)), op).Inc()
	}
	_, change := c.breaker.RecordFailure()
	if change.Opened {
		if c.metrics != nil {
			c.metrics.Degraded.Set(1)
		}
		c.logger.ErrorContext(ctx, "cache backend degraded, serving misses", "error", err)
		return
	}
	c.logger.WarnContext(ctx, "cache operation failed", "op", op, "kind", KindOf(key), "error", err)
}

func (c *Cache) recordSuccess(ctx context.Context) {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		if c.metrics != nil {
			c.metrics.Degraded.Set(0)
		}
		c.logger.InfoContext(ctx, "cache backend recovered")
	}
}

// Degraded reports whether the backend is currently failing.
func (c *Cache) Degraded() bool { return c.breaker.IsOpen() }

// GetJSON decodes a cached JSON value. A value that no longer decodes is
// reported as a miss.
func GetJSON[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var out T
	raw, ok := c.Get(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.WarnContext(ctx, "discarding undecodable cache entry", "kind", KindOf(key), "error", err)
		var zero T
		return zero, false
	}
	return out, true
}

// SetJSON encodes and stores v.
func SetJSON[T any](ctx context.Context, c *Cache, key string, v T, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.Set(ctx, key, raw, ttl)
	return nil
}

// GetOrComputeJSON is GetOrCompute for JSON-encoded values.
func GetOrComputeJSON[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fn func(ctx context.Context) (T, error)) (T, bool, error) {
	var out T
	compute := func(ctx context.Context) ([]byte, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	}

	raw, hit, err := c.GetOrCompute(ctx, key, ttl, compute)
	if err != nil {
		return out, false, err
	}
	decodeErr := json.Unmarshal(raw, &out)
	if decodeErr == nil {
		return out, hit, nil
	}
	if !hit {
		var zero T
		return zero, false, decodeErr
	}
	c.logger.WarnContext(ctx, "recomputing undecodable cache entry", "kind", KindOf(key), "error", decodeErr)

	var fresh T
	raw, _, err = c.compute(ctx, key, ttl, compute, false)
	if err != nil {
		return fresh, false, err
	}
	if err := json.Unmarshal(raw, &fresh); err != nil {
		var zero T
		return zero, false, err
	}
	return fresh, false, nil
}
