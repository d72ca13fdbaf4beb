package adapters

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Policy bounds retries of a single adapter operation.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// CallTimeout is the hard limit for one attempt.
	CallTimeout time.Duration
}

// DefaultPolicy is three attempts with 200ms doubling to at most 2s.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second, CallTimeout: 10 * time.Second}
}

// Delays returns the wait before each retry. The schedule has no jitter.
func (p Policy) Delays() []time.Duration {
	b := p.backOff()
	out := make([]time.Duration, 0, max(p.MaxAttempts-1, 0))
	for range p.MaxAttempts - 1 {
		out = append(out, b.NextBackOff())
	}
	return out
}

func (p Policy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Runner applies a Policy and records metrics and spans per attempt.
type Runner struct {
	policy  Policy
	metrics *Metrics
	tracer  trace.Tracer
}

type RunnerOption func(*Runner)

func WithMetrics(m *Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

func NewRunner(p Policy, opts ...RunnerOption) *Runner {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	r := &Runner{policy: p, tracer: otel.Tracer("xhuma/adapters")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Policy() Policy { return r.policy }

// Run calls fn until it succeeds, fails with a non-retryable error, the
// attempt budget is spent or ctx ends. It returns the number of attempts made.
// Errors that are not *Error are treated as non-retryable.
func Run[T any](ctx context.Context, r *Runner, adapter string, fn func(context.Context) (T, error)) (T, int, error) {
	attempts := 0
	b := backoff.WithContext(backoff.WithMaxRetries(r.policy.backOff(), uint64(r.policy.MaxAttempts-1)), ctx)

	v, err := backoff.RetryWithData(func() (T, error) {
		attempts++
		v, err := attempt(ctx, r, adapter, attempts, fn)
		if err != nil && !IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, b)
	if err != nil && ctx.Err() != nil {
		if _, ok := KindOf(err); !ok {
			err = FromTransport(adapter, ctx.Err())
		}
	}
	return v, attempts, err
}

func attempt[T any](ctx context.Context, r *Runner, adapter string, n int, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := r.tracer.Start(ctx, "adapter."+adapter,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("adapter", adapter),
			attribute.Int("attempt", n),
		),
	)
	defer span.End()

	if r.policy.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.policy.CallTimeout)
		defer cancel()
	}

	start := time.Now()
	v, err := fn(ctx)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if kind, ok := KindOf(err); ok {
			outcome = string(kind)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	if r.metrics != nil {
		r.metrics.Calls.WithLabelValues(adapter, outcome).Inc()
		r.metrics.Duration.WithLabelValues(adapter).Observe(time.Since(start).Seconds())
	}
	return v, err
}
