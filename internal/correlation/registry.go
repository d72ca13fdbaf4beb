// Package correlation maps each (patient, family) to one stable correlation
// identifier shared by the ITI-47, ITI-38 and ITI-39 transactions, and records
// how far that patient has progressed through them.
package correlation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"xhuma/internal/correlation/models"
	"xhuma/pkg/domain"
	dErrors "xhuma/pkg/domain-errors"
	"xhuma/pkg/platform/sentinel"
)

// Store is the persistence contract. Implementations live in the store
// subpackage; each operation is atomic on the single mapping key.
type Store interface {
	Get(ctx context.Context, patient domain.NHSNumber, family models.Family) (*models.Mapping, error)
	InsertIfAbsent(ctx context.Context, m *models.Mapping) (*models.Mapping, bool, error)
	Touch(ctx context.Context, patient domain.NHSNumber, family models.Family, at time.Time) error
	Advance(ctx context.Context, patient domain.NHSNumber, family models.Family, state models.State, organization string) (*models.Mapping, error)
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Mapping *models.Mapping
	IsNew   bool
}

type Registry struct {
	store         Store
	logger        *slog.Logger
	now           func() time.Time
	newID         func() string
	retryAttempts int
	retryDelay    time.Duration
	touchTimeout  time.Duration
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithIDGenerator overrides uuid.NewString for new correlation ids.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) { r.newID = fn }
}

// WithRetry bounds store retries. attempts includes the first call.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(r *Registry) {
		if attempts > 0 {
			r.retryAttempts = attempts
		}
		if delay > 0 {
			r.retryDelay = delay
		}
	}
}

// WithTouchTimeout bounds the background usage update.
func WithTouchTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.touchTimeout = d
		}
	}
}

func New(store Store, opts ...Option) (*Registry, error) {
	if store == nil {
		return nil, errors.New("correlation store is required")
	}
	r := &Registry{
		store:         store,
		logger:        slog.Default(),
		now:           time.Now,
		newID:         uuid.NewString,
		retryAttempts: 3,
		retryDelay:    100 * time.Millisecond,
		touchTimeout:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve returns the mapping for (patient, family), creating it when absent.
// Callers must have validated patient.
//
// A new mapping starts at StateDemographicsResolved with use_count 1: only the
// demographics transaction creates mappings, and it does so after the lookup
// succeeded. Concurrent first calls all receive the single stored mapping.
func (r *Registry) Resolve(ctx context.Context, patient domain.NHSNumber, family models.Family) (Resolution, error) {
	existing, err := r.get(ctx, patient, family)
	if err == nil {
		return Resolution{Mapping: r.touch(ctx, existing)}, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return Resolution{}, err
	}

	now := r.now().UTC()
	candidate := &models.Mapping{
		PatientID:     patient,
		Family:        family,
		CorrelationID: r.newID(),
		FirstSeen:     now,
		LastUsed:      now,
		UseCount:      1,
		State:         models.StateDemographicsResolved,
	}
	type insertResult struct {
		mapping  *models.Mapping
		inserted bool
	}
	res, err := withRetry(ctx, r, "insert", func(ctx context.Context) (insertResult, error) {
		m, inserted, err := r.store.InsertIfAbsent(ctx, candidate)
		return insertResult{m, inserted}, err
	})
	if err != nil {
		return Resolution{}, err
	}
	if !res.inserted {
		// Lost the race; the winner already counted its own use.
		return Resolution{Mapping: r.touch(ctx, res.mapping)}, nil
	}
	r.logger.InfoContext(ctx, "correlation created",
		"correlation_id", res.mapping.CorrelationID,
		"patient_id", patient.Redacted(),
		"family", string(family),
	)
	return Resolution{Mapping: res.mapping, IsNew: true}, nil
}

// ResolveExisting returns the mapping without creating one. A missing mapping
// is sentinel.ErrNotFound.
func (r *Registry) ResolveExisting(ctx context.Context, patient domain.NHSNumber, family models.Family) (*models.Mapping, error) {
	m, err := r.get(ctx, patient, family)
	if err != nil {
		return nil, err
	}
	return r.touch(ctx, m), nil
}

// Advance raises the mapping state to at least state and records a non-empty
// organization.
func (r *Registry) Advance(ctx context.Context, patient domain.NHSNumber, family models.Family, state models.State, organization string) (*models.Mapping, error) {
	if !state.IsValid() {
		return nil, dErrors.New(dErrors.CodeInternal, "invalid correlation state "+state.String())
	}
	return withRetry(ctx, r, "advance", func(ctx context.Context) (*models.Mapping, error) {
		return r.store.Advance(ctx, patient, family, state, organization)
	})
}

func (r *Registry) get(ctx context.Context, patient domain.NHSNumber, family models.Family) (*models.Mapping, error) {
	return withRetry(ctx, r, "get", func(ctx context.Context) (*models.Mapping, error) {
		return r.store.Get(ctx, patient, family)
	})
}

// touch records a reuse without blocking the caller. The returned copy
// reflects the increment the store will apply.
func (r *Registry) touch(ctx context.Context, m *models.Mapping) *models.Mapping {
	at := r.now().UTC()
	go func() {
		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.touchTimeout)
		defer cancel()
		if err := r.store.Touch(tctx, m.PatientID, m.Family, at); err != nil {
			r.logger.WarnContext(tctx, "correlation usage update failed",
				"correlation_id", m.CorrelationID,
				"error", err,
			)
		}
	}()
	cp := *m
	cp.UseCount++
	if at.After(cp.LastUsed) {
		cp.LastUsed = at
	}
	return &cp
}

// withRetry retries store failures other than not-found and corrupt records.
// Exhausting the budget is registry_unavailable.
func withRetry[T any](ctx context.Context, r *Registry, op string, fn func(context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.retryDelay
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.retryAttempts-1)), ctx)

	v, err := backoff.RetryWithData(func() (T, error) {
		v, err := fn(ctx)
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrInvalidState) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, policy)
	if err == nil || errors.Is(err, sentinel.ErrNotFound) {
		return v, err
	}
	var zero T
	if errors.Is(err, sentinel.ErrInvalidState) {
		r.logger.ErrorContext(ctx, "correlation mapping is corrupt", "op", op, "error", err)
		return zero, dErrors.Wrap(err, dErrors.CodeInternal, "correlation mapping is corrupt")
	}
	if ctx.Err() != nil {
		return zero, ctx.Err()
	}
	r.logger.ErrorContext(ctx, "correlation registry unavailable", "op", op, "error", err)
	return zero, dErrors.Wrap(err, dErrors.CodeRegistryUnavailable, "correlation registry unavailable")
}
