package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"xhuma/pkg/domain"
	"xhuma/pkg/platform/sentinel"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// failingStore simulates an unreachable backend.
type failingStore struct {
	gets atomic.Int32
	sets atomic.Int32
}

func (s *failingStore) Get(context.Context, string) ([]byte, error) {
	s.gets.Add(1)
	return nil, sentinel.ErrUnavailable
}

func (s *failingStore) Set(context.Context, string, []byte, time.Duration) error {
	s.sets.Add(1)
	return sentinel.ErrUnavailable
}

type CacheSuite struct {
	suite.Suite
	clock   *fakeClock
	store   *MemoryStore
	metrics *Metrics
	cache   *Cache
	key     string
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) SetupTest() {
	s.clock = &fakeClock{now: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
	s.store = NewMemoryStore(WithMemoryClock(s.clock.Now))
	s.metrics = NewMetrics(prometheus.NewRegistry())
	var err error
	s.cache, err = New(s.store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
	s.key = DocumentKey(domain.MustNHSNumber("9000000009"))
}

func (s *CacheSuite) counting(value string, calls *atomic.Int32) ComputeFunc {
	return func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte(value), nil
	}
}

// =============================================================================
// Single-flight Tests
// =============================================================================

func (s *CacheSuite) TestGetOrCompute_ConcurrentColdKeyComputesOnce() {
	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte("<ClinicalDocument/>"), nil
	}

	const callers = 32
	var wg sync.WaitGroup
	results := make([][]byte, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = s.cache.GetOrCompute(context.Background(), s.key, time.Hour, fn)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	s.Equal(int32(1), calls.Load())
	for i := range callers {
		s.Require().NoError(errs[i])
		s.Equal("<ClinicalDocument/>", string(results[i]))
	}
}

func (s *CacheSuite) TestGetOrCompute_HitSkipsCompute() {
	var calls atomic.Int32
	_, hit, err := s.cache.GetOrCompute(context.Background(), s.key, time.Hour, s.counting("v1", &calls))
	s.Require().NoError(err)
	s.False(hit)

	v, hit, err := s.cache.GetOrCompute(context.Background(), s.key, time.Hour, s.counting("v2", &calls))
	s.Require().NoError(err)
	s.True(hit)
	s.Equal("v1", string(v))
	s.Equal(int32(1), calls.Load())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Hits.WithLabelValues(string(KindClinicalDocument))))
}

func (s *CacheSuite) TestGetOrCompute_ErrorIsNotCached() {
	boom := errors.New("upstream timeout")
	_, _, err := s.cache.GetOrCompute(context.Background(), s.key, time.Hour, func(context.Context) ([]byte, error) {
		return nil, boom
	})
	s.ErrorIs(err, boom)
	s.Equal(0, s.store.Len())

	var calls atomic.Int32
	v, hit, err := s.cache.GetOrCompute(context.Background(), s.key, time.Hour, s.counting("ok", &calls))
	s.Require().NoError(err)
	s.False(hit)
	s.Equal("ok", string(v))
	s.Equal(int32(1), calls.Load())
}

// =============================================================================
// TTL Tests
// =============================================================================

func (s *CacheSuite) TestTTLBoundary() {
	var calls atomic.Int32
	ctx := context.Background()
	_, _, err := s.cache.GetOrCompute(ctx, s.key, time.Hour, s.counting("first", &calls))
	s.Require().NoError(err)

	s.Run("before expiry returns cached value", func() {
		s.clock.Advance(time.Hour - time.Nanosecond)
		v, hit, err := s.cache.GetOrCompute(ctx, s.key, time.Hour, s.counting("second", &calls))
		s.Require().NoError(err)
		s.True(hit)
		s.Equal("first", string(v))
		s.Equal(int32(1), calls.Load())
	})

	s.Run("at expiry is a miss and recomputes", func() {
		s.clock.Advance(time.Nanosecond)
		v, hit, err := s.cache.GetOrCompute(ctx, s.key, time.Hour, s.counting("second", &calls))
		s.Require().NoError(err)
		s.False(hit)
		s.Equal("second", string(v))
		s.Equal(int32(2), calls.Load())
	})
}

func (s *CacheSuite) TestSetRejectsNonPositiveTTL() {
	s.ErrorIs(s.store.Set(context.Background(), s.key, []byte("x"), 0), sentinel.ErrInvalidState)
}

// =============================================================================
// Degradation Tests
// =============================================================================

func (s *CacheSuite) TestBackendOutageDegradesToMiss() {
	failing := &failingStore{}
	c, err := New(failing, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), WithMetrics(s.metrics))
	s.Require().NoError(err)

	var calls atomic.Int32
	for range 6 {
		v, hit, err := c.GetOrCompute(context.Background(), s.key, time.Hour, s.counting("live", &calls))
		s.Require().NoError(err)
		s.False(hit)
		s.Equal("live", string(v))
	}
	s.Equal(int32(6), calls.Load())
	s.True(c.Degraded())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Degraded))

	_, found := c.Get(context.Background(), s.key)
	s.False(found)
}

// =============================================================================
// Cancellation Tests
// =============================================================================

func (s *CacheSuite) TestCancelledCallerStillPopulatesCache() {
	started := make(chan struct{})
	release := make(chan struct{})
	fn := func(ctx context.Context) ([]byte, error) {
		close(started)
		<-release
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return []byte("late"), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := s.cache.GetOrCompute(ctx, s.key, time.Hour, fn)
		done <- err
	}()

	<-started
	cancel()
	s.ErrorIs(<-done, context.Canceled)

	close(release)
	s.Eventually(func() bool {
		v, ok := s.cache.Get(context.Background(), s.key)
		return ok && string(v) == "late"
	}, time.Second, 5*time.Millisecond)
}

// =============================================================================
// JSON Helper Tests
// =============================================================================

type routing struct {
	ASID     string `json:"asid"`
	Endpoint string `json:"endpoint"`
}

func (s *CacheSuite) TestGetOrComputeJSON() {
	ctx := context.Background()
	key := RoutingKey(domain.MustNHSNumber("9000000009"), "a20047")
	s.Equal("routing:9000000009:A20047", key)

	var calls atomic.Int32
	fn := func(context.Context) (routing, error) {
		calls.Add(1)
		return routing{ASID: "918999198738", Endpoint: "https://gp.example/fhir"}, nil
	}

	got, hit, err := GetOrComputeJSON(ctx, s.cache, key, time.Hour, fn)
	s.Require().NoError(err)
	s.False(hit)
	s.Equal("918999198738", got.ASID)

	got, hit, err = GetOrComputeJSON(ctx, s.cache, key, time.Hour, fn)
	s.Require().NoError(err)
	s.True(hit)
	s.Equal("https://gp.example/fhir", got.Endpoint)
	s.Equal(int32(1), calls.Load())

	s.Run("undecodable entry is recomputed", func() {
		s.Require().NoError(s.store.Set(ctx, key, []byte("{not json"), time.Hour))
		got, hit, err := GetOrComputeJSON(ctx, s.cache, key, time.Hour, fn)
		s.Require().NoError(err)
		s.False(hit)
		s.Equal("918999198738", got.ASID)
		s.Equal(int32(2), calls.Load())

		cached, ok := GetJSON[routing](ctx, s.cache, key)
		s.True(ok)
		s.Equal(got, cached)
	})
}

func (s *CacheSuite) TestKindOf() {
	s.Equal(KindRoutingInfo, KindOf("routing:9000000009:A1"))
	s.Equal(KindClinicalDocument, KindOf("document:9000000009"))
	s.Equal(KindPatientAlias, KindOf(AliasKey("ceid-1")))
}

func TestNew_RequiresStore(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for nil store")
	}
}
