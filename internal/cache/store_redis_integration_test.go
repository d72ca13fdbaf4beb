//go:build integration

package cache_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"xhuma/internal/cache"
	"xhuma/pkg/domain"
	"xhuma/pkg/platform/sentinel"
	"xhuma/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *cache.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = cache.NewRedisStore(s.redis.Client, cache.WithKeyPrefix("test:"))
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestMissIsNotFound() {
	_, err := s.store.Get(context.Background(), "document:9000000009")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestSetAppliesPrefixAndTTL() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, "document:9000000009", []byte("<doc/>"), time.Minute))

	v, err := s.store.Get(ctx, "document:9000000009")
	s.Require().NoError(err)
	s.Equal("<doc/>", string(v))

	ttl, err := s.redis.Client.PTTL(ctx, "test:document:9000000009").Result()
	s.Require().NoError(err)
	s.Greater(ttl, 50*time.Second)
}

func (s *RedisStoreSuite) TestExpiredEntryIsMiss() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, "routing:9000000009:A1", []byte("x"), 50*time.Millisecond))
	s.Eventually(func() bool {
		_, err := s.store.Get(ctx, "routing:9000000009:A1")
		return err == sentinel.ErrNotFound
	}, 2*time.Second, 20*time.Millisecond)
}

func (s *RedisStoreSuite) TestGetOrComputeSharedAcrossCaches() {
	// two Cache values over one Redis model two service instances
	a, err := cache.New(s.store)
	s.Require().NoError(err)
	b, err := cache.New(s.store)
	s.Require().NoError(err)

	key := cache.DocumentKey(domain.MustNHSNumber("9000000009"))
	var calls atomic.Int32
	fn := func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("<ClinicalDocument/>"), nil
	}

	_, hit, err := a.GetOrCompute(context.Background(), key, time.Hour, fn)
	s.Require().NoError(err)
	s.False(hit)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, hit, err := b.GetOrCompute(context.Background(), key, time.Hour, fn)
			s.NoError(err)
			s.True(hit)
			s.Equal("<ClinicalDocument/>", string(v))
		}()
	}
	wg.Wait()
	s.Equal(int32(1), calls.Load())
}
