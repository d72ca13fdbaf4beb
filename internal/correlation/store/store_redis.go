package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"xhuma/internal/correlation/models"
	"xhuma/pkg/domain"
	"xhuma/pkg/platform/sentinel"
)

const (
	fieldCorrelationID = "correlation_id"
	fieldFirstSeen     = "first_seen"
	fieldLastUsed      = "last_used"
	fieldUseCount      = "use_count"
	fieldState         = "state"
	fieldOrganization  = "organization"
)

// insertScript creates the mapping hash only when the key is absent.
// Returns 1 when this call created it.
var insertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1],
  'correlation_id', ARGV[1],
  'first_seen', ARGV[2],
  'last_used', ARGV[2],
  'use_count', ARGV[3],
  'state', ARGV[4],
  'organization', ARGV[5])
return 1
`)

// touchScript increments use_count and moves last_used forward. It never
// creates a partial hash for a missing mapping.
var touchScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HINCRBY', KEYS[1], 'use_count', 1)
local last = tonumber(redis.call('HGET', KEYS[1], 'last_used') or '0')
if tonumber(ARGV[1]) > last then
  redis.call('HSET', KEYS[1], 'last_used', ARGV[1])
end
return 1
`)

// advanceScript raises state monotonically and optionally sets organization.
// Returns -1 for a missing mapping.
var advanceScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local cur = tonumber(redis.call('HGET', KEYS[1], 'state') or '0')
local nxt = tonumber(ARGV[1])
if nxt > cur then
  redis.call('HSET', KEYS[1], 'state', nxt)
  cur = nxt
end
if ARGV[2] ~= '' then
  redis.call('HSET', KEYS[1], 'organization', ARGV[2])
end
return cur
`)

// RedisStore keeps one hash per mapping under "correlation:{patient}:{family}".
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

type RedisOption func(*RedisStore)

// WithRedisKeyPrefix namespaces every mapping key.
func WithRedisKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

func NewRedisStore(client redis.Cmdable, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) key(patient domain.NHSNumber, family models.Family) string {
	return s.prefix + "correlation:" + models.Key(patient, family)
}

func (s *RedisStore) Get(ctx context.Context, patient domain.NHSNumber, family models.Family) (*models.Mapping, error) {
	vals, err := s.client.HGetAll(ctx, s.key(patient, family)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: hgetall correlation: %w", sentinel.ErrUnavailable, err)
	}
	if len(vals) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return decodeMapping(patient, family, vals)
}

func (s *RedisStore) InsertIfAbsent(ctx context.Context, m *models.Mapping) (*models.Mapping, bool, error) {
	key := s.key(m.PatientID, m.Family)
	created, err := insertScript.Run(ctx, s.client, []string{key},
		m.CorrelationID,
		m.FirstSeen.UnixMilli(),
		m.UseCount,
		int(m.State),
		m.Organization,
	).Int()
	if err != nil {
		return nil, false, fmt.Errorf("%w: insert correlation: %w", sentinel.ErrUnavailable, err)
	}
	if created == 1 {
		cp := *m
		return &cp, true, nil
	}
	existing, err := s.Get(ctx, m.PatientID, m.Family)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *RedisStore) Touch(ctx context.Context, patient domain.NHSNumber, family models.Family, at time.Time) error {
	ok, err := touchScript.Run(ctx, s.client, []string{s.key(patient, family)}, at.UnixMilli()).Int()
	if err != nil {
		return fmt.Errorf("%w: touch correlation: %w", sentinel.ErrUnavailable, err)
	}
	if ok == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *RedisStore) Advance(ctx context.Context, patient domain.NHSNumber, family models.Family, state models.State, organization string) (*models.Mapping, error) {
	res, err := advanceScript.Run(ctx, s.client, []string{s.key(patient, family)}, int(state), organization).Int()
	if err != nil {
		return nil, fmt.Errorf("%w: advance correlation: %w", sentinel.ErrUnavailable, err)
	}
	if res < 0 {
		return nil, sentinel.ErrNotFound
	}
	return s.Get(ctx, patient, family)
}

func decodeMapping(patient domain.NHSNumber, family models.Family, vals map[string]string) (*models.Mapping, error) {
	id := vals[fieldCorrelationID]
	if id == "" {
		return nil, fmt.Errorf("%w: correlation hash missing correlation_id", sentinel.ErrInvalidState)
	}
	firstSeen, err := parseMillis(vals[fieldFirstSeen])
	if err != nil {
		return nil, fmt.Errorf("%w: decode first_seen: %w", sentinel.ErrInvalidState, err)
	}
	lastUsed, err := parseMillis(vals[fieldLastUsed])
	if err != nil {
		return nil, fmt.Errorf("%w: decode last_used: %w", sentinel.ErrInvalidState, err)
	}
	useCount, err := strconv.ParseInt(vals[fieldUseCount], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: decode use_count: %w", sentinel.ErrInvalidState, err)
	}
	state, err := strconv.Atoi(vals[fieldState])
	if err != nil {
		return nil, fmt.Errorf("%w: decode state: %w", sentinel.ErrInvalidState, err)
	}
	return &models.Mapping{
		PatientID:     patient,
		Family:        family,
		CorrelationID: id,
		FirstSeen:     firstSeen,
		LastUsed:      lastUsed,
		UseCount:      useCount,
		State:         models.State(state),
		Organization:  vals[fieldOrganization],
	}, nil
}

func parseMillis(raw string) (time.Time, error) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
