package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"

	"xhuma/internal/audit"
	"xhuma/internal/cache"
	"xhuma/internal/correlation"
	"xhuma/internal/correlation/store"
	jwttoken "xhuma/internal/jwt_token"
	"xhuma/internal/platform/config"
	"xhuma/internal/platform/kafka"
	"xhuma/internal/platform/postgres"
	redisclient "xhuma/internal/platform/redis"
	httptransport "xhuma/internal/transport/http"
)

// backends holds the shared connections. Each is nil unless configured.
type backends struct {
	redis *redisclient.Client
	db    *sql.DB
	kafka *kgo.Client
}

func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{}
	var err error
	if b.redis, err = redisclient.New(ctx, cfg.Redis); err != nil {
		return nil, err
	}
	if b.db, err = postgres.Open(ctx, cfg.Postgres); err != nil {
		b.Close()
		return nil, err
	}
	if cfg.Audit.Sink == config.SinkKafka {
		if b.kafka, err = kafka.New(ctx, cfg.Kafka); err != nil {
			b.Close()
			return nil, err
		}
	}
	return b, nil
}

func (b *backends) Close() {
	if b.kafka != nil {
		b.kafka.Close()
	}
	if b.db != nil {
		_ = b.db.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

func (b *backends) healthChecks() map[string]httptransport.HealthCheck {
	checks := map[string]httptransport.HealthCheck{}
	if b.redis != nil {
		checks["redis"] = b.redis.Health
	}
	if b.db != nil {
		checks["postgres"] = b.db.PingContext
	}
	if b.kafka != nil {
		checks["kafka"] = b.kafka.Ping
	}
	return checks
}

func buildCache(cfg *config.Config, b *backends, log *slog.Logger, reg prometheus.Registerer) (*cache.Cache, error) {
	var st cache.Store
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		st = cache.NewRedisStore(b.redis, cache.WithKeyPrefix(cfg.Cache.KeyPrefix))
	default:
		st = cache.NewMemoryStore()
	}
	return cache.New(st,
		cache.WithLogger(log),
		cache.WithMetrics(cache.NewMetrics(reg)),
		cache.WithComputeTimeout(cfg.Cache.ComputeTimeout),
	)
}

func buildRegistry(ctx context.Context, cfg *config.Config, b *backends, log *slog.Logger) (*correlation.Registry, error) {
	var st correlation.Store
	switch cfg.Registry.Backend {
	case config.BackendRedis:
		st = store.NewRedisStore(b.redis, store.WithRedisKeyPrefix(cfg.Cache.KeyPrefix))
	case config.BackendPostgres:
		pg := store.NewPostgresStore(b.db)
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
		st = pg
	default:
		st = store.NewInMemoryStore()
	}
	return correlation.New(st,
		correlation.WithLogger(log),
		correlation.WithRetry(cfg.Registry.RetryAttempts, cfg.Registry.RetryDelay),
		correlation.WithTouchTimeout(cfg.Registry.TouchTimeout),
	)
}

// buildAuthenticator prefers an RSA key file, then a shared secret. Without
// either, tokens are signed with a per-process secret that no caller knows.
func buildAuthenticator(cfg config.AuthConfig, log *slog.Logger) (*jwttoken.Authenticator, error) {
	switch {
	case cfg.PrivateKeyFile != "":
		pem, err := os.ReadFile(cfg.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read jwt private key: %w", err)
		}
		return jwttoken.NewRSA(pem, cfg.Issuer, cfg.Audience)
	case cfg.SigningKey != "":
		return jwttoken.NewHMAC(cfg.SigningKey, cfg.Issuer, cfg.Audience)
	default:
		log.Warn("no jwt signing key configured, using an ephemeral secret")
		return jwttoken.NewHMAC(uuid.NewString(), cfg.Issuer, cfg.Audience)
	}
}

func buildPublisher(ctx context.Context, cfg *config.Config, b *backends, log *slog.Logger, reg prometheus.Registerer) (*audit.Publisher, error) {
	var sink audit.Sink
	switch cfg.Audit.Sink {
	case config.SinkPostgres:
		pg := audit.NewPostgresSink(b.db)
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
		sink = pg
	case config.SinkKafka:
		if err := kafka.EnsureTopic(ctx, b.kafka, cfg.Kafka.AuditTopic, 3); err != nil {
			return nil, err
		}
		sink = audit.NewKafkaSink(b.kafka, cfg.Kafka.AuditTopic)
	default:
		sink = audit.NewLogSink(log)
	}

	opts := []audit.Option{
		audit.WithLogger(log),
		audit.WithMetrics(audit.NewMetrics(reg)),
		audit.WithBufferSize(cfg.Audit.BufferSize),
		audit.WithBatchSize(cfg.Audit.BatchSize),
		audit.WithFlushInterval(cfg.Audit.FlushInterval),
	}
	if cfg.Audit.PseudonymSecret != "" {
		ps, err := audit.NewPseudonymizer([]byte(cfg.Audit.PseudonymSecret))
		if err != nil {
			return nil, err
		}
		opts = append(opts, audit.WithPseudonymizer(ps))
	}
	return audit.NewPublisher(sink, opts...)
}
