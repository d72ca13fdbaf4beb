// Package config loads xhuma's runtime configuration from defaults, an
// optional config file and environment variables (highest precedence).
//
// Keys are dotted ("cache.document_ttl") in files and upper snake case in the
// environment ("CACHE_DOCUMENT_TTL").
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	// RequireAuth enforces bearer tokens on the transaction endpoints.
	RequireAuth bool
}

type LogConfig struct {
	Level  string
	Format string
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// CacheConfig holds the per-kind lifetimes. Routing info must expire before
// the clinical document it was used to fetch.
type CacheConfig struct {
	Backend        string
	KeyPrefix      string
	RoutingTTL     time.Duration
	DocumentTTL    time.Duration
	ComputeTimeout time.Duration
}

type RegistryConfig struct {
	Backend       string
	RetryAttempts int
	RetryDelay    time.Duration
	TouchTimeout  time.Duration
	DefaultFamily string
}

type AdaptersConfig struct {
	Timeout       time.Duration
	PDSBaseURL    string
	PDSTokenURL   string
	PDSClientID   string
	PDSKeyID      string
	SDSBaseURL    string
	SDSAPIKey     string
	InteractionID string
	ASID          string
	ODSCode       string
}

type RetryConfig struct {
	MaxAttempts        int
	BaseDelay          time.Duration
	MaxDelay           time.Duration
	TransactionTimeout time.Duration
}

type AuthConfig struct {
	SigningKey     string
	PrivateKeyFile string
	Issuer         string
	Audience       string
}

type AuditConfig struct {
	Sink            string
	BufferSize      int
	BatchSize       int
	FlushInterval   time.Duration
	PseudonymSecret string
}

// Config is the full runtime configuration.
type Config struct {
	Server   Server
	Log      LogConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
	Cache    CacheConfig
	Registry RegistryConfig
	Adapters AdaptersConfig
	Retry    RetryConfig
	Auth     AuthConfig
	Audit    AuditConfig
}

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"

	SinkLog      = "log"
	SinkPostgres = "postgres"
	SinkKafka    = "kafka"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.require_auth", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.audit_topic", "xhuma.audit")

	v.SetDefault("cache.backend", BackendMemory)
	v.SetDefault("cache.key_prefix", "xhuma:")
	v.SetDefault("cache.routing_ttl", 2*time.Hour)
	v.SetDefault("cache.document_ttl", 4*time.Hour)
	v.SetDefault("cache.compute_timeout", 30*time.Second)

	v.SetDefault("registry.backend", BackendMemory)
	v.SetDefault("registry.retry_attempts", 3)
	v.SetDefault("registry.retry_delay", 100*time.Millisecond)
	v.SetDefault("registry.touch_timeout", 2*time.Second)
	v.SetDefault("registry.default_family", "xca")

	v.SetDefault("adapters.timeout", 10*time.Second)
	v.SetDefault("pds.base_url", "https://sandbox.api.service.nhs.uk")
	v.SetDefault("pds.token_url", "")
	v.SetDefault("pds.client_id", "")
	v.SetDefault("pds.key_id", "")
	v.SetDefault("sds.base_url", "https://sandbox.api.service.nhs.uk")
	v.SetDefault("sds.api_key", "")
	v.SetDefault("gpconnect.interaction_id", "urn:nhs:names:services:gpconnect:fhir:operation:gpc.getstructuredrecord-1")
	v.SetDefault("xhuma.asid", "")
	v.SetDefault("xhuma.ods_code", "")

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", 200*time.Millisecond)
	v.SetDefault("retry.max_delay", 2*time.Second)
	v.SetDefault("transaction.timeout", 20*time.Second)

	v.SetDefault("jwt.signing_key", "")
	v.SetDefault("jwt.private_key_file", "")
	v.SetDefault("jwt.issuer", "xhuma")
	v.SetDefault("jwt.audience", "")

	v.SetDefault("audit.sink", SinkLog)
	v.SetDefault("audit.buffer_size", 1024)
	v.SetDefault("audit.batch_size", 50)
	v.SetDefault("audit.flush_interval", 2*time.Second)
	v.SetDefault("audit.pseudonym_secret", "")
}

// Load reads configuration. configFile may be empty.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		Server: Server{
			Addr:            v.GetString("server.addr"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			RequireAuth:     v.GetBool("server.require_auth"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("redis.url"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
		},
		Postgres: PostgresConfig{
			URL:             v.GetString("database.url"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(v.GetString("kafka.brokers")),
			AuditTopic: v.GetString("kafka.audit_topic"),
		},
		Cache: CacheConfig{
			Backend:        v.GetString("cache.backend"),
			KeyPrefix:      v.GetString("cache.key_prefix"),
			RoutingTTL:     v.GetDuration("cache.routing_ttl"),
			DocumentTTL:    v.GetDuration("cache.document_ttl"),
			ComputeTimeout: v.GetDuration("cache.compute_timeout"),
		},
		Registry: RegistryConfig{
			Backend:       v.GetString("registry.backend"),
			RetryAttempts: v.GetInt("registry.retry_attempts"),
			RetryDelay:    v.GetDuration("registry.retry_delay"),
			TouchTimeout:  v.GetDuration("registry.touch_timeout"),
			DefaultFamily: v.GetString("registry.default_family"),
		},
		Adapters: AdaptersConfig{
			Timeout:       v.GetDuration("adapters.timeout"),
			PDSBaseURL:    v.GetString("pds.base_url"),
			PDSTokenURL:   v.GetString("pds.token_url"),
			PDSClientID:   v.GetString("pds.client_id"),
			PDSKeyID:      v.GetString("pds.key_id"),
			SDSBaseURL:    v.GetString("sds.base_url"),
			SDSAPIKey:     v.GetString("sds.api_key"),
			InteractionID: v.GetString("gpconnect.interaction_id"),
			ASID:          v.GetString("xhuma.asid"),
			ODSCode:       v.GetString("xhuma.ods_code"),
		},
		Retry: RetryConfig{
			MaxAttempts:        v.GetInt("retry.max_attempts"),
			BaseDelay:          v.GetDuration("retry.base_delay"),
			MaxDelay:           v.GetDuration("retry.max_delay"),
			TransactionTimeout: v.GetDuration("transaction.timeout"),
		},
		Auth: AuthConfig{
			SigningKey:     v.GetString("jwt.signing_key"),
			PrivateKeyFile: v.GetString("jwt.private_key_file"),
			Issuer:         v.GetString("jwt.issuer"),
			Audience:       v.GetString("jwt.audience"),
		},
		Audit: AuditConfig{
			Sink:            v.GetString("audit.sink"),
			BufferSize:      v.GetInt("audit.buffer_size"),
			BatchSize:       v.GetInt("audit.batch_size"),
			FlushInterval:   v.GetDuration("audit.flush_interval"),
			PseudonymSecret: v.GetString("audit.pseudonym_secret"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if c.Cache.RoutingTTL <= 0 || c.Cache.DocumentTTL <= 0 {
		errs = append(errs, errors.New("cache TTLs must be positive"))
	} else if c.Cache.RoutingTTL >= c.Cache.DocumentTTL {
		errs = append(errs, errors.New("cache.routing_ttl must be shorter than cache.document_ttl"))
	}

	if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > 10 {
		errs = append(errs, errors.New("retry.max_attempts must be between 1 and 10"))
	}
	if c.Adapters.Timeout <= 0 {
		errs = append(errs, errors.New("adapters.timeout must be positive"))
	}
	budget := c.Adapters.Timeout * time.Duration(c.Retry.MaxAttempts)
	if c.Retry.TransactionTimeout <= 0 || (c.Retry.MaxAttempts > 1 && c.Retry.TransactionTimeout >= budget) {
		errs = append(errs, fmt.Errorf("transaction.timeout must be positive and below adapters.timeout x retry.max_attempts (%s)", budget))
	}
	if c.Registry.RetryAttempts < 1 {
		errs = append(errs, errors.New("registry.retry_attempts must be at least 1"))
	}

	switch c.Cache.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required for the redis cache backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache.backend %q", c.Cache.Backend))
	}

	switch c.Registry.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required for the redis registry backend"))
		}
	case BackendPostgres:
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("database.url is required for the postgres registry backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown registry.backend %q", c.Registry.Backend))
	}

	switch c.Audit.Sink {
	case SinkLog:
	case SinkPostgres:
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("database.url is required for the postgres audit sink"))
		}
	case SinkKafka:
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("kafka.brokers is required for the kafka audit sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown audit.sink %q", c.Audit.Sink))
	}

	return errors.Join(errs...)
}
