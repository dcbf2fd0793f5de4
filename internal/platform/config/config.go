package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration. FromEnv keeps main lean; every
// value has a development default so the service boots with no environment.
type Config struct {
	Addr          string
	JWTSigningKey string

	// DatabaseURL selects the Postgres stores; empty falls back to in-memory
	// stores for local development and tests.
	DatabaseURL string

	Redis  RedisConfig
	Kafka  KafkaConfig
	Scorer ScorerConfig

	// AllowedOrigins configures CORS for the browser frontend.
	AllowedOrigins []string
}

// RedisConfig configures the optional score cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional audit outbox publisher. Group, when
// set, also starts the consumer that materializes the stream into the
// category tables.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Group   string
}

// ScorerConfig configures the remote scoring service.
type ScorerConfig struct {
	// APIKey enables the remote path; empty means local fallback only.
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	addr := os.Getenv("LEASEGUARD_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = strings.Split(v, ",")
	}
	topic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = "leaseguard.audit"
	}

	var origins []string
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		origins = strings.Split(v, ",")
	}

	return Config{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   topic,
			Group:   os.Getenv("KAFKA_AUDIT_GROUP"),
		},
		Scorer: ScorerConfig{
			APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
			BaseURL: envString("SCORER_BASE_URL", "https://api.anthropic.com/v1/messages"),
			Model:   envString("SCORER_MODEL", "claude-sonnet-4-20250514"),
			Timeout: envDuration("SCORER_TIMEOUT", 30*time.Second),
		},
		AllowedOrigins: origins,
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
