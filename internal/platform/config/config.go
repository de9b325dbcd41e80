package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr       string
	LogLevel   string
	LogFormat  string
	AdminToken string

	Backend BackendConfig
	Pending PendingConfig
	Auth    AuthConfig
	Redis   RedisConfig
	Audit   AuditConfig
	Tracing TracingConfig

	// ChildrenFile is a YAML roster of first names to child ids. Empty means
	// ids are derived from names.
	ChildrenFile string
}

// BackendConfig points at the system of record.
type BackendConfig struct {
	URL     string
	Timeout time.Duration
}

// PendingConfig controls the preview/confirm flow.
type PendingConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// AuthConfig enables caller authentication when SigningKey is set.
type AuthConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
}

// Enabled reports whether bearer tokens are required.
func (a AuthConfig) Enabled() bool {
	return a.SigningKey != ""
}

// RedisConfig configures the shared pending intent store. An empty URL keeps
// pending intents in process memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuditConfig selects where audit events go. Without DatabaseURL they stay in
// memory; with KafkaBrokers the outbox is relayed to Kafka.
type AuditConfig struct {
	DatabaseURL   string
	KafkaBrokers  []string
	KafkaTopic    string
	RelayInterval time.Duration
	AsyncBuffer   int
}

// TracingConfig selects the span exporter: "none", "stdout", or "otlp".
type TracingConfig struct {
	Exporter     string
	OTLPEndpoint string
}

// PendingTTL is how long previewed contracts wait for confirmation.
var PendingTTL = 5 * time.Minute

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var errs []string
	duration := func(key string, fallback time.Duration) time.Duration {
		raw := os.Getenv(key)
		if raw == "" {
			return fallback
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid duration %q", key, raw))
			return fallback
		}
		return d
	}
	integer := func(key string, fallback int) int {
		raw := os.Getenv(key)
		if raw == "" {
			return fallback
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid integer %q", key, raw))
			return fallback
		}
		return n
	}

	cfg := Server{
		Addr:         envOr("SPEECHACT_ADDR", ":8080"),
		LogLevel:     envOr("LOG_LEVEL", "info"),
		LogFormat:    envOr("LOG_FORMAT", "json"),
		AdminToken:   os.Getenv("ADMIN_TOKEN"),
		ChildrenFile: os.Getenv("CHILDREN_FILE"),
		Backend: BackendConfig{
			URL:     envOr("BACKEND_URL", "http://localhost:3001"),
			Timeout: duration("BACKEND_TIMEOUT", 30*time.Second),
		},
		Pending: PendingConfig{
			TTL:           duration("PENDING_TTL", PendingTTL),
			SweepInterval: duration("PENDING_SWEEP_INTERVAL", time.Minute),
		},
		Auth: AuthConfig{
			SigningKey: os.Getenv("AUTH_SIGNING_KEY"),
			Issuer:     envOr("AUTH_ISSUER", "speechact"),
			Audience:   envOr("AUTH_AUDIENCE", "speechact-gateway"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Audit: AuditConfig{
			DatabaseURL:   os.Getenv("DATABASE_URL"),
			KafkaBrokers:  splitList(os.Getenv("KAFKA_BROKERS")),
			KafkaTopic:    envOr("KAFKA_TOPIC", "speechact.audit"),
			RelayInterval: duration("OUTBOX_RELAY_INTERVAL", time.Second),
			AsyncBuffer:   integer("AUDIT_ASYNC_BUFFER", 0),
		},
		Tracing: TracingConfig{
			Exporter:     envOr("OTEL_TRACES_EXPORTER", "none"),
			OTLPEndpoint: envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		},
	}

	if len(errs) > 0 {
		return cfg, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
