// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address of the gRPC health endpoint; empty disables it.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// AppOrigin is the public origin used to build invitation links (e.g. https://teamos.example.com).
	AppOrigin string `mapstructure:"APP_ORIGIN"`
	// Env is the application environment (e.g. "development", "production"). Production turns on Secure cookies.
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is the zap level name.
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim on session tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim on session tokens.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// SessionTTL is the session lifetime (e.g. "720h").
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// ResendAPIKey enables invitation email delivery through Resend. Empty logs emails instead.
	ResendAPIKey string `mapstructure:"RESEND_API_KEY"`
	// EmailFrom is the sender address for invitation emails.
	EmailFrom string `mapstructure:"EMAIL_FROM"`
	// EmailBaseURL is the Resend send endpoint.
	EmailBaseURL string `mapstructure:"EMAIL_BASE_URL"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses. When set, audit events are published to Kafka.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AuditKafkaTopic is the Kafka topic for audit events.
	AuditKafkaTopic string `mapstructure:"AUDIT_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the audit worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// Worker-only: Loki URL the audit worker also pushes events to (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty uses no-op providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext to the collector even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ORIGIN", "http://localhost:3000")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "teamos-auth")
	v.SetDefault("JWT_AUDIENCE", "teamos-api")
	v.SetDefault("SESSION_TTL", "720h") // 30d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("RESEND_API_KEY", "")
	v.SetDefault("EMAIL_FROM", "onboarding@resend.dev")
	v.SetDefault("EMAIL_BASE_URL", "https://api.resend.com/emails")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUDIT_KAFKA_TOPIC", "teamos-audit")
	v.SetDefault("KAFKA_GROUP_ID", "teamos-audit-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	origin, err := url.Parse(cfg.AppOrigin)
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return nil, errors.New("config: APP_ORIGIN must be an absolute URL")
	}
	cfg.AppOrigin = strings.TrimSuffix(cfg.AppOrigin, "/")

	if cfg.IsProduction() {
		if origin.Scheme != "https" {
			return nil, errors.New("config: APP_ORIGIN must use https when APP_ENV=production")
		}
		if cfg.JWTPrivateKey == "" || cfg.JWTPublicKey == "" {
			return nil, errors.New("config: JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set when APP_ENV=production")
		}
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// IsProduction reports whether APP_ENV is production. Used for Secure cookies and logger format.
func (c *Config) IsProduction() bool {
	return c != nil && c.Env == "production"
}

// SessionDuration parses SessionTTL as a time.Duration. Returns 720h if unset or invalid.
func (c *Config) SessionDuration() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the Kafka audit sink is enabled (non-empty list) and to create the writer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
