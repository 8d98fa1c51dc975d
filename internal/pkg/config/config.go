package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	GatewayAddr   string `env:"GATEWAY_ADDR" envDefault:":8080"`
	AdminAddr     string `env:"ADMIN_ADDR" envDefault:":9091"`
	SinkAdminAddr string `env:"AUDIT_SINK_ADMIN_ADDR" envDefault:":9092"`

	PostgresURL string `env:"POSTGRES_URL,required"`
	RedisAddr   string `env:"REDIS_ADDR,required"`

	JWTSecret string `env:"JWT_SECRET"` // checked by RequireGateway
	JWTIssuer string `env:"JWT_ISSUER"`

	PersonaCacheTTL time.Duration `env:"PERSONA_CACHE_TTL" envDefault:"5m"`
	ExportCacheTTL  time.Duration `env:"EXPORT_CACHE_TTL" envDefault:"1m"` // 0 disables the cache
	ExportRateLimit float64       `env:"EXPORT_RATE_LIMIT" envDefault:"10"` // requests per second per subject
	ExportRateBurst int           `env:"EXPORT_RATE_BURST" envDefault:"20"`

	AuditStream         string `env:"AUDIT_STREAM" envDefault:"audit_events"`
	AuditWALPath        string `env:"AUDIT_WAL_PATH" envDefault:"./wal"`
	AuditWALSegmentSize int64  `env:"AUDIT_WAL_SEGMENT_SIZE_BYTES" envDefault:"104857600"` // 100MB
	AuditWALMaxDiskSize int64  `env:"AUDIT_WAL_MAX_DISK_SIZE_BYTES" envDefault:"1073741824"` // 1GB
	AuditBatchSize      int    `env:"AUDIT_BATCH_SIZE" envDefault:"100"`

	// Pending audit messages idle this long are taken over by another sink.
	AuditClaimMinIdle time.Duration `env:"AUDIT_CLAIM_MIN_IDLE" envDefault:"30s"`
}

// ErrMissingJWTSecret is returned by RequireGateway when no signing secret is configured.
var ErrMissingJWTSecret = errors.New("JWT_SECRET is required by the gateway")

// RequireGateway checks the settings only the gateway needs.
func (c *Config) RequireGateway() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
