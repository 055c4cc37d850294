package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"go-token-auth/internal/token"
)

const (
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"

	VerifyModeEnvelope = "envelope"
	VerifyModeStatus   = "status"

	LogFormatPretty = "pretty"
	LogFormatJSON   = "json"
)

type Config struct {
	ServerPort              string        `env:"SERVER_PORT" envDefault:"8080"`
	ServerReadHeaderTimeout time.Duration `env:"SERVER_READ_HEADER_TIMEOUT" envDefault:"10s"`
	ServerWriteTimeout      time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	ServerIdleTimeout       time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	RequestTimeout          time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	DatabaseURL      string `env:"DATABASE_URL"`
	DBMaxConns       int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns       int32  `env:"DB_MIN_CONNS" envDefault:"1"`
	DBConnectRetries uint64 `env:"DB_CONNECT_RETRIES" envDefault:"5"`

	APIPrefix         string `env:"API_PREFIX" envDefault:"/jwt/v1"`
	ClaimsProfile     string `env:"CLAIMS_PROFILE" envDefault:"minimal"`
	SingleSession     bool   `env:"SINGLE_SESSION" envDefault:"false"`
	SessionStore      string `env:"SESSION_STORE" envDefault:"postgres"`
	RedisURL          string `env:"REDIS_URL"`
	VerifyUserExists  bool   `env:"VERIFY_USER_EXISTS" envDefault:"true"`
	VerifyFailureMode string `env:"VERIFY_FAILURE_MODE" envDefault:"envelope"`
	MinPasswordLength int    `env:"MIN_PASSWORD_LENGTH" envDefault:"8"`
	BcryptCost        int    `env:"BCRYPT_COST" envDefault:"12"`

	CORSOrigins    []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string   `env:"LOG_FORMAT" envDefault:"pretty"`
	MetricsEnabled bool     `env:"METRICS_ENABLED" envDefault:"true"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) normalize() {
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.SessionStore = strings.ToLower(strings.TrimSpace(c.SessionStore))
	c.VerifyFailureMode = strings.ToLower(strings.TrimSpace(c.VerifyFailureMode))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.APIPrefix = "/" + strings.Trim(strings.TrimSpace(c.APIPrefix), "/")
	if c.APIPrefix == "/" {
		c.APIPrefix = ""
	}
	c.CORSOrigins = splitCSV(strings.Join(c.CORSOrigins, ","))
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS/DB_MAX_CONNS are inconsistent")
	}

	if _, err := token.ParseProfile(c.ClaimsProfile); err != nil {
		return fmt.Errorf("CLAIMS_PROFILE: %w", err)
	}

	switch c.SessionStore {
	case SessionStorePostgres:
	case SessionStoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when SESSION_STORE=redis")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q", SessionStorePostgres, SessionStoreRedis)
	}

	if c.VerifyFailureMode != VerifyModeEnvelope && c.VerifyFailureMode != VerifyModeStatus {
		return fmt.Errorf("VERIFY_FAILURE_MODE must be %q or %q", VerifyModeEnvelope, VerifyModeStatus)
	}

	if c.MinPasswordLength < 0 {
		return fmt.Errorf("MIN_PASSWORD_LENGTH cannot be negative")
	}

	// bcrypt.MinCost..bcrypt.MaxCost
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}

	if c.LogFormat != LogFormatPretty && c.LogFormat != LogFormatJSON {
		return fmt.Errorf("LOG_FORMAT must be %q or %q", LogFormatPretty, LogFormatJSON)
	}

	return nil
}

// Profile returns the validated claims profile.
func (c *Config) Profile() token.Profile {
	profile, err := token.ParseProfile(c.ClaimsProfile)
	if err != nil {
		return token.ProfileMinimal
	}
	return profile
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
