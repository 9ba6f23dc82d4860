// Package config handles configuration for the server component: defaults,
// an optional JSON file, AUTHKEEPER_* environment variables and finally
// command-line flags, each layer overriding the previous one.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Supported password hashers.
const (
	HasherBcrypt   = "bcrypt"
	HasherArgon2id = "argon2id"
)

// Config holds runtime settings for the authkeeper server.
//
// Fields:
//   - EndpointAddrGRPC: bind address for the public gRPC endpoint.
//   - MetricsAddr: bind address for the Prometheus /metrics endpoint; empty disables it.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory store.
//   - SecretKey / Issuer / Audience: HS256 signing secret and the iss/aud claims.
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token lifetimes.
//   - CleanupEnabled / CleanupInterval: expired refresh token reclaimer.
//   - PasswordHasher: "bcrypt" or "argon2id".
//   - LogLevel / LogFormat: slog level and handler ("json" or "text").
//   - OTLPEndpoint: OTLP/HTTP traces endpoint; empty disables tracing.
type Config struct {
	EndpointAddrGRPC             string        `env:"AUTHKEEPER_GRPC_ADDR"`
	MetricsAddr                  string        `env:"AUTHKEEPER_METRICS_ADDR"`
	DatabaseDSN                  string        `env:"AUTHKEEPER_DATABASE_DSN"`
	SecretKey                    string        `env:"AUTHKEEPER_SECRET_KEY"`
	Issuer                       string        `env:"AUTHKEEPER_ISSUER"`
	Audience                     string        `env:"AUTHKEEPER_AUDIENCE"`
	AccessTokenValidityDuration  time.Duration `env:"AUTHKEEPER_ACCESS_TOKEN_TTL"`
	RefreshTokenValidityDuration time.Duration `env:"AUTHKEEPER_REFRESH_TOKEN_TTL"`
	CleanupEnabled               bool          `env:"AUTHKEEPER_CLEANUP_ENABLED"`
	CleanupInterval              time.Duration `env:"AUTHKEEPER_CLEANUP_INTERVAL"`
	PasswordHasher               string        `env:"AUTHKEEPER_PASSWORD_HASHER"`
	LogLevel                     string        `env:"AUTHKEEPER_LOG_LEVEL"`
	LogFormat                    string        `env:"AUTHKEEPER_LOG_FORMAT"`
	OTLPEndpoint                 string        `env:"AUTHKEEPER_OTLP_ENDPOINT"`
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret key must be overridden outside of development.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.MetricsAddr = ":9090"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.Issuer = "authkeeper"
	c.Audience = "authkeeper-clients"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 7 * 24 * time.Hour
	c.CleanupEnabled = true
	c.CleanupInterval = 60 * time.Minute
	c.PasswordHasher = HasherBcrypt
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.OTLPEndpoint = ""
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
// args are the process arguments without the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, fmt.Errorf("json config: %w", err)
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key must not be empty"))
	}
	if c.AccessTokenValidityDuration <= 0 {
		errs = append(errs, errors.New("access token validity must be positive"))
	}
	if c.RefreshTokenValidityDuration <= 0 {
		errs = append(errs, errors.New("refresh token validity must be positive"))
	}
	if c.CleanupEnabled && c.CleanupInterval <= 0 {
		errs = append(errs, errors.New("cleanup interval must be positive"))
	}
	switch c.PasswordHasher {
	case HasherBcrypt, HasherArgon2id:
	default:
		errs = append(errs, fmt.Errorf("unknown password hasher %q", c.PasswordHasher))
	}

	return errors.Join(errs...)
}
