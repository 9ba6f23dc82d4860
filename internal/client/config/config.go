// Package config handles configuration for the authkeeper CLI: defaults, an
// optional JSON file, AUTHKEEPER_CLI_* environment variables and command-line
// flags, later sources overriding earlier ones.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds runtime settings for the authkeeper CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - SessionDBPath: SQLite file that remembers the current session.
//   - RequestTimeout: deadline of each call to the server.
type Config struct {
	ServerEndpointAddr string        `env:"AUTHKEEPER_CLI_SERVER_ADDR"`
	SessionDBPath      string        `env:"AUTHKEEPER_CLI_SESSION_DB"`
	RequestTimeout     time.Duration `env:"AUTHKEEPER_CLI_REQUEST_TIMEOUT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.SessionDBPath = "authkeeper-session.db"
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig constructs a Config from defaults, then JSON, environment and
// flags. args are the process arguments without the program name.
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

func (c *Config) Validate() error {
	var errs []error
	if c.ServerEndpointAddr == "" {
		errs = append(errs, errors.New("server address must not be empty"))
	}
	if c.SessionDBPath == "" {
		errs = append(errs, errors.New("session database path must not be empty"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	return errors.Join(errs...)
}
