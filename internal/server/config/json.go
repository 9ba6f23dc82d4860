package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/dmitrijs2005/authkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted. Pointer
// and zero-valued fields mean "not set" and keep the current value.
type JsonConfig struct {
	EndpointAddrGRPC             string          `json:"endpoint_addr_grpc"`
	MetricsAddr                  *string         `json:"metrics_addr"`
	DatabaseDSN                  string          `json:"database_dsn"`
	SecretKey                    string          `json:"secret_key"`
	Issuer                       string          `json:"issuer"`
	Audience                     string          `json:"audience"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	CleanupEnabled               *bool           `json:"cleanup_enabled"`
	CleanupInterval              *timex.Duration `json:"cleanup_interval"`
	PasswordHasher               string          `json:"password_hasher"`
	LogLevel                     string          `json:"log_level"`
	LogFormat                    string          `json:"log_format"`
	OTLPEndpoint                 string          `json:"otlp_endpoint"`
}

// parseJson loads configuration values from the file named by -c/-config.
// Without that flag nothing is loaded.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	if c.MetricsAddr != nil {
		config.MetricsAddr = *c.MetricsAddr
	}
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.Issuer, c.Issuer)
	setString(&config.Audience, c.Audience)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.CleanupEnabled != nil {
		config.CleanupEnabled = *c.CleanupEnabled
	}
	if c.CleanupInterval != nil {
		config.CleanupInterval = c.CleanupInterval.Duration
	}
	setString(&config.PasswordHasher, c.PasswordHasher)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.OTLPEndpoint, c.OTLPEndpoint)

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
