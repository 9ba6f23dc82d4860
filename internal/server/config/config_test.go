package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, ":9090", c.MetricsAddr)
	assert.Equal(t, "", c.DatabaseDSN)
	assert.Equal(t, "secretKey", c.SecretKey)
	assert.Equal(t, "authkeeper", c.Issuer)
	assert.Equal(t, "authkeeper-clients", c.Audience)
	assert.Equal(t, 15*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, 7*24*time.Hour, c.RefreshTokenValidityDuration)
	assert.True(t, c.CleanupEnabled)
	assert.Equal(t, time.Hour, c.CleanupInterval)
	assert.Equal(t, HasherBcrypt, c.PasswordHasher)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "json", c.LogFormat)
	assert.NoError(t, c.Validate())
}

func TestLoadConfig_UsesDefaultsWithoutOverrides(t *testing.T) {
	c, err := LoadConfig(nil)
	require.NoError(t, err)
	require.NotNil(t, c)

	var want Config
	want.LoadDefaults()
	assert.Equal(t, want, *c)
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeTempJSON(t, "", "", map[string]any{
		"secret_key":       "from-json",
		"issuer":           "json-issuer",
		"cleanup_interval": "5m",
	})
	t.Setenv("AUTHKEEPER_ISSUER", "env-issuer")
	t.Setenv("AUTHKEEPER_CLEANUP_INTERVAL", "10m")

	c, err := LoadConfig([]string{"-c", path, "-ci", "20"})
	require.NoError(t, err)

	assert.Equal(t, "from-json", c.SecretKey, "json overrides defaults")
	assert.Equal(t, "env-issuer", c.Issuer, "env overrides json")
	assert.Equal(t, 20*time.Minute, c.CleanupInterval, "flags override env")
}

func TestLoadConfig_InvalidEnv(t *testing.T) {
	t.Setenv("AUTHKEEPER_CLEANUP_ENABLED", "maybe")

	_, err := LoadConfig(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestLoadConfig_RejectsInvalidResult(t *testing.T) {
	_, err := LoadConfig([]string{"-hasher", "md5"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown password hasher "md5"`)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults ok", mutate: func(c *Config) {}},
		{name: "empty secret", mutate: func(c *Config) { c.SecretKey = "" }, wantErr: "secret key"},
		{name: "zero access ttl", mutate: func(c *Config) { c.AccessTokenValidityDuration = 0 }, wantErr: "access token validity"},
		{name: "negative refresh ttl", mutate: func(c *Config) { c.RefreshTokenValidityDuration = -time.Hour }, wantErr: "refresh token validity"},
		{name: "zero interval while enabled", mutate: func(c *Config) { c.CleanupInterval = 0 }, wantErr: "cleanup interval"},
		{name: "zero interval while disabled", mutate: func(c *Config) {
			c.CleanupEnabled = false
			c.CleanupInterval = 0
		}},
		{name: "argon2id ok", mutate: func(c *Config) { c.PasswordHasher = HasherArgon2id }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)

			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
