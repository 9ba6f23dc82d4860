package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string    gRPC bind address (e.g., ":50051")
//	-m string    metrics bind address, empty disables
//	-d string    PostgreSQL DSN, empty selects the in-memory store
//	-s string    JWT HMAC secret key
//	-i string    token issuer
//	-u string    token audience
//	-t int       access token validity, minutes
//	-r int       refresh token validity, days
//	-cleanup     enable the expired refresh token reclaimer (-cleanup=false disables)
//	-ci int      reclaimer interval, minutes
//	-hasher      password hasher: bcrypt or argon2id
//	-l string    log level
//	-f string    log format: json or text
//	-o string    OTLP/HTTP traces endpoint
//
// Duration flags are accepted as integers and converted to time.Duration.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args,
		[]string{"-a", "-m", "-d", "-s", "-i", "-u", "-t", "-r", "-ci", "-hasher", "-l", "-f", "-o"},
		"-cleanup")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "address and port for /metrics")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.Issuer, "i", config.Issuer, "token issuer")
	fs.StringVar(&config.Audience, "u", config.Audience, "token audience")

	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration/time.Minute), "access token validity (in minutes)")
	refreshTokenValidity := fs.Int("r", int(config.RefreshTokenValidityDuration/(24*time.Hour)), "refresh token validity (in days)")

	fs.BoolVar(&config.CleanupEnabled, "cleanup", config.CleanupEnabled, "reclaim expired refresh tokens in background")
	cleanupInterval := fs.Int("ci", int(config.CleanupInterval/time.Minute), "cleanup interval (in minutes)")

	fs.StringVar(&config.PasswordHasher, "hasher", config.PasswordHasher, "password hasher (bcrypt|argon2id)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format (json|text)")
	fs.StringVar(&config.OTLPEndpoint, "o", config.OTLPEndpoint, "OTLP/HTTP traces endpoint")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// durations are only touched when the flag was given
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidity) * 24 * time.Hour
		case "ci":
			config.CleanupInterval = time.Duration(*cleanupInterval) * time.Minute
		}
	})

	return nil
}
