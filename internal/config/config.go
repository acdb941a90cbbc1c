// Package config handles configuration for tokenkeeper: defaults, a JSON
// file overlay, environment variables and command-line flags, applied in
// that order.
package config

import (
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/repositories/repomanager"
)

// Config holds runtime settings.
//
// Fields:
//   - Connection: document store identifier, e.g. "postgres://...", "sqlite:tokens.db",
//     "s3://bucket/prefix", "redis://host:6379/0" or "memory:".
//   - TokenTTL: lifetime of issued tokens.
//   - LogLevel / LogFormat: slog level name and "text" or "json".
//   - S3Region / S3BaseEndpoint / S3AccessKey / S3SecretKey: S3-compatible backend settings.
//   - RedisPassword: overrides the password in a redis:// identifier.
type Config struct {
	Connection     string
	TokenTTL       time.Duration
	LogLevel       string
	LogFormat      string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
	RedisPassword  string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.Connection = "sqlite:tokenkeeper.db"
	c.TokenTTL = 15 * time.Minute
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = ""
	c.S3AccessKey = ""
	c.S3SecretKey = ""
	c.RedisPassword = ""
}

// RepositoryOptions returns the backend settings for repomanager.Open.
func (c *Config) RepositoryOptions() repomanager.Options {
	return repomanager.Options{
		S3Region:       c.S3Region,
		S3BaseEndpoint: c.S3BaseEndpoint,
		S3AccessKey:    c.S3AccessKey,
		S3SecretKey:    c.S3SecretKey,
		RedisPassword:  c.RedisPassword,
	}
}

// LoadConfig builds a Config from defaults, the optional JSON file named by
// -c/-config, TOKENKEEPER_* environment variables and flags. It returns the
// positional arguments left after the flags.
func LoadConfig(args []string) (*Config, []string, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, nil, err
	}
	rest, err := parseFlags(cfg, args)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rest, nil
}
