package config

import (
	"fmt"
	"os"
	"time"
)

// parseEnv overlays TOKENKEEPER_* variables. Secrets are better passed this
// way than on the command line.
//
//	TOKENKEEPER_CONNECTION       document store identifier
//	TOKENKEEPER_TOKEN_TTL        positive Go duration, e.g. "15m"
//	TOKENKEEPER_LOG_LEVEL
//	TOKENKEEPER_LOG_FORMAT
//	TOKENKEEPER_S3_REGION
//	TOKENKEEPER_S3_BASE_ENDPOINT
//	TOKENKEEPER_S3_ACCESS_KEY
//	TOKENKEEPER_S3_SECRET_KEY
//	TOKENKEEPER_REDIS_PASSWORD
func parseEnv(config *Config) error {
	envString(&config.Connection, "TOKENKEEPER_CONNECTION")
	envString(&config.LogLevel, "TOKENKEEPER_LOG_LEVEL")
	envString(&config.LogFormat, "TOKENKEEPER_LOG_FORMAT")
	envString(&config.S3Region, "TOKENKEEPER_S3_REGION")
	envString(&config.S3BaseEndpoint, "TOKENKEEPER_S3_BASE_ENDPOINT")
	envString(&config.S3AccessKey, "TOKENKEEPER_S3_ACCESS_KEY")
	envString(&config.S3SecretKey, "TOKENKEEPER_S3_SECRET_KEY")
	envString(&config.RedisPassword, "TOKENKEEPER_REDIS_PASSWORD")

	if v := os.Getenv("TOKENKEEPER_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TOKENKEEPER_TOKEN_TTL: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("TOKENKEEPER_TOKEN_TTL must be positive, got %s", d)
		}
		config.TokenTTL = d
	}
	return nil
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
