package config

import (
	"flag"
	"fmt"
	"time"
)

// parseFlags populates Config fields from command-line flags and returns the
// remaining positional arguments.
//
// Supported flags:
//
//	-c, -config string  JSON config file (read earlier by parseJson)
//	-d string           document store connection identifier
//	-t int              token TTL, minutes
//	-l string           log level (debug, info, warn, error)
//	-f string           log format (text, json)
//	-g string           S3 region
//	-e string           S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-u string           S3 access key
//	-p string           S3 secret key
//	-r string           redis password
func parseFlags(config *Config, args []string) ([]string, error) {
	fs := flag.NewFlagSet("tokenctl", flag.ContinueOnError)

	var jsonPath string
	fs.StringVar(&jsonPath, "c", "", "Path to config file (short)")
	fs.StringVar(&jsonPath, "config", "", "Path to config file")

	fs.StringVar(&config.Connection, "d", config.Connection, "document store connection identifier")
	ttl := fs.Int("t", int(config.TokenTTL.Minutes()), "token TTL (in minutes)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format (text or json)")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.RedisPassword, "r", config.RedisPassword, "redis password")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// keep sub-minute TTLs from JSON or env unless -t was given explicitly
	ttlSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			ttlSet = true
		}
	})
	if ttlSet {
		if *ttl <= 0 {
			return nil, fmt.Errorf("token TTL must be positive, got %d minutes", *ttl)
		}
		config.TokenTTL = time.Duration(*ttl) * time.Minute
	}

	return fs.Args(), nil
}
