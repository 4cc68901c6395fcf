// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"time"
)

// Config is the full server configuration.
type Config struct {
	Addr          string
	JWTSigningKey string
	PostgresDSN   string
	RedisURL      string
	KafkaBrokers  string
	SweepInterval time.Duration
}

// FromEnv reads configuration from the environment, applying development
// defaults where a variable is unset.
func FromEnv() Config {
	cfg := Config{
		Addr:          getenv("FLEETCOMPLY_ADDR", ":8080"),
		JWTSigningKey: getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		RedisURL:      os.Getenv("REDIS_URL"),
		KafkaBrokers:  os.Getenv("KAFKA_BROKERS"),
		SweepInterval: time.Hour,
	}
	if raw := os.Getenv("EXPIRY_SWEEP_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.SweepInterval = d
		}
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
