// Package config loads the portal's runtime configuration from PORTAL_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries everything the binaries need to start. Only TokenSecret is
// mandatory; the rest falls back to development defaults.
type Config struct {
	Addr        string
	Environment string

	TokenSecret string
	TokenTTL    time.Duration
	TokenIssuer string

	HashCost int

	PGDSN            string
	PGMaxConns       int
	PGAcquireTimeout time.Duration

	AMQPURL   string
	RedisAddr string
	RedisDB   int
}

// Load reads the environment and validates the result.
func Load() (Config, error) {
	cfg := Config{
		Addr:             getenv("PORTAL_ADDR", ":8080"),
		Environment:      getenv("PORTAL_ENV", "dev"),
		TokenSecret:      os.Getenv("PORTAL_TOKEN_SECRET"),
		TokenTTL:         getduration("PORTAL_TOKEN_TTL", 24*time.Hour),
		TokenIssuer:      getenv("PORTAL_TOKEN_ISSUER", "amicus"),
		HashCost:         getint("PORTAL_HASH_COST", 12),
		PGDSN:            os.Getenv("PORTAL_PG_DSN"),
		PGMaxConns:       getint("PORTAL_PG_MAX_CONNS", 20),
		PGAcquireTimeout: getduration("PORTAL_PG_ACQUIRE_TIMEOUT", 2*time.Second),
		AMQPURL:          os.Getenv("PORTAL_AMQP_URL"),
		RedisAddr:        os.Getenv("PORTAL_REDIS_ADDR"),
		RedisDB:          getint("PORTAL_REDIS_DB", 0),
	}
	if cfg.TokenSecret == "" {
		return Config{}, fmt.Errorf("PORTAL_TOKEN_SECRET is required")
	}
	if cfg.HashCost < 4 || cfg.HashCost > 31 {
		return Config{}, fmt.Errorf("PORTAL_HASH_COST out of range: %d", cfg.HashCost)
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getduration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
