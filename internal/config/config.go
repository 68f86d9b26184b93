package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config aggregates application configuration values. Every collaborator
// receives its slice explicitly; nothing reads ambient settings at call time.
type Config struct {
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Directory DirectoryConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateBurst       int
	RatePerSecond   int
}

// DatabaseConfig describes connectivity to the local cache store.
// An empty DSN selects the in-memory store.
type DatabaseConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DirectoryConfig carries the remote tabular API coordinates.
type DirectoryConfig struct {
	APIKey      string
	BaseID      string
	BaseURL     string
	Timeout     time.Duration
	PingTimeout time.Duration
}

const (
	defaultAddr            = ":8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultRateBurst       = 20
	defaultRatePerSecond   = 10
	defaultMaxOpenConns    = 50
	defaultMaxIdleConns    = 25
	defaultConnLifetime    = 15 * time.Minute
	defaultDataTimeout     = 30 * time.Second
	defaultPingTimeout     = 10 * time.Second
)

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Addr:            valueOrDefault("BONDACCESS_ADDR", defaultAddr),
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
			RateBurst:       parseIntWithDefault("BONDACCESS_RATE_BURST", defaultRateBurst),
			RatePerSecond:   parseIntWithDefault("BONDACCESS_RATE_PER_SECOND", defaultRatePerSecond),
		},
		Database: DatabaseConfig{
			DSN:             os.Getenv("BONDACCESS_PG_DSN"),
			MaxOpenConns:    parseIntWithDefault("BONDACCESS_PG_MAX_OPEN", defaultMaxOpenConns),
			MaxIdleConns:    parseIntWithDefault("BONDACCESS_PG_MAX_IDLE", defaultMaxIdleConns),
			ConnMaxLifetime: defaultConnLifetime,
		},
		Directory: DirectoryConfig{
			APIKey:      os.Getenv("BONDACCESS_DIRECTORY_API_KEY"),
			BaseID:      os.Getenv("BONDACCESS_DIRECTORY_BASE_ID"),
			BaseURL:     os.Getenv("BONDACCESS_DIRECTORY_BASE_URL"),
			Timeout:     defaultDataTimeout,
			PingTimeout: defaultPingTimeout,
		},
	}

	durations := []struct {
		env    string
		target *time.Duration
	}{
		{"BONDACCESS_READ_TIMEOUT", &cfg.HTTP.ReadTimeout},
		{"BONDACCESS_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout},
		{"BONDACCESS_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout},
		{"BONDACCESS_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout},
		{"BONDACCESS_DIRECTORY_TIMEOUT", &cfg.Directory.Timeout},
		{"BONDACCESS_DIRECTORY_PING_TIMEOUT", &cfg.Directory.PingTimeout},
	}
	for _, d := range durations {
		if v := os.Getenv(d.env); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", d.env, err)
			}
			*d.target = parsed
		}
	}

	return cfg, nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}
