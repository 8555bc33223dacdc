// Package config loads process configuration from the environment.
//
// All knobs are read once at startup and passed down as plain data;
// nothing else in the codebase touches os.Getenv. A local .env file is
// honoured in development via godotenv, matching how the service is run
// outside the cloud environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment is an explicit, statically distinguishable deployment variant.
// Behaviour switches (like the mock-identity middleware) key off this value
// exactly once, at wiring time — never via scattered string comparisons.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Config holds everything the server needs to start.
type Config struct {
	Env  Environment
	Port int

	// Database selects the relational backend. When URL is set the service
	// talks to PostgreSQL; otherwise it falls back to an embedded SQLite
	// file at Path.
	Database DatabaseConfig

	// Upstream is the third-party game-statistics API.
	Upstream UpstreamConfig

	// DevFallbackOpenID is injected as the request identity when no trusted
	// header is present. Populated only for Development; empty in any other
	// environment, which keeps the bypass statically unreachable there.
	DevFallbackOpenID string
}

type DatabaseConfig struct {
	URL  string // PostgreSQL DSN; empty selects SQLite
	Path string // SQLite file path

	MaxOpenConns    int           // pool bound
	AcquireAttempts int           // bounded-retry connection acquisition
	AcquireDelay    time.Duration // base delay; attempt n waits delay*n
	AcquireTimeout  time.Duration // per-attempt wait for a free connection
}

type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Load reads configuration from the environment, applying defaults.
// A missing .env file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:  Production,
		Port: 8080,
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Path:            "data/companion.db",
			MaxOpenConns:    10,
			AcquireAttempts: 3,
			AcquireDelay:    time.Second,
			AcquireTimeout:  5 * time.Second,
		},
		Upstream: UpstreamConfig{
			BaseURL: "http://api.mihomo.me/sr_info_parsed",
			Timeout: 10 * time.Second,
		},
	}

	if env := os.Getenv("APP_ENV"); env != "" {
		switch Environment(env) {
		case Development, Production:
			cfg.Env = Environment(env)
		default:
			return Config{}, fmt.Errorf("config: unknown APP_ENV %q", env)
		}
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid PORT %q: %w", portStr, err)
		}
		cfg.Port = port
	}

	if path := os.Getenv("DB_PATH"); path != "" {
		cfg.Database.Path = path
	}
	if v := os.Getenv("DB_MAX_OPEN_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("config: invalid DB_MAX_OPEN_CONNS %q", v)
		}
		cfg.Database.MaxOpenConns = n
	}

	if base := os.Getenv("API_BASE_URL"); base != "" {
		cfg.Upstream.BaseURL = base
	}

	// The fixed placeholder identity mirrors the one the frontend dev tools
	// expect. Only ever set in development.
	if cfg.Env == Development {
		cfg.DevFallbackOpenID = "demo_openid_dev_user"
		if v := os.Getenv("DEV_FALLBACK_OPENID"); v != "" {
			cfg.DevFallbackOpenID = v
		}
	}

	return cfg, nil
}
