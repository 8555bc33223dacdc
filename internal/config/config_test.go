package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Env != Production {
		t.Errorf("Env = %q, want %q", cfg.Env, Production)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Database.MaxOpenConns != 10 {
		t.Errorf("MaxOpenConns = %d, want 10", cfg.Database.MaxOpenConns)
	}
	if cfg.Database.AcquireAttempts != 3 {
		t.Errorf("AcquireAttempts = %d, want 3", cfg.Database.AcquireAttempts)
	}
	if cfg.Upstream.Timeout != 10*time.Second {
		t.Errorf("Upstream.Timeout = %v, want 10s", cfg.Upstream.Timeout)
	}
	if cfg.DevFallbackOpenID != "" {
		t.Errorf("DevFallbackOpenID = %q, want empty outside development", cfg.DevFallbackOpenID)
	}
}

func TestLoadDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://localhost/companion_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Env != Development {
		t.Errorf("Env = %q, want %q", cfg.Env, Development)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.Database.URL != "postgres://localhost/companion_test" {
		t.Errorf("Database.URL = %q", cfg.Database.URL)
	}
	if cfg.DevFallbackOpenID == "" {
		t.Error("expected a dev fallback identity in development")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown environment", "APP_ENV", "staging"},
		{"non-numeric port", "PORT", "eighty"},
		{"zero pool size", "DB_MAX_OPEN_CONNS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s: expected error", tt.key, tt.value)
			}
		})
	}
}
