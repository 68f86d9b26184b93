package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BONDACCESS_ADDR", "")
	t.Setenv("BONDACCESS_PG_DSN", "")
	t.Setenv("BONDACCESS_DIRECTORY_TIMEOUT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected addr: %q", cfg.HTTP.Addr)
	}
	if cfg.Directory.Timeout != 30*time.Second {
		t.Fatalf("unexpected data timeout: %v", cfg.Directory.Timeout)
	}
	if cfg.Directory.PingTimeout != 10*time.Second {
		t.Fatalf("unexpected ping timeout: %v", cfg.Directory.PingTimeout)
	}
	if cfg.Database.DSN != "" {
		t.Fatalf("expected empty DSN, got %q", cfg.Database.DSN)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BONDACCESS_ADDR", ":9090")
	t.Setenv("BONDACCESS_DIRECTORY_API_KEY", "key123")
	t.Setenv("BONDACCESS_DIRECTORY_BASE_ID", "appXYZ")
	t.Setenv("BONDACCESS_DIRECTORY_TIMEOUT", "5s")
	t.Setenv("BONDACCESS_RATE_BURST", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("unexpected addr: %q", cfg.HTTP.Addr)
	}
	if cfg.Directory.APIKey != "key123" || cfg.Directory.BaseID != "appXYZ" {
		t.Fatalf("directory credentials not loaded: %+v", cfg.Directory)
	}
	if cfg.Directory.Timeout != 5*time.Second {
		t.Fatalf("timeout override not applied: %v", cfg.Directory.Timeout)
	}
	if cfg.HTTP.RateBurst != 3 {
		t.Fatalf("rate burst override not applied: %d", cfg.HTTP.RateBurst)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("BONDACCESS_DIRECTORY_TIMEOUT", "not-a-duration")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}
