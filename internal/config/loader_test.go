package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// These tests mutate the process environment via t.Setenv and therefore must
// not run in parallel.

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"MEETINGSYNC_CONFIG",
		"MEETINGSYNC_SQLITE_DSN",
		"MEETINGSYNC_FALLBACK_PUBLIC_KEY",
		"MEETINGSYNC_FALLBACK_PRIVATE_KEY",
		"MEETINGSYNC_TIMEZONE",
		"MEETINGSYNC_ENVELOPE_CACHE_TTL",
		"MEETINGSYNC_ENVELOPE_CACHE_ENTRIES",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEETINGSYNC_FALLBACK_PUBLIC_KEY", "shared-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SQLiteDSN == "" {
		t.Fatal("default DSN empty")
	}
	if cfg.Timezone != "UTC" {
		t.Fatalf("timezone = %q, want UTC", cfg.Timezone)
	}
	if cfg.EnvelopeCacheTTL != 30*time.Second {
		t.Fatalf("cache ttl = %v, want 30s", cfg.EnvelopeCacheTTL)
	}
	if cfg.EnvelopeCacheEntries != 256 {
		t.Fatalf("cache entries = %d, want 256", cfg.EnvelopeCacheEntries)
	}
	if cfg.Location() != time.UTC {
		t.Fatalf("Location = %v, want UTC", cfg.Location())
	}
}

func TestLoadMissingFallbackKey(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	if err == nil {
		t.Fatal("expected error without fallback public key")
	}
	if !strings.Contains(err.Error(), "MEETINGSYNC_FALLBACK_PUBLIC_KEY") {
		t.Fatalf("error does not name the missing variable: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEETINGSYNC_FALLBACK_PUBLIC_KEY", "shared-key")
	t.Setenv("MEETINGSYNC_SQLITE_DSN", "file:custom.db")
	t.Setenv("MEETINGSYNC_TIMEZONE", "Asia/Tokyo")
	t.Setenv("MEETINGSYNC_ENVELOPE_CACHE_TTL", "2m")
	t.Setenv("MEETINGSYNC_ENVELOPE_CACHE_ENTRIES", "64")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SQLiteDSN != "file:custom.db" {
		t.Fatalf("dsn = %q", cfg.SQLiteDSN)
	}
	if cfg.Timezone != "Asia/Tokyo" {
		t.Fatalf("timezone = %q", cfg.Timezone)
	}
	if cfg.EnvelopeCacheTTL != 2*time.Minute {
		t.Fatalf("cache ttl = %v", cfg.EnvelopeCacheTTL)
	}
	if cfg.EnvelopeCacheEntries != 64 {
		t.Fatalf("cache entries = %d", cfg.EnvelopeCacheEntries)
	}
}

func TestLoadYAMLFileWithEnvPrecedence(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := strings.Join([]string{
		"sqlite_dsn: file:from-yaml.db",
		"fallback_public_key: yaml-key",
		"timezone: Europe/Berlin",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("MEETINGSYNC_CONFIG", path)
	t.Setenv("MEETINGSYNC_SQLITE_DSN", "file:from-env.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// Environment wins over the file; file wins over defaults.
	if cfg.SQLiteDSN != "file:from-env.db" {
		t.Fatalf("dsn = %q", cfg.SQLiteDSN)
	}
	if cfg.FallbackPublicKey != "yaml-key" {
		t.Fatalf("fallback key = %q", cfg.FallbackPublicKey)
	}
	if cfg.Timezone != "Europe/Berlin" {
		t.Fatalf("timezone = %q", cfg.Timezone)
	}
}

func TestLoadAccumulatesInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEETINGSYNC_FALLBACK_PUBLIC_KEY", "shared-key")
	t.Setenv("MEETINGSYNC_TIMEZONE", "Mars/Olympus")
	t.Setenv("MEETINGSYNC_ENVELOPE_CACHE_TTL", "soon")
	t.Setenv("MEETINGSYNC_ENVELOPE_CACHE_ENTRIES", "-3")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid values")
	}
	for _, name := range []string{
		"MEETINGSYNC_TIMEZONE",
		"MEETINGSYNC_ENVELOPE_CACHE_TTL",
		"MEETINGSYNC_ENVELOPE_CACHE_ENTRIES",
	} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error does not name %s: %v", name, err)
		}
	}
}

func TestLoadUnreadableConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEETINGSYNC_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unreadable config file")
	}
}
