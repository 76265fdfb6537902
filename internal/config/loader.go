// Package config loads engine configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime knobs of the scheduling engine.
type Config struct {
	// SQLiteDSN locates the slot store database.
	SQLiteDSN string `yaml:"sqlite_dsn"`
	// FallbackPublicKey is the well-known key used for recipients without
	// a directory key (guests). Required.
	FallbackPublicKey string `yaml:"fallback_public_key"`
	// FallbackPrivateKey opens conference copies; only deployments that
	// read guest slots need it.
	FallbackPrivateKey string `yaml:"fallback_private_key"`
	// Timezone is the IANA zone occurrences are normalized to.
	Timezone string `yaml:"timezone"`
	// EnvelopeCacheTTL bounds how long decrypted envelopes are reused.
	EnvelopeCacheTTL time.Duration `yaml:"envelope_cache_ttl"`
	// EnvelopeCacheEntries caps the decrypted envelope cache size.
	EnvelopeCacheEntries int `yaml:"envelope_cache_entries"`
}

// Load reads the YAML file named by MEETINGSYNC_CONFIG when set, then applies
// MEETINGSYNC_* environment overrides, validating required values and
// accumulating every missing or invalid entry into one error.
func Load() (Config, error) {
	cfg := Config{
		SQLiteDSN:            "file:meetingsync.db?_foreign_keys=on",
		Timezone:             "UTC",
		EnvelopeCacheTTL:     30 * time.Second,
		EnvelopeCacheEntries: 256,
	}

	if path := strings.TrimSpace(os.Getenv("MEETINGSYNC_CONFIG")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if dsn := strings.TrimSpace(os.Getenv("MEETINGSYNC_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}
	if key := strings.TrimSpace(os.Getenv("MEETINGSYNC_FALLBACK_PUBLIC_KEY")); key != "" {
		cfg.FallbackPublicKey = key
	}
	if key := strings.TrimSpace(os.Getenv("MEETINGSYNC_FALLBACK_PRIVATE_KEY")); key != "" {
		cfg.FallbackPrivateKey = key
	}
	if zone := strings.TrimSpace(os.Getenv("MEETINGSYNC_TIMEZONE")); zone != "" {
		cfg.Timezone = zone
	}
	if ttlValue := strings.TrimSpace(os.Getenv("MEETINGSYNC_ENVELOPE_CACHE_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "MEETINGSYNC_ENVELOPE_CACHE_TTL")
		} else {
			cfg.EnvelopeCacheTTL = ttl
		}
	}
	if entriesValue := strings.TrimSpace(os.Getenv("MEETINGSYNC_ENVELOPE_CACHE_ENTRIES")); entriesValue != "" {
		entries, err := strconv.Atoi(entriesValue)
		if err != nil || entries <= 0 {
			invalid = append(invalid, "MEETINGSYNC_ENVELOPE_CACHE_ENTRIES")
		} else {
			cfg.EnvelopeCacheEntries = entries
		}
	}

	if cfg.FallbackPublicKey == "" {
		missing = append(missing, "MEETINGSYNC_FALLBACK_PUBLIC_KEY")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		invalid = append(invalid, "MEETINGSYNC_TIMEZONE")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("config: required values are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("config: invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Location resolves the configured timezone. Load has already validated it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
