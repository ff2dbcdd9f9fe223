// Package config resolves CLI defaults from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variables read by Load.
const (
	EnvDB       = "CITESYNC_DB"
	EnvStyle    = "CITESYNC_STYLE"
	EnvLocale   = "CITESYNC_LOCALE"
	EnvFormat   = "CITESYNC_FORMAT"
	EnvDeferred = "CITESYNC_DEFERRED"
)

// Defaults used when the environment is silent.
const (
	DefaultDB     = "citesync.db"
	DefaultStyle  = "numeric"
	DefaultLocale = "en-US"
	DefaultFormat = "text"
)

type Config struct {
	// DBPath is the SQLite library store.
	DBPath string

	// Style is a builtin style name or a path to a .cue style file.
	Style  string
	Locale string

	// Format is the CLI output format: text or json.
	Format string

	// Deferred runs bibliography regeneration off the editor goroutine.
	Deferred bool
}

func Load() Config {
	cfg := Config{
		DBPath:   envOr(EnvDB, DefaultDB),
		Style:    envOr(EnvStyle, DefaultStyle),
		Locale:   envOr(EnvLocale, DefaultLocale),
		Format:   envOr(EnvFormat, DefaultFormat),
		Deferred: envBool(EnvDeferred, false),
	}

	if cfg.Format != "text" && cfg.Format != "json" {
		cfg.Format = DefaultFormat
	}

	return cfg
}

func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("%s must not be empty", EnvDB)
	}
	if c.Style == "" {
		return fmt.Errorf("%s must not be empty", EnvStyle)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
