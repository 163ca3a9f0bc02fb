// Package config resolves runtime settings from an optional .env file and
// the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by Load.
const (
	EnvDB       = "PHASEFORGE_DB"
	EnvAPIURL   = "PHASEFORGE_API_URL"
	EnvAPIRPS   = "PHASEFORGE_API_RPS"
	EnvOwner    = "PHASEFORGE_OWNER"
	EnvLogLevel = "PHASEFORGE_LOG_LEVEL"
)

// DefaultDB is the SQLite file used when PHASEFORGE_DB is unset.
const DefaultDB = "phaseforge.db"

// Config holds resolved settings. Command-line flags override it field by
// field.
type Config struct {
	// DB is a SQLite path or a postgres:// URL.
	DB string

	// APIURL selects the remote template API instead of the local store.
	APIURL string

	// APIRPS caps requests per second to the remote API. Zero disables the
	// limiter.
	APIRPS float64

	// Owner identifies the caller for ownership checks.
	Owner string

	LogLevel slog.Level
}

// UseAPI reports whether templates live behind the remote API.
func (c Config) UseAPI() bool {
	return c.APIURL != ""
}

// Load reads the given .env files (".env" when none are named) and then the
// environment. Missing .env files are ignored; variables already set in the
// environment win over file values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		DB:     firstNonEmpty(getenv(EnvDB), DefaultDB),
		APIURL: strings.TrimSpace(getenv(EnvAPIURL)),
		Owner:  strings.TrimSpace(getenv(EnvOwner)),
	}

	if raw := strings.TrimSpace(getenv(EnvAPIRPS)); raw != "" {
		rps, err := strconv.ParseFloat(raw, 64)
		if err != nil || rps < 0 {
			return Config{}, fmt.Errorf("%s: invalid rate %q", EnvAPIRPS, raw)
		}
		cfg.APIRPS = rps
	}

	level, err := ParseLevel(getenv(EnvLogLevel))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", EnvLogLevel, err)
	}
	cfg.LogLevel = level
	return cfg, nil
}

// ParseLevel accepts debug, info, warn and error in any case. Empty means
// info.
func ParseLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
