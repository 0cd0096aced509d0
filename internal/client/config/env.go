package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "GROUPSHARE_"

// loadDotEnv exports the variables of path into the process environment.
// Variables that are already set keep their value; a missing file is fine.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// parseEnv overlays cfg with GROUPSHARE_* variables. Durations use Go
// syntax ("3s", "10m"). LOG_LEVEL is accepted as an unprefixed alias.
func parseEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(envPrefix + "API_URL"); ok && v != "" {
		cfg.APIBaseURL = v
	}
	if v, ok := lookup(envPrefix + "DB_PATH"); ok && v != "" {
		cfg.DBPath = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup(envPrefix + "LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"POLL_INTERVAL", &cfg.PollInterval},
		{"SESSION_TTL", &cfg.SessionTTL},
		{"REQUEST_TIMEOUT", &cfg.RequestTimeout},
	}
	for _, d := range durations {
		v, ok := lookup(envPrefix + d.name)
		if !ok || v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, d.name, err)
		}
		*d.dst = parsed
	}
	return nil
}
