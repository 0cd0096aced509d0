package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"
)

// Config holds runtime settings for the groupshare CLI.
//
// Fields:
//   - APIBaseURL: base URL of the backend REST API, e.g. http://127.0.0.1:8080.
//   - PollInterval: period of the session status poll.
//   - SessionTTL: expiration requested when creating a session.
//   - RequestTimeout: per-request HTTP timeout.
//   - DBPath: SQLite file holding the local session cache.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	APIBaseURL     string
	PollInterval   time.Duration
	SessionTTL     time.Duration
	RequestTimeout time.Duration
	DBPath         string
	LogLevel       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080"
	c.PollInterval = 3 * time.Second
	c.SessionTTL = 10 * time.Minute
	c.RequestTimeout = 10 * time.Second
	c.DBPath = "groupshare.db"
	c.LogLevel = "info"
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api base url %q", c.APIBaseURL)
	}
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if c.SessionTTL < time.Minute {
		return errors.New("session ttl must be at least one minute")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	if c.DBPath == "" {
		return errors.New("db path must not be empty")
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment (including a .env file), JSON (if -c/-config is given) and
// command-line flags. Later sources take precedence over earlier ones.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
