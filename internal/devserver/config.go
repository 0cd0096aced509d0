package devserver

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/groupshare/internal/flagx"
)

// Config holds runtime settings for the development server.
//
// Fields:
//   - Addr: listen address, e.g. ":8080".
//   - DefaultTTL: session lifetime when create does not ask for one.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	Addr       string
	DefaultTTL time.Duration
	LogLevel   string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.DefaultTTL = 10 * time.Minute
	c.LogLevel = "info"
}

// LoadConfig applies defaults, then command-line flags:
//
//	-a string   listen address
//	-t int      default session TTL (minutes)
//	-l string   log level
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	fs := flag.NewFlagSet("devserver", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "address and port to listen on")
	ttl := fs.Int("t", int(cfg.DefaultTTL.Minutes()), "default session ttl (in minutes)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, []string{"-a", "-t", "-l"})); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	if *ttl <= 0 {
		return nil, fmt.Errorf("ttl must be positive, got %d", *ttl)
	}
	cfg.DefaultTTL = time.Duration(*ttl) * time.Minute
	return cfg, nil
}
