// Package config loads dailydose configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"dailydose/internal/period"
)

// Config holds all dailydose configuration.
type Config struct {
	Server    ServerConfig    `envPrefix:"DAILYDOSE_SERVER_"`
	Database  DatabaseConfig  `envPrefix:"DAILYDOSE_DB_"`
	Selection SelectionConfig `envPrefix:"DAILYDOSE_"`
	Notify    NotifyConfig    `envPrefix:"DAILYDOSE_NOTIFY_"`
}

type ServerConfig struct {
	Bind string `env:"BIND" envDefault:"127.0.0.1"`
	Port int    `env:"PORT" envDefault:"8414"`
}

type DatabaseConfig struct {
	Path string `env:"PATH"` // resolved at runtime via store.DefaultDBPath()
}

type SelectionConfig struct {
	// Alpha weighs quota pressure against time pressure in the urgency score.
	Alpha float64 `env:"ALPHA" envDefault:"10.0"`
	// DigestSize is the slot limit per digest. Quota-critical doses may
	// overflow it.
	DigestSize int `env:"DIGEST_SIZE" envDefault:"5"`
	// DigestTimings are the daily tick times, "HH:MM".
	DigestTimings []string `env:"DIGEST_TIMINGS" envSeparator:"," envDefault:"09:00"`
	// InitPolicy seeds tracking state for new doses: "zero" or "random".
	InitPolicy string `env:"INIT_POLICY" envDefault:"zero"`
	// NeverShownDays is the time pressure (in days) assigned to doses that
	// have never been shown, so they are eligible immediately.
	NeverShownDays float64 `env:"NEVER_SHOWN_DAYS" envDefault:"30"`
}

type NotifyConfig struct {
	// WebhookURL receives each digest as JSON. Empty disables delivery.
	WebhookURL string `env:"WEBHOOK_URL"`
	// TimeoutSeconds bounds a single delivery attempt.
	TimeoutSeconds int `env:"TIMEOUT" envDefault:"10"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first if present; real environment variables win.
func Load() (Config, error) {
	godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Selection.Alpha <= 0 {
		return fmt.Errorf("alpha %v must be positive", c.Selection.Alpha)
	}
	if c.Selection.DigestSize <= 0 {
		return fmt.Errorf("digest size %d must be positive", c.Selection.DigestSize)
	}
	if c.Selection.NeverShownDays <= 0 {
		return fmt.Errorf("never-shown days %v must be positive", c.Selection.NeverShownDays)
	}
	switch c.Selection.InitPolicy {
	case "zero", "random":
	default:
		return fmt.Errorf("init policy %q must be zero or random", c.Selection.InitPolicy)
	}

	timings, err := period.ValidateTimings(c.Selection.DigestTimings)
	if err != nil {
		return err
	}
	c.Selection.DigestTimings = timings
	return nil
}

// Default returns the configuration used when no environment is set.
func Default() Config {
	return Config{
		Server: ServerConfig{Bind: "127.0.0.1", Port: 8414},
		Selection: SelectionConfig{
			Alpha:          10.0,
			DigestSize:     5,
			DigestTimings:  []string{"09:00"},
			InitPolicy:     "zero",
			NeverShownDays: 30,
		},
		Notify: NotifyConfig{TimeoutSeconds: 10},
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
