// Package config loads process settings from the environment, optionally
// seeded from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the full runtime configuration of the service.
type Config struct {
	HTTPAddr    string   `env:"HTTP_ADDR"     envDefault:":8080"`
	CORSOrigins []string `env:"CORS_ORIGINS"  envSeparator:"," envDefault:"*"`
	Store       string   `env:"STORE"         envDefault:"postgres"`
	DatabaseURL string   `env:"DATABASE_URL"`
	RedisURL    string   `env:"REDIS_URL"`
	JWTSecret   string   `env:"JWT_SECRET"`

	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	SendGridFrom   string `env:"SENDGRID_FROM_EMAIL" envDefault:"noreply@meetingflow.local"`
	AppName        string `env:"APP_NAME"            envDefault:"Meetingflow"`
	AppURL         string `env:"APP_URL"`

	EntryBuffer      time.Duration `env:"ENTRY_BUFFER"      envDefault:"10m"`
	AllowedDurations []int         `env:"ALLOWED_DURATIONS" envSeparator:"," envDefault:"30,60,90,120,180"`
	TickInterval     time.Duration `env:"TICK_INTERVAL"     envDefault:"1s"`
	StoreTimeout     time.Duration `env:"STORE_TIMEOUT"     envDefault:"5s"`
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL"    envDefault:"1m"`
	RelayInterval    time.Duration `env:"RELAY_INTERVAL"    envDefault:"2s"`
	ViewerTimeZone   string        `env:"VIEWER_TIMEZONE"   envDefault:"UTC"`
}

// Load reads .env when present, then parses and validates the environment.
func Load() (Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c Config) Validate() error {
	var errs []error

	switch c.Store {
	case StorePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE=postgres"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store))
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.EntryBuffer < 0 {
		errs = append(errs, fmt.Errorf("ENTRY_BUFFER must not be negative, got %s", c.EntryBuffer))
	}
	for _, d := range c.AllowedDurations {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("ALLOWED_DURATIONS entries must be positive, got %d", d))
			break
		}
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("TICK_INTERVAL must be positive, got %s", c.TickInterval))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval))
	}
	if c.RelayInterval <= 0 {
		errs = append(errs, fmt.Errorf("RELAY_INTERVAL must be positive, got %s", c.RelayInterval))
	}
	if _, err := time.LoadLocation(c.ViewerTimeZone); err != nil {
		errs = append(errs, fmt.Errorf("VIEWER_TIMEZONE: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Location returns the default viewer time zone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ViewerTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MailEnabled reports whether SendGrid delivery is configured.
func (c Config) MailEnabled() bool {
	return c.SendGridAPIKey != ""
}
