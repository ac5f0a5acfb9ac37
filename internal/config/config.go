// Package config loads the portal's runtime configuration from the
// environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/neomorfeo/workshops/internal/adapter/otel"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the complete runtime configuration.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabasePath   string `env:"DATABASE_PATH" envDefault:"workshops.db"`
	DatabaseURL    string `env:"DATABASE_URL"`

	// AdmissionTimeout bounds the wait for a workshop's serialization point.
	AdmissionTimeout time.Duration `env:"ADMISSION_TIMEOUT" envDefault:"5s"`

	AuthSigningKey string `env:"AUTH_SIGNING_KEY,required,notEmpty"`
	AuthIssuer     string `env:"AUTH_ISSUER" envDefault:"workshops"`
	AuthAudience   string `env:"AUTH_AUDIENCE" envDefault:"workshops-api"`

	OccupancyAuditInterval time.Duration `env:"OCCUPANCY_AUDIT_INTERVAL" envDefault:"15m"`

	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	Telemetry otel.Config
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	// Telemetry derives fields beyond what its tags read.
	if cfg.Telemetry, err = otel.ConfigFromEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the cross-field rules env tags cannot express.
func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DATABASE_DRIVER=%s", DriverPostgres)
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q (use %q or %q)", c.DatabaseDriver, DriverSQLite, DriverPostgres)
	}

	if c.AdmissionTimeout <= 0 {
		return fmt.Errorf("ADMISSION_TIMEOUT must be positive, got %s", c.AdmissionTimeout)
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unsupported LOG_FORMAT %q (use \"text\" or \"json\")", c.LogFormat)
	}

	return nil
}

// NewLogger builds the process logger for the configured format.
func (c Config) NewLogger() *slog.Logger {
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}
