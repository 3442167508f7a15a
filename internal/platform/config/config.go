// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration.
type Config struct {
	Service  ServiceConfig
	Server   ServerConfig
	Database DatabaseConfig
	NATS     NATSConfig
	Approval ApprovalConfig
	Currency CurrencyConfig
}

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Name        string `env:"SERVICE_NAME" envDefault:"be-fin-capex"`
	Version     string `env:"SERVICE_VERSION" envDefault:"dev"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `env:"HTTP_PORT" envDefault:"8086"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DatabaseConfig holds Postgres settings.
type DatabaseConfig struct {
	Host        string        `env:"DB_HOST" envDefault:"localhost"`
	Port        int           `env:"DB_PORT" envDefault:"5432"`
	User        string        `env:"DB_USER" envDefault:"postgres"`
	Password    string        `env:"DB_PASSWORD" envDefault:"postgres"`
	Database    string        `env:"DB_NAME" envDefault:"fin_capex"`
	SSLMode     string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns    int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	MinConns    int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	MaxConnTime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"30m"`
	MaxIdleTime time.Duration `env:"DB_MAX_CONN_IDLE" envDefault:"5m"`
	HealthCheck time.Duration `env:"DB_HEALTHCHECK_PERIOD" envDefault:"1m"`
}

// NATSConfig holds event publishing settings. Empty URL disables publishing.
type NATSConfig struct {
	URL string `env:"NATS_URL" envDefault:""`
}

// ApprovalConfig holds workflow policy switches.
type ApprovalConfig struct {
	// AllowHoldResume controls whether a held request can be resumed back
	// into its prior pending level.
	AllowHoldResume bool `env:"APPROVAL_ALLOW_HOLD_RESUME" envDefault:"true"`
}

// CurrencyConfig holds exchange-rate cache settings.
type CurrencyConfig struct {
	BaseCurrency string        `env:"BASE_CURRENCY" envDefault:"USD"`
	RateCacheTTL time.Duration `env:"RATE_CACHE_TTL" envDefault:"1h"`
	// RatesJSON is a JSON table of base-currency units per foreign unit,
	// e.g. {"EUR":"1.08","GBP":"1.27"}.
	RatesJSON string `env:"RATES_JSON" envDefault:""`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
