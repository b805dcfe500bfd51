package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/mikepea/journal/pkg/journal/database"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds the server settings read from the environment.
type Config struct {
	DBDriver string `env:"JOURNAL_DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"JOURNAL_DB_DSN" envDefault:"record.db"`
	Port     string `env:"PORT" envDefault:"8000"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"JOURNAL_TOKEN_TTL" envDefault:"24h"`

	LogLevel string `env:"JOURNAL_LOG_LEVEL" envDefault:"info"`
	Env      string `env:"JOURNAL_ENV" envDefault:"development"`

	// Seed account created when no admin exists
	Admin struct {
		Username string `env:"JOURNAL_ADMIN_USERNAME" envDefault:"test_user"`
		Email    string `env:"JOURNAL_ADMIN_EMAIL" envDefault:"example@mail.com"`
		Password string `env:"JOURNAL_ADMIN_PASSWORD" envDefault:"testpassword"`
	}
}

// Load reads .env from the working directory when present, then parses
// the environment.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); !os.IsNotExist(err) {
		if err := godotenv.Load(); err != nil {
			return nil, errors.Wrap(err, "load .env")
		}
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	cfg.DBDriver = strings.ToLower(cfg.DBDriver)
	cfg.Env = strings.ToLower(cfg.Env)

	if err := validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// Production reports whether the server runs with production defaults.
func (c *Config) Production() bool {
	return c.Env == EnvProduction
}

func validate(cfg *Config) error {
	switch cfg.DBDriver {
	case database.DriverSQLite, database.DriverPostgres:
	default:
		return errors.Errorf("database driver is invalid: %s", cfg.DBDriver)
	}
	switch cfg.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return errors.Errorf("environment is invalid: %s", cfg.Env)
	}
	if cfg.TokenTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	if cfg.Production() && cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required in production")
	}
	return nil
}
