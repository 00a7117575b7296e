package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the storefront needs from the environment.
type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"dev"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Base URL of the ticketing backend, trailing slash tolerated.
	APIBaseURL string `env:"JO_API_URL" envDefault:"http://127.0.0.1:8000"`

	// Directory for the file-backed store (cart, tokens, last ticket).
	StateDir string `env:"JO_STATE_DIR" envDefault:".jo-storefront"`

	// Optional redis address for shared-terminal deployments. Empty means
	// the file store is used instead.
	RedisAddr string `env:"JO_REDIS_ADDR"`

	// Dev server settings.
	DevServerPort int    `env:"JO_DEVSERVER_PORT" envDefault:"8000"`
	DevJWTSecret  string `env:"JO_DEV_JWT_SECRET" envDefault:"dev-only-secret"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	return cfg, nil
}
