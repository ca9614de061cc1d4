// internal/config/config.go
//
// Typed server configuration parsed from environment variables.
// main loads .env first (godotenv), then this parses the result.

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port           string `env:"PORT" envDefault:"5175"`
	DBPath         string `env:"DB_PATH" envDefault:"./data/guessdle.db"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	CatalogDir     string `env:"CATALOG_DIR"`                // empty → embedded datasets
	ClientOrigin   string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`
	JWTSecret      string `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	JWTExpiresDays int    `env:"JWT_EXPIRES_DAYS" envDefault:"14"`
	CookieName     string `env:"COOKIE_NAME" envDefault:"guessdle_token"`
	Production     bool   `env:"PRODUCTION" envDefault:"false"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
