// Package config loads client configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the CLI needs to talk to the PocketLedger API.
type Config struct {
	BaseURL               string        `env:"POCKETLEDGER_API_URL"         envDefault:"http://localhost:4000/api"`
	RequestTimeout        time.Duration `env:"POCKETLEDGER_HTTP_TIMEOUT"    envDefault:"15s"`
	CredentialsFile       string        `env:"POCKETLEDGER_CREDENTIALS_FILE"`
	CredentialsPassphrase string        `env:"POCKETLEDGER_CREDENTIALS_KEY"`
	LogLevel              string        `env:"POCKETLEDGER_LOG_LEVEL"       envDefault:"info"`
}

// New parses the configuration from environment variables.
func New() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("POCKETLEDGER_API_URL must be an http(s) URL, got %q", c.BaseURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("POCKETLEDGER_HTTP_TIMEOUT must be positive")
	}
	if c.CredentialsFile != "" && c.CredentialsPassphrase == "" {
		return fmt.Errorf("POCKETLEDGER_CREDENTIALS_KEY is required when POCKETLEDGER_CREDENTIALS_FILE is set")
	}
	return nil
}
