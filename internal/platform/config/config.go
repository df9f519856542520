// Package config loads and validates the daemon configuration from the
// environment (optionally seeded from a .env file).
package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv          string `env:"APP_ENV" default:"development"`
	Port            string `env:"PORT" default:"7600"`
	IdentityBaseURL string `env:"IDENTITY_BASE_URL"`
	CredentialsFile string `env:"CREDENTIALS_FILE" default:".plandrift/credentials"`

	// TokenEncryptionKey is optional; when empty the credential file is
	// stored unencrypted (development only).
	TokenEncryptionKey string `env:"TOKEN_ENCRYPTION_KEY"`

	// RedisURL is optional; when set, the tokens-updated broadcast rides
	// Redis pub/sub so sibling processes see refreshes too.
	RedisURL string `env:"REDIS_URL"`

	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" default:"10m"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	MaxUIClients int `env:"MAX_UI_CLIENTS" default:"16"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.IdentityBaseURL == "" {
		return fmt.Errorf("IDENTITY_BASE_URL is required")
	}
	if _, err := url.ParseRequestURI(cfg.IdentityBaseURL); err != nil {
		return fmt.Errorf("IDENTITY_BASE_URL must be a valid URL: %w", err)
	}

	if cfg.TokenEncryptionKey != "" {
		keyBytes, err := hex.DecodeString(cfg.TokenEncryptionKey)
		if err != nil {
			return fmt.Errorf("TOKEN_ENCRYPTION_KEY must be valid hex: %w", err)
		}
		if len(keyBytes) != 32 {
			return fmt.Errorf("TOKEN_ENCRYPTION_KEY must be exactly 64 hex characters (32 bytes), got %d bytes", len(keyBytes))
		}
	}

	if cfg.HeartbeatInterval < time.Minute {
		return fmt.Errorf("HEARTBEAT_INTERVAL must be at least 1m, got %s", cfg.HeartbeatInterval)
	}

	if cfg.MaxUIClients < 1 {
		return fmt.Errorf("MAX_UI_CLIENTS must be at least 1, got %d", cfg.MaxUIClients)
	}

	return nil
}
