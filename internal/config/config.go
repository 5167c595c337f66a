package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// InactiveThreshold is how long a user stays visible without an update.
	InactiveThreshold time.Duration `env:"INACTIVE_THRESHOLD" default:"30s"`

	// Transport toggles. Pull serves /update_state + /get_state, push serves
	// the /ws pub/sub endpoint. At least one must be enabled.
	EnablePull bool `env:"ENABLE_PULL" default:"true"`
	EnablePush bool `env:"ENABLE_PUSH" default:"true"`

	MaxWSConnections int `env:"MAX_WS_CONNECTIONS" default:"256"`

	// UpdateRateLimit caps accepted updates per user per second on the pull
	// transport. Publishers poll every few seconds, so 2/s is generous.
	UpdateRateLimit float64 `env:"UPDATE_RATE_LIMIT" default:"2"`

	// RedisURL enables the cross-instance relay when set.
	RedisURL string `env:"REDIS_URL"`
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
	if cfg.InactiveThreshold <= 0 {
		return errors.New("INACTIVE_THRESHOLD must be positive")
	}
	if !cfg.EnablePull && !cfg.EnablePush {
		return errors.New("at least one of ENABLE_PULL and ENABLE_PUSH must be true")
	}
	if cfg.MaxWSConnections <= 0 {
		return errors.New("MAX_WS_CONNECTIONS must be positive")
	}
	if cfg.UpdateRateLimit <= 0 {
		return errors.New("UPDATE_RATE_LIMIT must be positive")
	}
	return nil
}
