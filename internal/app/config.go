package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	PGDSN     string `envconfig:"PG_DSN" default:""`
	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	DataAPIURL     string        `envconfig:"DATA_API_URL" default:"http://127.0.0.1:9000/api"`
	DataAPITimeout time.Duration `envconfig:"DATA_API_TIMEOUT" default:"15s"`

	SyncDebounce   time.Duration `envconfig:"SYNC_DEBOUNCE" default:"400ms"`
	NotifyDebounce time.Duration `envconfig:"NOTIFY_DEBOUNCE" default:"1s"`
	SyncExcluded   []string      `envconfig:"SYNC_EXCLUDED" default:"pnl:calculate"`

	PollEnabled  bool          `envconfig:"POLL_ENABLED" default:"true"`
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"30s"`

	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"10m"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.DataAPIURL == "" {
		return nil, errors.New("data API base URL must be provided")
	}
	if cfg.PollEnabled && cfg.PollInterval <= 0 {
		return nil, errors.New("poll interval must be positive when polling is enabled")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
