package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Poll    PollConfig
	Log     LogConfig
}

// ServerConfig holds the admin gateway's own HTTP configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"8080"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
}

// BackendConfig holds storefront backend API configuration.
type BackendConfig struct {
	BaseURL    string `envconfig:"BACKEND_URL" default:"http://localhost:9000"`
	Timeout    int    `envconfig:"BACKEND_TIMEOUT" default:"10"` // seconds, per request
	MaxRetries int    `envconfig:"BACKEND_MAX_RETRIES" default:"5"`
}

// RequestTimeout returns the per-request timeout as a duration.
func (c BackendConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// PollConfig holds the job polling configuration. Polls are fixed-delay
// repeats, not backoff-based.
type PollConfig struct {
	IntervalMS int `envconfig:"POLL_INTERVAL_MS" default:"2000"`
}

// Interval returns the poll interval as a duration.
func (c PollConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// Load parses environment variables into the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
