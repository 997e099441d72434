// Package config loads viewhub configuration from the environment, with
// an optional YAML file overlay for deployments that prefer files over
// environment variables.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Logging LogConfig
	Storage StorageConfig
	Probe   ProbeConfig
	Surface SurfaceConfig
}

// ServerConfig holds HTTP control-plane configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8090" yaml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" yaml:"host"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// StorageConfig holds durable key-value store configuration.
type StorageConfig struct {
	Path string `envconfig:"STORE_PATH" default:"viewhub-store.json" yaml:"path"`
}

// ProbeConfig holds network-reachability probe configuration.
type ProbeConfig struct {
	Endpoint    string `envconfig:"PROBE_ENDPOINT" default:"https://connectivitycheck.gstatic.com/generate_204" yaml:"endpoint"`
	IntervalSec int    `envconfig:"PROBE_INTERVAL_SEC" default:"30" yaml:"interval_sec"`
	Enabled     bool   `envconfig:"PROBE_ENABLED" default:"true" yaml:"enabled"`
}

// SurfaceConfig holds rendering-surface HTTP client configuration.
type SurfaceConfig struct {
	TimeoutSec int    `envconfig:"SURFACE_TIMEOUT_SEC" default:"30" yaml:"timeout_sec"`
	UserAgent  string `envconfig:"SURFACE_USER_AGENT" default:"viewhub/0.1" yaml:"user_agent"`
	MaxRetries int    `envconfig:"SURFACE_MAX_RETRIES" default:"2" yaml:"max_retries"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("VIEWHUB", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile loads environment configuration and overlays values from a
// YAML file. File values win over environment values.
func LoadFile(path string) (*Config, error) {
	cfg := LoadOrDefault()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8090",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Storage: StorageConfig{
			Path: "viewhub-store.json",
		},
		Probe: ProbeConfig{
			Endpoint:    "https://connectivitycheck.gstatic.com/generate_204",
			IntervalSec: 30,
			Enabled:     true,
		},
		Surface: SurfaceConfig{
			TimeoutSec: 30,
			UserAgent:  "viewhub/0.1",
			MaxRetries: 2,
		},
	}
}
