// Package config loads service configuration from the environment, with an
// optional TOML file overlay for project-pinned settings.
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Scene     SceneConfig
	History   HistoryConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8765" toml:"port"`
	Host string `envconfig:"HOST" default:"127.0.0.1" toml:"host"`
}

// SceneConfig holds scene graph and asset root configuration.
type SceneConfig struct {
	AssetRoot   string `envconfig:"ASSET_ROOT" default:"assets" toml:"asset_root"`
	CatalogPath string `envconfig:"CATALOG" default:"" toml:"catalog_path"`
}

// HistoryConfig holds undo history configuration.
type HistoryConfig struct {
	Path      string `envconfig:"PATH" default:"history/undo_history.json" toml:"path"`
	SaveEvery int    `envconfig:"SAVE_EVERY" default:"10" toml:"save_every"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LEVEL" default:"info" toml:"level"`
	Development bool   `envconfig:"DEV" default:"false" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RPS" default:"50" toml:"requests_per_second"`
	Burst             int  `envconfig:"BURST" default:"100" toml:"burst"`
	Enabled           bool `envconfig:"ENABLED" default:"true" toml:"enabled"`
}

// Load loads configuration from environment variables, prefixed REWIND_.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("rewind", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadFile loads configuration from the environment and then overlays the
// given TOML file on top. Fields absent from the file keep their
// environment or default values.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8765",
			Host: "127.0.0.1",
		},
		Scene: SceneConfig{
			AssetRoot: "assets",
		},
		History: HistoryConfig{
			Path:      "history/undo_history.json",
			SaveEvery: 10,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           true,
		},
	}
}
