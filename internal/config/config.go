// Package config loads the storefront configuration from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds everything the SDK needs to talk to the delivery API.
type Config struct {
	// APIURL is the API root.
	APIURL string `yaml:"api_url"`
	// TokenFile is where the session credential is persisted.
	TokenFile string `yaml:"token_file"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
	// RequestsPerSecond caps outgoing API traffic when positive.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// OrderPollSchedule is the cron spec for order status polling.
	OrderPollSchedule string `yaml:"order_poll_schedule"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIURL:            "http://localhost:8000/api",
		TokenFile:         defaultTokenFile(),
		LogLevel:          "info",
		OrderPollSchedule: "@every 30s",
	}
}

// Load reads the configuration from path, falling back to defaults when the
// file does not exist, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults plus env are a complete configuration.
	case err != nil:
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.APIURL == "" {
		return Config{}, fmt.Errorf("config: api_url is required")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("STOREFRONT_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("STOREFRONT_TOKEN_FILE"); v != "" {
		cfg.TokenFile = v
	}
	if v := os.Getenv("STOREFRONT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("STOREFRONT_REQUESTS_PER_SECOND"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RequestsPerSecond = parsed
		}
	}
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".storefront-token"
	}
	return home + "/.quickmed/token"
}
