// Package config provides API key management utilities.
package config

import (
	"errors"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New("no inference API key configured")

// GetAPIKey returns the inference API key for the configured provider.
// It checks in order: environment variable, config file.
func GetAPIKey(cfg *Config) (string, error) {
	envVar := "SILICONFLOW_API_KEY"
	if cfg != nil && cfg.Inference.Provider == "anthropic" {
		envVar = "ANTHROPIC_API_KEY"
	}

	// First check environment variable directly
	if key := os.Getenv(envVar); key != "" {
		return key, nil
	}

	// Then check config
	if cfg != nil && cfg.Inference.APIKey != "" {
		// Expand any remaining env var references
		key := os.ExpandEnv(cfg.Inference.APIKey)
		if key != "" && !strings.HasPrefix(key, "${") {
			return key, nil
		}
	}

	return "", ErrNoAPIKey
}

// MaskAPIKey returns a masked version of the API key for display.
// Shows the first 3 characters and last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}

	if len(key) <= 10 {
		return "***"
	}

	return key[:3] + "..." + key[len(key)-4:]
}

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceEnv    KeySource = "environment"
	KeySourceConfig KeySource = "config_file"
	KeySourceNone   KeySource = "none"
)

// GetAPIKeySource returns where the API key was sourced from.
func GetAPIKeySource(cfg *Config) KeySource {
	envVar := "SILICONFLOW_API_KEY"
	if cfg != nil && cfg.Inference.Provider == "anthropic" {
		envVar = "ANTHROPIC_API_KEY"
	}
	if os.Getenv(envVar) != "" {
		return KeySourceEnv
	}
	if cfg != nil && cfg.Inference.APIKey != "" {
		return KeySourceConfig
	}
	return KeySourceNone
}
