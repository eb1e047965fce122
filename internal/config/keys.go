package config

import (
	"errors"
	"os"
	"strings"
)

// ErrNoAPIKey means no Anthropic key was found in the environment or
// the loaded configuration.
var ErrNoAPIKey = errors.New("no Anthropic API key configured")

// GetAPIKey resolves the Anthropic API key. The ANTHROPIC_API_KEY
// environment variable wins over the config file, the same precedence
// the serve and worker commands use.
func GetAPIKey(cfg *Config) (string, error) {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return key, nil
	}
	if key := configFileKey(cfg); key != "" {
		return key, nil
	}
	return "", ErrNoAPIKey
}

// configFileKey returns the config-file key with env references
// expanded, or "" when the reference did not resolve.
func configFileKey(cfg *Config) string {
	if cfg == nil || cfg.Anthropic.APIKey == "" {
		return ""
	}
	key := os.ExpandEnv(cfg.Anthropic.APIKey)
	if strings.HasPrefix(key, "${") {
		return ""
	}
	return key
}

// ValidateAPIKey checks the key's shape without calling Anthropic.
func ValidateAPIKey(key string) error {
	if key == "" {
		return ErrNoAPIKey
	}
	if !strings.HasPrefix(key, "sk-ant-") {
		return errors.New("API key should start with sk-ant-")
	}
	if len(key) < 20 {
		return errors.New("API key looks truncated")
	}
	return nil
}

// MaskAPIKey renders a key for the check command: the sk-ant- prefix
// and the last four characters, nothing else.
func MaskAPIKey(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 15:
		return "***"
	default:
		return key[:7] + "..." + key[len(key)-4:]
	}
}

// KeySource names where GetAPIKey found the key.
type KeySource string

const (
	KeySourceEnv    KeySource = "environment"
	KeySourceConfig KeySource = "config_file"
	KeySourceNone   KeySource = "none"
)

// GetAPIKeySource reports which source GetAPIKey would use, for the
// check command's diagnostics.
func GetAPIKeySource(cfg *Config) KeySource {
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		return KeySourceEnv
	}
	if configFileKey(cfg) != "" {
		return KeySourceConfig
	}
	return KeySourceNone
}
