package config

import (
	"errors"
	"testing"
)

func TestGetAPIKey(t *testing.T) {
	t.Run("environment wins over config", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant-quotecall-env-0001")

		cfg := &Config{Anthropic: AnthropicConfig{APIKey: "sk-ant-quotecall-file-0002"}}
		key, err := GetAPIKey(cfg)
		if err != nil {
			t.Fatalf("GetAPIKey() error = %v", err)
		}
		if key != "sk-ant-quotecall-env-0001" {
			t.Errorf("key = %q, want the environment value", key)
		}
	})

	t.Run("falls back to config file", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")

		cfg := &Config{Anthropic: AnthropicConfig{APIKey: "sk-ant-quotecall-file-0002"}}
		key, err := GetAPIKey(cfg)
		if err != nil {
			t.Fatalf("GetAPIKey() error = %v", err)
		}
		if key != "sk-ant-quotecall-file-0002" {
			t.Errorf("key = %q, want the config value", key)
		}
	})

	t.Run("unresolved reference counts as missing", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")

		cfg := &Config{Anthropic: AnthropicConfig{APIKey: "${QUOTECALL_TEST_UNSET_KEY}"}}
		if _, err := GetAPIKey(cfg); !errors.Is(err, ErrNoAPIKey) {
			t.Errorf("GetAPIKey() error = %v, want ErrNoAPIKey", err)
		}
	})

	t.Run("nothing configured", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")

		if _, err := GetAPIKey(&Config{}); !errors.Is(err, ErrNoAPIKey) {
			t.Errorf("GetAPIKey() error = %v, want ErrNoAPIKey", err)
		}
	})
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"well formed", "sk-ant-REDACTED", false},
		{"empty", "", true},
		{"wrong prefix", "token-quotecall-local-dev-01", true},
		{"truncated", "sk-ant-x", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAPIKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"long key shows prefix and tail", "sk-ant-REDACTED", "sk-ant-...-dev"},
		{"empty key", "", "(not set)"},
		{"short key fully hidden", "sk-ant-ab", "***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskAPIKey(tt.key); got != tt.want {
				t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestGetAPIKeySource(t *testing.T) {
	t.Run("environment", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant-quotecall-env-0001")

		if got := GetAPIKeySource(&Config{}); got != KeySourceEnv {
			t.Errorf("GetAPIKeySource() = %v, want %v", got, KeySourceEnv)
		}
	})

	t.Run("config file", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")

		cfg := &Config{Anthropic: AnthropicConfig{APIKey: "sk-ant-quotecall-file-0002"}}
		if got := GetAPIKeySource(cfg); got != KeySourceConfig {
			t.Errorf("GetAPIKeySource() = %v, want %v", got, KeySourceConfig)
		}
	})

	t.Run("none", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")

		if got := GetAPIKeySource(&Config{}); got != KeySourceNone {
			t.Errorf("GetAPIKeySource() = %v, want %v", got, KeySourceNone)
		}
	})
}
