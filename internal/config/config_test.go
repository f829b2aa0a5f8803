package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Inference.Provider != "siliconflow" {
		t.Errorf("expected default provider 'siliconflow', got %q", cfg.Inference.Provider)
	}

	if cfg.Inference.MaxTokens != 4000 {
		t.Errorf("expected default max tokens 4000, got %d", cfg.Inference.MaxTokens)
	}

	if cfg.Run.MaxConcurrent != 3 {
		t.Errorf("expected default max concurrent 3, got %d", cfg.Run.MaxConcurrent)
	}

	if cfg.Run.MaxRetries != 3 {
		t.Errorf("expected default max retries 3, got %d", cfg.Run.MaxRetries)
	}

	if cfg.Run.BaseDelay != 2*time.Second {
		t.Errorf("expected base delay 2s, got %v", cfg.Run.BaseDelay)
	}

	if cfg.Run.MaxDelay != 30*time.Second {
		t.Errorf("expected max delay 30s, got %v", cfg.Run.MaxDelay)
	}

	if cfg.Data.Dir != "data" {
		t.Errorf("expected data dir 'data', got %q", cfg.Data.Dir)
	}

	if !cfg.Output.Charts {
		t.Error("expected charts enabled by default")
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
inference:
  provider: anthropic
  model: claude-sonnet-4-20250514
  max_tokens: 2000
run:
  max_concurrent: 5
  task_timeout: 90s
data:
  dir: /srv/datasets
output:
  charts: false
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}

	if cfg.Inference.Provider != "anthropic" {
		t.Errorf("provider = %q, want anthropic", cfg.Inference.Provider)
	}
	if cfg.Inference.Model != "claude-sonnet-4-20250514" {
		t.Errorf("model = %q", cfg.Inference.Model)
	}
	if cfg.Inference.MaxTokens != 2000 {
		t.Errorf("max tokens = %d, want 2000", cfg.Inference.MaxTokens)
	}
	if cfg.Run.MaxConcurrent != 5 {
		t.Errorf("max concurrent = %d, want 5", cfg.Run.MaxConcurrent)
	}
	if cfg.Run.TaskTimeout != 90*time.Second {
		t.Errorf("task timeout = %v, want 90s", cfg.Run.TaskTimeout)
	}
	if cfg.Data.Dir != "/srv/datasets" {
		t.Errorf("data dir = %q", cfg.Data.Dir)
	}
	if cfg.Output.Charts {
		t.Error("expected charts disabled")
	}
	// Unset keys keep their defaults.
	if cfg.Run.MaxRetries != 3 {
		t.Errorf("max retries = %d, want default 3", cfg.Run.MaxRetries)
	}
}

func TestLoadFromPathExpandsAPIKey(t *testing.T) {
	t.Setenv("TEST_NEVSCOPE_KEY", "sk-test-1234567890")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	content := "inference:\n  api_key: ${TEST_NEVSCOPE_KEY}\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if cfg.Inference.APIKey != "sk-test-1234567890" {
		t.Errorf("api key = %q, want expanded value", cfg.Inference.APIKey)
	}
}

func TestGetAPIKeyPrefersEnv(t *testing.T) {
	t.Setenv("SILICONFLOW_API_KEY", "sk-env-key")

	cfg := Default()
	cfg.Inference.APIKey = "sk-config-key"

	key, err := GetAPIKey(cfg)
	if err != nil {
		t.Fatalf("GetAPIKey() error: %v", err)
	}
	if key != "sk-env-key" {
		t.Errorf("key = %q, want env value", key)
	}
	if src := GetAPIKeySource(cfg); src != KeySourceEnv {
		t.Errorf("source = %s, want %s", src, KeySourceEnv)
	}
}

func TestGetAPIKeyFromConfig(t *testing.T) {
	t.Setenv("SILICONFLOW_API_KEY", "")

	cfg := Default()
	cfg.Inference.APIKey = "sk-config-key"

	key, err := GetAPIKey(cfg)
	if err != nil {
		t.Fatalf("GetAPIKey() error: %v", err)
	}
	if key != "sk-config-key" {
		t.Errorf("key = %q, want config value", key)
	}
}

func TestGetAPIKeyMissing(t *testing.T) {
	t.Setenv("SILICONFLOW_API_KEY", "")

	_, err := GetAPIKey(Default())
	if err != ErrNoAPIKey {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestGetAPIKeyAnthropicProvider(t *testing.T) {
	t.Setenv("SILICONFLOW_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test-key")

	cfg := Default()
	cfg.Inference.Provider = "anthropic"

	key, err := GetAPIKey(cfg)
	if err != nil {
		t.Fatalf("GetAPIKey() error: %v", err)
	}
	if key != "sk-ant-test-key" {
		t.Errorf("key = %q", key)
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := MaskAPIKey(""); got != "(not set)" {
		t.Errorf("MaskAPIKey(\"\") = %q", got)
	}
	if got := MaskAPIKey("short"); got != "***" {
		t.Errorf("MaskAPIKey(short) = %q", got)
	}
	if got := MaskAPIKey("sk-abcdefghijklmnop"); got != "sk-...mnop" {
		t.Errorf("MaskAPIKey(long) = %q", got)
	}
}
