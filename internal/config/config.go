// Package config handles configuration loading and management for nevscope.
// It supports XDG config paths, project-level overrides, .env files, and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for nevscope.
type Config struct {
	Inference InferenceConfig `mapstructure:"inference"`
	Run       RunConfig       `mapstructure:"run"`
	Data      DataConfig      `mapstructure:"data"`
	Output    OutputConfig    `mapstructure:"output"`
	Roles     RolesConfig     `mapstructure:"roles"`
}

// InferenceConfig holds LLM backend settings.
type InferenceConfig struct {
	// Provider selects the backend: siliconflow, openai, or anthropic.
	Provider string `mapstructure:"provider"`
	// BaseURL overrides the provider's default endpoint.
	BaseURL string `mapstructure:"base_url"`
	// APIKey is the API key for OpenAI-compatible providers.
	APIKey string `mapstructure:"api_key"`
	// Model is the model identifier sent with every request.
	Model string `mapstructure:"model"`
	// MaxTokens caps the completion length per request.
	MaxTokens int `mapstructure:"max_tokens"`
	// Temperature is the sampling temperature (0 uses the provider default).
	Temperature float64 `mapstructure:"temperature"`
	// UseAWSBedrock routes Anthropic requests through AWS Bedrock.
	UseAWSBedrock bool `mapstructure:"use_aws_bedrock"`
	// AWSRegion is the Bedrock region.
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the AWS shared config profile for Bedrock.
	AWSProfile string `mapstructure:"aws_profile"`
}

// RunConfig holds scheduling defaults for analysis runs.
type RunConfig struct {
	// MaxConcurrent is the maximum number of tasks running at once.
	MaxConcurrent int `mapstructure:"max_concurrent"`
	// MaxRetries is the number of retries after a transient failure.
	MaxRetries int `mapstructure:"max_retries"`
	// TaskTimeout is the per-attempt timeout (0 disables it).
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
	// BaseDelay is the first retry delay before exponential growth.
	BaseDelay time.Duration `mapstructure:"base_delay"`
	// MaxDelay caps the retry delay.
	MaxDelay time.Duration `mapstructure:"max_delay"`
}

// DataConfig holds dataset locations.
type DataConfig struct {
	// Dir is the directory holding the CSV datasets.
	Dir string `mapstructure:"dir"`
	// Mapping is the path to the dataset mapping YAML, relative to Dir
	// unless absolute.
	Mapping string `mapstructure:"mapping"`
}

// OutputConfig holds artifact output settings.
type OutputConfig struct {
	// Dir is the root directory for run artifacts.
	Dir string `mapstructure:"dir"`
	// Charts enables chart series export alongside the report.
	Charts bool `mapstructure:"charts"`
}

// RolesConfig holds custom role definitions.
type RolesConfig struct {
	// File is an optional YAML file with additional role specs.
	File string `mapstructure:"file"`
}

// Load loads configuration from XDG paths, project overrides, and environment
// variables. A .env file in the current directory is loaded first, so keys it
// defines behave like environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (SILICONFLOW_API_KEY, NEVSCOPE_*)
// 2. Project config (.nevscope.yaml in current directory or parent)
// 3. User config (~/.config/nevscope/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	// Ignore a missing .env file, it is optional.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	// Load user config from XDG path
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("NEVSCOPE")
	v.BindEnv("inference.api_key", "SILICONFLOW_API_KEY")
	v.BindEnv("inference.base_url", "SILICONFLOW_BASE_URL")
	v.BindEnv("inference.model", "NEVSCOPE_MODEL")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Inference.APIKey = expandEnv(cfg.Inference.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Inference.APIKey = expandEnv(cfg.Inference.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("inference.provider", cfg.Inference.Provider)
	v.Set("inference.base_url", cfg.Inference.BaseURL)
	v.Set("inference.api_key", cfg.Inference.APIKey)
	v.Set("inference.model", cfg.Inference.Model)
	v.Set("inference.max_tokens", cfg.Inference.MaxTokens)
	v.Set("run.max_concurrent", cfg.Run.MaxConcurrent)
	v.Set("run.max_retries", cfg.Run.MaxRetries)
	v.Set("run.task_timeout", cfg.Run.TaskTimeout.String())
	v.Set("run.base_delay", cfg.Run.BaseDelay.String())
	v.Set("run.max_delay", cfg.Run.MaxDelay.String())
	v.Set("data.dir", cfg.Data.Dir)
	v.Set("data.mapping", cfg.Data.Mapping)
	v.Set("output.dir", cfg.Output.Dir)
	v.Set("output.charts", cfg.Output.Charts)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	// Inference defaults
	v.SetDefault("inference.provider", "siliconflow")
	v.SetDefault("inference.base_url", "")
	v.SetDefault("inference.api_key", "")
	v.SetDefault("inference.model", "deepseek-ai/DeepSeek-V3")
	v.SetDefault("inference.max_tokens", 4000)
	v.SetDefault("inference.temperature", 0.0)

	// Run defaults
	v.SetDefault("run.max_concurrent", 3)
	v.SetDefault("run.max_retries", 3)
	v.SetDefault("run.task_timeout", "2m")
	v.SetDefault("run.base_delay", "2s")
	v.SetDefault("run.max_delay", "30s")

	// Data defaults
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.mapping", "data_map.yaml")

	// Output defaults
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.charts", true)
}

// getUserConfigDir returns the XDG config directory for nevscope.
func getUserConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "nevscope")
	}

	// Fall back to ~/.config/nevscope
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "nevscope")
	}
	return filepath.Join(home, ".config", "nevscope")
}

// findProjectConfig searches for .nevscope.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".nevscope.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Inference: InferenceConfig{
			Provider:  "siliconflow",
			Model:     "deepseek-ai/DeepSeek-V3",
			MaxTokens: 4000,
		},
		Run: RunConfig{
			MaxConcurrent: 3,
			MaxRetries:    3,
			TaskTimeout:   2 * time.Minute,
			BaseDelay:     2 * time.Second,
			MaxDelay:      30 * time.Second,
		},
		Data: DataConfig{
			Dir:     "data",
			Mapping: "data_map.yaml",
		},
		Output: OutputConfig{
			Dir:    "output",
			Charts: true,
		},
	}
}
