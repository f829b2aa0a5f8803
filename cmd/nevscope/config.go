package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/nevscope/nevscope/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify nevscope configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/nevscope/config.yaml
Project-specific overrides can be placed in .nevscope.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("inference.provider: %s\n", cfg.Inference.Provider)
	fmt.Printf("inference.base_url: %s\n", cfg.Inference.BaseURL)
	fmt.Printf("inference.api_key: %s\n", config.MaskAPIKey(cfg.Inference.APIKey))
	fmt.Printf("inference.model: %s\n", cfg.Inference.Model)
	fmt.Printf("inference.max_tokens: %d\n", cfg.Inference.MaxTokens)
	fmt.Printf("run.max_concurrent: %d\n", cfg.Run.MaxConcurrent)
	fmt.Printf("run.max_retries: %d\n", cfg.Run.MaxRetries)
	fmt.Printf("run.task_timeout: %s\n", cfg.Run.TaskTimeout)
	fmt.Printf("run.base_delay: %s\n", cfg.Run.BaseDelay)
	fmt.Printf("run.max_delay: %s\n", cfg.Run.MaxDelay)
	fmt.Printf("data.dir: %s\n", cfg.Data.Dir)
	fmt.Printf("data.mapping: %s\n", cfg.Data.Mapping)
	fmt.Printf("output.dir: %s\n", cfg.Output.Dir)
	fmt.Printf("output.charts: %t\n", cfg.Output.Charts)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue returns the string form of a configuration value.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "inference.provider":
		return cfg.Inference.Provider, nil
	case "inference.base_url":
		return cfg.Inference.BaseURL, nil
	case "inference.api_key":
		return config.MaskAPIKey(cfg.Inference.APIKey), nil
	case "inference.model":
		return cfg.Inference.Model, nil
	case "inference.max_tokens":
		return strconv.Itoa(cfg.Inference.MaxTokens), nil
	case "run.max_concurrent":
		return strconv.Itoa(cfg.Run.MaxConcurrent), nil
	case "run.max_retries":
		return strconv.Itoa(cfg.Run.MaxRetries), nil
	case "run.task_timeout":
		return cfg.Run.TaskTimeout.String(), nil
	case "run.base_delay":
		return cfg.Run.BaseDelay.String(), nil
	case "run.max_delay":
		return cfg.Run.MaxDelay.String(), nil
	case "data.dir":
		return cfg.Data.Dir, nil
	case "data.mapping":
		return cfg.Data.Mapping, nil
	case "output.dir":
		return cfg.Output.Dir, nil
	case "output.charts":
		return strconv.FormatBool(cfg.Output.Charts), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue parses and assigns a configuration value.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "inference.provider":
		cfg.Inference.Provider = value
	case "inference.base_url":
		cfg.Inference.BaseURL = value
	case "inference.api_key":
		cfg.Inference.APIKey = value
	case "inference.model":
		cfg.Inference.Model = value
	case "inference.max_tokens":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer for %s: %s", key, value)
		}
		cfg.Inference.MaxTokens = n
	case "run.max_concurrent":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer for %s: %s", key, value)
		}
		cfg.Run.MaxConcurrent = n
	case "run.max_retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer for %s: %s", key, value)
		}
		cfg.Run.MaxRetries = n
	case "run.task_timeout", "run.base_delay", "run.max_delay":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %s", key, value)
		}
		switch key {
		case "run.task_timeout":
			cfg.Run.TaskTimeout = d
		case "run.base_delay":
			cfg.Run.BaseDelay = d
		case "run.max_delay":
			cfg.Run.MaxDelay = d
		}
	case "data.dir":
		cfg.Data.Dir = value
	case "data.mapping":
		cfg.Data.Mapping = value
	case "output.dir":
		cfg.Output.Dir = value
	case "output.charts":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for %s: %s", key, value)
		}
		cfg.Output.Charts = b
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
