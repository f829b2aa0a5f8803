package main

import (
	"context"
	"fmt"

	"github.com/nevscope/nevscope/internal/config"
	"github.com/nevscope/nevscope/internal/inference"
)

// createClient builds the inference client from the loaded configuration.
// The API key is resolved from the environment first, then the config file.
func createClient(ctx context.Context, cfg *config.Config) (inference.Client, error) {
	apiKey, err := config.GetAPIKey(cfg)
	if err != nil && !cfg.Inference.UseAWSBedrock {
		return nil, fmt.Errorf("resolve API key: %w", err)
	}

	client, err := inference.NewClient(ctx, inference.FactoryConfig{
		Provider:      cfg.Inference.Provider,
		BaseURL:       cfg.Inference.BaseURL,
		APIKey:        apiKey,
		Model:         cfg.Inference.Model,
		MaxTokens:     cfg.Inference.MaxTokens,
		UseAWSBedrock: cfg.Inference.UseAWSBedrock,
		AWSRegion:     cfg.Inference.AWSRegion,
		AWSProfile:    cfg.Inference.AWSProfile,
	})
	if err != nil {
		return nil, fmt.Errorf("create inference client: %w", err)
	}
	return client, nil
}
