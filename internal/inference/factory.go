package inference

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// FactoryConfig selects and configures the inference backend.
type FactoryConfig struct {
	// Provider is "siliconflow", "openai", or "anthropic".
	Provider string
	// BaseURL overrides the endpoint for OpenAI-compatible providers.
	BaseURL string
	// APIKey is the provider API key. Falls back to provider env vars.
	APIKey string
	// Model is the default model for the chosen provider.
	Model string
	// MaxTokens is the default response length limit.
	MaxTokens int
	// UseAWSBedrock routes Anthropic calls through AWS Bedrock.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock.
	AWSRegion string
	// AWSProfile is the optional AWS profile name.
	AWSProfile string
}

// NewClient creates the inference client named by cfg.Provider.
func NewClient(ctx context.Context, cfg FactoryConfig) (Client, error) {
	switch cfg.Provider {
	case "", "siliconflow", "openai":
		return NewOpenAIClient(OpenAIConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
		})
	case "anthropic":
		return NewAnthropicClient(ctx, AnthropicConfig{
			Model:         anthropic.Model(cfg.Model),
			APIKey:        cfg.APIKey,
			UseAWSBedrock: cfg.UseAWSBedrock,
			AWSRegion:     cfg.AWSRegion,
			AWSProfile:    cfg.AWSProfile,
			MaxTokens:     cfg.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unknown inference provider: %s", cfg.Provider)
	}
}
