package inference

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"

	"github.com/nevscope/nevscope/pkg/models"
)

// DefaultSiliconFlowBaseURL is the OpenAI-compatible endpoint for SiliconFlow.
const DefaultSiliconFlowBaseURL = "https://api.siliconflow.cn/v1"

// OpenAIConfig contains configuration for creating an OpenAI-compatible client.
type OpenAIConfig struct {
	// BaseURL overrides the API endpoint. Defaults to the SiliconFlow endpoint.
	BaseURL string
	// APIKey is the API key. If empty, uses SILICONFLOW_API_KEY env var.
	APIKey string
	// Model is the default model for calls that do not override it.
	Model string
	// MaxTokens is the default response length limit.
	MaxTokens int
}

// OpenAIClient calls an OpenAI-compatible chat completions backend. SiliconFlow
// exposes this protocol, so it doubles as the SiliconFlow client.
type OpenAIClient struct {
	inner     openai.Client
	model     string
	maxTokens int
	tracker   *TokenTracker
}

// NewOpenAIClient creates a client against an OpenAI-compatible backend.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("SILICONFLOW_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("SILICONFLOW_API_KEY environment variable is not set")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultSiliconFlowBaseURL
	}

	inner := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	)

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4000
	}

	return &OpenAIClient{
		inner:     inner,
		model:     cfg.Model,
		maxTokens: maxTokens,
		tracker:   NewTokenTracker(),
	}, nil
}

// Name identifies the backing provider.
func (c *OpenAIClient) Name() string { return "siliconflow" }

// Tracker returns the token tracker for this client.
func (c *OpenAIClient) Tracker() *TokenTracker { return c.tracker }

// Infer sends a chat completion request and returns the response text.
func (c *OpenAIClient) Infer(ctx context.Context, role, prompt string, params Params) (*Completion, error) {
	model := params.Model
	if model == "" {
		model = c.model
	}
	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if params.System != "" {
		messages = append(messages, openai.SystemMessage(params.System))
	}
	messages = append(messages, openai.UserMessage(prompt))

	body := openai.ChatCompletionNewParams{
		Model:     model,
		Messages:  messages,
		MaxTokens: param.NewOpt(int64(maxTokens)),
	}
	if params.Temperature != 0 {
		body.Temperature = param.NewOpt(params.Temperature)
	}

	response, err := c.inner.Chat.Completions.New(ctx, body)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, wrapAPIError(c.Name(), apiErr.StatusCode, err)
		}
		return nil, wrapAPIError(c.Name(), 0, err)
	}

	if len(response.Choices) == 0 {
		return nil, wrapAPIError(c.Name(), 0, fmt.Errorf("response contained no choices"))
	}

	usage := models.Usage{
		PromptTokens:     response.Usage.PromptTokens,
		CompletionTokens: response.Usage.CompletionTokens,
		TotalTokens:      response.Usage.TotalTokens,
	}
	c.tracker.Add(role, usage)

	return &Completion{
		Text:  response.Choices[0].Message.Content,
		Model: response.Model,
		Usage: usage,
	}, nil
}
