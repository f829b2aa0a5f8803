// Package inference provides the abstract LLM-calling capability used by
// agent tasks, with concrete providers for OpenAI-compatible backends
// (SiliconFlow) and the Anthropic API.
package inference

import (
	"context"

	"github.com/nevscope/nevscope/pkg/models"
)

// Params controls a single inference call.
type Params struct {
	// Model overrides the client's default model when non-empty.
	Model string
	// Temperature controls randomness. Zero means the provider default.
	Temperature float64
	// MaxTokens limits the response length. Zero means the client default.
	MaxTokens int
	// System is an optional system prompt prepended to the conversation.
	System string
}

// Completion is the result of a successful inference call.
type Completion struct {
	// Text is the generated response text.
	Text string
	// Model is the model that produced the response.
	Model string
	// Usage reports token consumption.
	Usage models.Usage
}

// Client is the abstract inference capability consumed by the orchestrator.
// Implementations must be safe for concurrent use.
type Client interface {
	// Name identifies the backing provider.
	Name() string
	// Infer sends a prompt on behalf of the named role and returns the
	// response text. Errors are classified as transient or permanent; see
	// the Error type.
	Infer(ctx context.Context, role, prompt string, params Params) (*Completion, error)
}
