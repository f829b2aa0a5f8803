package models

import "time"

// Usage reports token consumption for one inference call.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Add accumulates another usage record into this one.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// AgentResult is the output of a successfully completed agent task.
type AgentResult struct {
	// Role is the agent role that produced this result.
	Role string `json:"role"`
	// Content is the structured payload: the model's JSON output when it
	// parsed, otherwise the raw text wrapped under the role's summary field.
	Content map[string]any `json:"content"`
	// Timestamp is when the result was produced.
	Timestamp time.Time `json:"timestamp"`
	// Usage reports token consumption for the producing call, if known.
	Usage Usage `json:"usage"`
	// Latency is the wall-clock duration of the successful attempt.
	Latency time.Duration `json:"latency"`
}

// ReportArtifact is the final synthesized output of a run. It owns copies of
// the agent results it was built from.
type ReportArtifact struct {
	// Content is the synthesized report markdown.
	Content string `json:"content"`
	// BuiltFrom holds copies of every agent result the report was built from,
	// in declaration order.
	BuiltFrom []AgentResult `json:"built_from"`
	// Omitted lists roles whose results were unavailable (failed or skipped),
	// recorded as metadata only.
	Omitted []string `json:"omitted,omitempty"`
	// GeneratedAt is when the report was produced.
	GeneratedAt time.Time `json:"generated_at"`
	// Usage reports token consumption of the synthesis call.
	Usage Usage `json:"usage"`
}
