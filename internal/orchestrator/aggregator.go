package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/nevscope/nevscope/internal/inference"
	"github.com/nevscope/nevscope/internal/roles"
	"github.com/nevscope/nevscope/pkg/models"
)

// Aggregator synthesizes the final report from whatever task results a run
// produced. It retries transient inference failures with the same policy as
// analysis tasks; exhausting retries is an AggregationError and fails the run.
type Aggregator struct {
	client  inference.Client
	spec    *roles.Spec
	policy  RetryPolicy
	params  inference.Params
	emitter *EventEmitter
	logger  *DebugLogger
}

// NewAggregator creates an Aggregator using the synthesis spec.
func NewAggregator(client inference.Client, policy RetryPolicy, params inference.Params, emitter *EventEmitter, logger *DebugLogger) *Aggregator {
	return &Aggregator{
		client:  client,
		spec:    roles.SynthesisSpec(),
		policy:  policy,
		params:  params,
		emitter: emitter,
		logger:  logger,
	}
}

// Aggregate builds the report artifact from the store's results. roleOrder
// fixes the section order; roles absent from the store are reported as
// omitted.
func (a *Aggregator) Aggregate(ctx context.Context, store *ResultStore, roleOrder []string) (*models.ReportArtifact, error) {
	input := roles.PromptInput{Upstream: make(map[string]map[string]any)}
	var builtFrom []models.AgentResult
	var omitted []string

	for _, role := range roleOrder {
		result := store.Get(role)
		if result == nil {
			omitted = append(omitted, role)
			continue
		}
		input.Upstream[role] = result.Content
		builtFrom = append(builtFrom, *result)
	}
	input.Omitted = omitted

	prompt := a.spec.Prompt(input)
	a.logger.Log("[aggregator] synthesizing report from %d result(s), %d omitted", len(builtFrom), len(omitted))
	if a.emitter != nil {
		a.emitter.Emit(Event{Type: EventAggregationStarted, Timestamp: time.Now()})
	}

	var lastErr error
	attemptsMade := 0
	for attempt := 0; attempt <= a.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, a.policy.Delay(attempt-1)); err != nil {
				lastErr = err
				break
			}
		}

		attemptsMade++
		comp, err := a.client.Infer(ctx, a.spec.Name, prompt, a.params)
		if err == nil {
			artifact := &models.ReportArtifact{
				Content:     comp.Text,
				BuiltFrom:   builtFrom,
				Omitted:     omitted,
				GeneratedAt: time.Now(),
				Usage:       comp.Usage,
			}
			if a.emitter != nil {
				a.emitter.Emit(Event{Type: EventAggregationCompleted, Timestamp: time.Now()})
			}
			return artifact, nil
		}

		lastErr = err
		a.logger.Log("[aggregator] attempt %d failed: %v", attempt+1, err)
		if ctx.Err() != nil || !inference.IsTransient(err) {
			break
		}
	}

	return nil, &AggregationError{
		Err:      fmt.Errorf("synthesis did not complete: %w", lastErr),
		Attempts: attemptsMade,
	}
}
