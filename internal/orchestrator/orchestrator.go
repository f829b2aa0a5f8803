package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nevscope/nevscope/internal/dataset"
	"github.com/nevscope/nevscope/internal/graph"
	"github.com/nevscope/nevscope/internal/inference"
	"github.com/nevscope/nevscope/internal/roles"
	"github.com/nevscope/nevscope/pkg/models"
)

// Options configures one analysis run.
type Options struct {
	// Roles selects which analysis roles to run. Empty means all registered
	// roles. Mandatory prerequisites of selected roles are included.
	Roles []string
	// MaxConcurrent limits simultaneously running tasks. Defaults to 3.
	MaxConcurrent int
	// MaxRetries is the retry count per task after the first attempt.
	// Negative values are a configuration error.
	MaxRetries int
	// TaskTimeout bounds each inference attempt. Zero means no limit.
	TaskTimeout time.Duration
	// BaseDelay is the first retry delay. Zero means the default.
	BaseDelay time.Duration
	// MaxDelay caps retry delays. Zero means the default.
	MaxDelay time.Duration
	// Model overrides the inference client's default model.
	Model string
	// Temperature is the sampling temperature for all calls.
	Temperature float64
	// MaxTokens limits response lengths. Zero means the client default.
	MaxTokens int
	// SystemPrompt is prepended to every inference call when non-empty.
	SystemPrompt string
}

// Orchestrator drives complete analysis runs: task scheduling, result
// collection, and report synthesis.
type Orchestrator struct {
	table   *roles.Table
	library *dataset.Library
	client  inference.Client
	opts    Options
	emitter *EventEmitter
	logger  *DebugLogger
}

// New creates an Orchestrator. emitter and logger may be nil.
func New(table *roles.Table, library *dataset.Library, client inference.Client, opts Options, emitter *EventEmitter, logger *DebugLogger) *Orchestrator {
	if opts.MaxConcurrent == 0 {
		opts.MaxConcurrent = 3
	}
	if opts.BaseDelay == 0 {
		opts.BaseDelay = DefaultRetryPolicy().BaseDelay
	}
	if opts.MaxDelay == 0 {
		opts.MaxDelay = DefaultRetryPolicy().MaxDelay
	}
	return &Orchestrator{
		table:   table,
		library: library,
		client:  client,
		opts:    opts,
		emitter: emitter,
		logger:  logger,
	}
}

// RunAnalysis executes a full run and always returns a RunSummary, even when
// the run fails. The error describes why a run did not complete normally.
func (o *Orchestrator) RunAnalysis(ctx context.Context) (*models.RunSummary, error) {
	startedAt := time.Now()
	summary := &models.RunSummary{
		RunID:     models.NewRunID(startedAt),
		Status:    models.RunStatusPending,
		StartedAt: startedAt,
	}
	finish := func(status models.RunStatus, err error) (*models.RunSummary, error) {
		summary.Status = status
		summary.Duration = time.Since(startedAt)
		if o.emitter != nil {
			o.emitter.Emit(Event{Type: EventRunDone, Message: string(status), Error: err, Timestamp: time.Now()})
		}
		return summary, err
	}

	if o.opts.MaxConcurrent < 1 {
		return finish(models.RunStatusFailed, &ConfigurationError{
			Reason: fmt.Sprintf("max concurrent must be at least 1, got %d", o.opts.MaxConcurrent),
		})
	}
	if o.opts.MaxRetries < 0 {
		return finish(models.RunStatusFailed, &ConfigurationError{
			Reason: fmt.Sprintf("max retries must not be negative, got %d", o.opts.MaxRetries),
		})
	}

	tasks, err := o.table.Tasks(o.opts.Roles)
	if err != nil {
		return finish(models.RunStatusFailed, &ConfigurationError{Reason: "invalid role selection", Err: err})
	}

	g := graph.New()
	if err := g.Build(tasks); err != nil {
		return finish(models.RunStatusFailed, &ConfigurationError{Reason: "invalid dependency graph", Err: err})
	}

	summary.Status = models.RunStatusRunning
	o.logger.Log("[orchestrator] run %s started with %d task(s)", summary.RunID, len(tasks))
	if o.emitter != nil {
		o.emitter.Emit(Event{Type: EventRunStarted, Message: summary.RunID, Timestamp: time.Now()})
	}

	policy := RetryPolicy{
		MaxRetries: o.opts.MaxRetries,
		BaseDelay:  o.opts.BaseDelay,
		MaxDelay:   o.opts.MaxDelay,
		Jitter:     DefaultRetryPolicy().Jitter,
	}
	params := inference.Params{
		Model:       o.opts.Model,
		Temperature: o.opts.Temperature,
		MaxTokens:   o.opts.MaxTokens,
		System:      o.opts.SystemPrompt,
	}

	store := NewResultStore()
	scheduler := NewScheduler(SchedulerConfig{
		Graph:         g,
		Table:         o.table,
		Library:       o.library,
		Client:        o.client,
		Store:         store,
		Policy:        policy,
		MaxConcurrent: o.opts.MaxConcurrent,
		TaskTimeout:   o.opts.TaskTimeout,
		Params:        params,
		Emitter:       o.emitter,
		Logger:        o.logger,
	})

	runErr := scheduler.Run(ctx)
	o.fillRoleStatuses(summary, g, scheduler)
	summary.Failures = scheduler.Failures()

	// Results are carried on the summary regardless of how the run ends, so
	// succeeded roles are never lost to an aggregation failure or cancellation.
	for _, role := range g.Order() {
		if result := store.Get(role); result != nil {
			summary.Results = append(summary.Results, *result)
		}
	}

	if runErr != nil {
		return finish(models.RunStatusFailed, runErr)
	}

	if store.Len() == 0 {
		return finish(models.RunStatusFailed, &AggregationError{
			Err: fmt.Errorf("no task produced a result"),
		})
	}

	aggregator := NewAggregator(o.client, policy, params, o.emitter, o.logger)
	artifact, err := aggregator.Aggregate(ctx, store, g.Order())
	if err != nil {
		record := models.FailureRecord{
			Role:      "report",
			Class:     models.ErrClassAggregation,
			Message:   err.Error(),
			Timestamp: time.Now(),
		}
		var aggErr *AggregationError
		if errors.As(err, &aggErr) {
			record.Attempt = aggErr.Attempts
		}
		summary.Failures = append(summary.Failures, record)
		return finish(models.RunStatusFailed, err)
	}
	summary.Report = artifact

	if len(summary.Succeeded()) == len(summary.Roles) {
		return finish(models.RunStatusCompleted, nil)
	}
	return finish(models.RunStatusCompletedWithErrors, nil)
}

// fillRoleStatuses copies per-role outcomes into the summary in declaration
// order.
func (o *Orchestrator) fillRoleStatuses(summary *models.RunSummary, g *graph.DependencyGraph, scheduler *Scheduler) {
	states := scheduler.States()
	attempts := scheduler.Attempts()
	failures := scheduler.Failures()

	lastError := make(map[string]string)
	for _, f := range failures {
		lastError[f.Role] = f.Message
	}

	for _, role := range g.Order() {
		summary.Roles = append(summary.Roles, models.RoleStatus{
			Role:     role,
			State:    states[role],
			Attempts: attempts[role],
			Error:    lastError[role],
		})
	}
}
