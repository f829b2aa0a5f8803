package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nevscope/nevscope/internal/dataset"
	"github.com/nevscope/nevscope/internal/graph"
	"github.com/nevscope/nevscope/internal/inference"
	"github.com/nevscope/nevscope/internal/roles"
	"github.com/nevscope/nevscope/pkg/models"
)

// completion carries a worker's outcome back to the run loop.
type completion struct {
	role     string
	result   *models.AgentResult
	err      error
	attempts int
}

// SchedulerConfig wires a Scheduler's collaborators and limits.
type SchedulerConfig struct {
	// Graph is the built dependency graph over the run's tasks.
	Graph *graph.DependencyGraph
	// Table resolves role names to their specs.
	Table *roles.Table
	// Library provides dataset summaries for prompt assembly.
	Library *dataset.Library
	// Client is the inference backend.
	Client inference.Client
	// Store receives task results.
	Store *ResultStore
	// Policy controls retries and backoff.
	Policy RetryPolicy
	// MaxConcurrent limits simultaneously running tasks. Minimum 1.
	MaxConcurrent int
	// TaskTimeout bounds each inference attempt. Zero means no limit.
	TaskTimeout time.Duration
	// Params are the inference parameters shared by all tasks.
	Params inference.Params
	// Emitter receives progress events. Optional.
	Emitter *EventEmitter
	// Logger receives debug traces. Optional.
	Logger *DebugLogger
}

// Scheduler runs the analysis tasks of one run: it launches ready tasks up
// to the concurrency limit, retries transient inference failures with
// exponential backoff, and skips tasks whose mandatory prerequisites did not
// succeed.
type Scheduler struct {
	graph   *graph.DependencyGraph
	table   *roles.Table
	library *dataset.Library
	client  inference.Client
	store   *ResultStore

	policy        RetryPolicy
	maxConcurrent int
	taskTimeout   time.Duration
	params        inference.Params

	emitter *EventEmitter
	logger  *DebugLogger

	// mu protects states, attempts, and failures.
	mu       sync.Mutex
	states   map[string]models.TaskState
	attempts map[string]int
	failures []models.FailureRecord
}

// NewScheduler creates a Scheduler for one run.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	states := make(map[string]models.TaskState)
	for _, role := range cfg.Graph.Order() {
		states[role] = models.TaskStateWaiting
	}

	return &Scheduler{
		graph:         cfg.Graph,
		table:         cfg.Table,
		library:       cfg.Library,
		client:        cfg.Client,
		store:         cfg.Store,
		policy:        cfg.Policy,
		maxConcurrent: maxConcurrent,
		taskTimeout:   cfg.TaskTimeout,
		params:        cfg.Params,
		emitter:       cfg.Emitter,
		logger:        cfg.Logger,
		states:        states,
		attempts:      make(map[string]int),
	}
}

// Run executes all tasks to a terminal state. It returns the context error
// on cancellation; task failures are recorded, not returned.
func (s *Scheduler) Run(ctx context.Context) error {
	completionCh := make(chan completion, s.maxConcurrent)
	inflight := 0

	for {
		s.applySkips()
		launched := s.launchReady(ctx, completionCh)
		inflight += launched

		if inflight == 0 {
			if s.allTerminal() {
				return nil
			}
			// Nothing running and nothing launchable: every remaining
			// waiting task must be blocked; applySkips resolves them on
			// the next pass.
			continue
		}

		select {
		case <-ctx.Done():
			s.drain(completionCh, inflight)
			s.markCancelled(ctx.Err())
			return ctx.Err()

		case c := <-completionCh:
			inflight--
			s.handleCompletion(c)
		}
	}
}

// launchReady starts ready tasks up to the free slots, preferring tasks with
// more pending dependents and breaking ties by declaration order. Returns
// the number of tasks launched.
func (s *Scheduler) launchReady(ctx context.Context, completionCh chan<- completion) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	running := 0
	for _, st := range s.states {
		if st == models.TaskStateRunning {
			running++
		}
	}
	slots := s.maxConcurrent - running
	if slots <= 0 {
		return 0
	}

	ready := s.graph.ReadySet(s.states)
	if len(ready) == 0 {
		return 0
	}

	// ReadySet returns declaration order; the stable sort keeps it for ties.
	sort.SliceStable(ready, func(i, j int) bool {
		return s.graph.PendingDependents(ready[i], s.states) > s.graph.PendingDependents(ready[j], s.states)
	})

	if len(ready) > slots {
		ready = ready[:slots]
	}

	for _, role := range ready {
		s.states[role] = models.TaskStateRunning
		s.logger.Log("[scheduler] launching task %s", role)
		s.emit(Event{Type: EventTaskStarted, Role: role, Timestamp: time.Now()})
		go s.runTask(ctx, role, completionCh)
	}
	return len(ready)
}

// applySkips marks waiting tasks whose mandatory prerequisites failed or
// were skipped. Repeats until the cascade settles.
func (s *Scheduler) applySkips() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		blocked := s.graph.BlockedSet(s.states)
		if len(blocked) == 0 {
			return
		}
		for role, prereq := range blocked {
			s.states[role] = models.TaskStateSkipped
			err := &DependencyUnmetError{Role: role, Prerequisite: prereq}
			s.failures = append(s.failures, models.FailureRecord{
				Role:      role,
				Class:     models.ErrClassDependencyUnmet,
				Message:   err.Error(),
				Timestamp: time.Now(),
			})
			s.logger.Log("[scheduler] skipping task %s: prerequisite %s did not succeed", role, prereq)
			s.emit(Event{Type: EventTaskSkipped, Role: role, Error: err, Timestamp: time.Now()})
		}
	}
}

// handleCompletion settles a finished task and records its outcome.
func (s *Scheduler) handleCompletion(c completion) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts[c.role] = c.attempts

	if c.err == nil {
		if err := s.store.Put(c.result); err != nil {
			// A duplicate write means the loop double-launched the task.
			c.err = err
		}
	}

	if c.err != nil {
		s.states[c.role] = models.TaskStateFailed
		s.failures = append(s.failures, models.FailureRecord{
			Role:      c.role,
			Attempt:   c.attempts,
			Class:     Classify(c.err),
			Message:   c.err.Error(),
			Timestamp: time.Now(),
		})
		s.logger.Log("[scheduler] task %s failed after %d attempt(s): %v", c.role, c.attempts, c.err)
		s.emit(Event{Type: EventTaskFailed, Role: c.role, Attempt: c.attempts, Error: c.err, Timestamp: time.Now()})
		return
	}

	s.states[c.role] = models.TaskStateSucceeded
	s.logger.Log("[scheduler] task %s succeeded after %d attempt(s)", c.role, c.attempts)
	s.emit(Event{Type: EventTaskCompleted, Role: c.role, Attempt: c.attempts, Timestamp: time.Now()})
}

// runTask executes one task with retries and reports through completionCh.
func (s *Scheduler) runTask(ctx context.Context, role string, completionCh chan<- completion) {
	spec := s.table.Get(role)
	if spec == nil {
		completionCh <- completion{role: role, err: fmt.Errorf("no spec registered for role %s", role), attempts: 1}
		return
	}

	input, err := s.promptInput(spec)
	if err != nil {
		completionCh <- completion{role: role, err: err, attempts: 1}
		return
	}
	prompt := spec.Prompt(input)

	var lastErr error
	attemptsMade := 0
	for attempt := 0; attempt <= s.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := s.policy.Delay(attempt - 1)
			s.logger.Log("[scheduler] task %s retry %d in %s", role, attempt, delay)
			s.emit(Event{Type: EventTaskRetrying, Role: role, Attempt: attempt + 1, Error: lastErr, Timestamp: time.Now()})
			if err := sleep(ctx, delay); err != nil {
				lastErr = err
				break
			}
		}

		attemptCtx := ctx
		cancel := func() {}
		if s.taskTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, s.taskTimeout)
		}

		start := time.Now()
		attemptsMade++
		comp, err := s.client.Infer(attemptCtx, role, prompt, s.params)
		cancel()

		if err == nil {
			completionCh <- completion{
				role: role,
				result: &models.AgentResult{
					Role:      role,
					Content:   roles.ParseContent(spec, comp.Text),
					Timestamp: time.Now(),
					Usage:     comp.Usage,
					Latency:   time.Since(start),
				},
				attempts: attemptsMade,
			}
			return
		}

		lastErr = err
		if ctx.Err() != nil || !inference.IsTransient(err) {
			break
		}
	}

	completionCh <- completion{role: role, err: lastErr, attempts: attemptsMade}
}

// promptInput assembles dataset summaries and upstream results for a spec.
func (s *Scheduler) promptInput(spec *roles.Spec) (roles.PromptInput, error) {
	input := roles.PromptInput{
		Upstream: make(map[string]map[string]any),
	}

	if len(spec.Datasets) > 0 {
		summaries, err := s.library.Summaries(spec.Datasets)
		if err != nil {
			return input, err
		}
		input.Summaries = summaries
	}

	for _, req := range spec.Requires {
		if result := s.store.Get(req.Role); result != nil {
			input.Upstream[req.Role] = result.Content
		} else {
			input.Omitted = append(input.Omitted, req.Role)
		}
	}
	return input, nil
}

// drain collects outstanding completions after cancellation so workers can
// exit. Their outcomes are recorded normally.
func (s *Scheduler) drain(completionCh <-chan completion, inflight int) {
	for i := 0; i < inflight; i++ {
		s.handleCompletion(<-completionCh)
	}
}

// markCancelled moves any non-terminal task to its cancellation state and
// records the reason.
func (s *Scheduler) markCancelled(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for role, st := range s.states {
		if st.Terminal() {
			continue
		}
		s.states[role] = models.TaskStateSkipped
		s.failures = append(s.failures, models.FailureRecord{
			Role:      role,
			Class:     models.ErrClassCancelled,
			Message:   fmt.Sprintf("run cancelled: %v", cause),
			Timestamp: time.Now(),
		})
	}
}

// allTerminal reports whether every task has reached a terminal state.
func (s *Scheduler) allTerminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.states {
		if !st.Terminal() {
			return false
		}
	}
	return true
}

// States returns a copy of the task state map.
func (s *Scheduler) States() map[string]models.TaskState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]models.TaskState, len(s.states))
	for role, st := range s.states {
		out[role] = st
	}
	return out
}

// Attempts returns the attempt counts per role.
func (s *Scheduler) Attempts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.attempts))
	for role, n := range s.attempts {
		out[role] = n
	}
	return out
}

// Failures returns the recorded failure records in occurrence order.
func (s *Scheduler) Failures() []models.FailureRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.FailureRecord, len(s.failures))
	copy(out, s.failures)
	return out
}

func (s *Scheduler) emit(event Event) {
	if s.emitter != nil {
		s.emitter.Emit(event)
	}
}
