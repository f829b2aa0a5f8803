// Package orchestrator coordinates the analysis run: scheduling agent tasks
// over the dependency graph, retrying failed inference calls, collecting
// results, and synthesizing the final report.
package orchestrator

import (
	"time"
)

// EventType represents the type of run event.
type EventType string

const (
	// EventRunStarted indicates the run has begun.
	EventRunStarted EventType = "run_started"
	// EventTaskStarted indicates a task has started execution.
	EventTaskStarted EventType = "task_started"
	// EventTaskRetrying indicates a task attempt failed and will be retried.
	EventTaskRetrying EventType = "task_retrying"
	// EventTaskCompleted indicates a task completed successfully.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates a task exhausted its attempts.
	EventTaskFailed EventType = "task_failed"
	// EventTaskSkipped indicates a task was skipped because a mandatory
	// prerequisite did not succeed.
	EventTaskSkipped EventType = "task_skipped"
	// EventAggregationStarted indicates report synthesis has begun.
	EventAggregationStarted EventType = "aggregation_started"
	// EventAggregationCompleted indicates the report was built.
	EventAggregationCompleted EventType = "aggregation_completed"
	// EventRunDone indicates the run has finished.
	EventRunDone EventType = "run_done"
)

// Event represents a run progress event. Subscribers (the CLI progress
// printer, tests) receive these through the emitter.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// Role is the related analysis role, if applicable.
	Role string
	// Attempt is the 1-indexed attempt number for retry and failure events.
	Attempt int
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}
