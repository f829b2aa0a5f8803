package models

import "time"

// TaskState represents the current state of an agent task.
type TaskState string

const (
	// TaskStateWaiting indicates the task is waiting on prerequisites.
	TaskStateWaiting TaskState = "waiting"
	// TaskStateReady indicates all prerequisites are terminal and the task can launch.
	TaskStateReady TaskState = "ready"
	// TaskStateRunning indicates the task is executing an inference attempt.
	TaskStateRunning TaskState = "running"
	// TaskStateSucceeded indicates the task produced a result.
	TaskStateSucceeded TaskState = "succeeded"
	// TaskStateFailed indicates the task exhausted its attempts.
	TaskStateFailed TaskState = "failed"
	// TaskStateSkipped indicates a mandatory prerequisite failed, so the task never ran.
	TaskStateSkipped TaskState = "skipped"
)

// Valid returns true if the state is a known value.
func (s TaskState) Valid() bool {
	switch s {
	case TaskStateWaiting, TaskStateReady, TaskStateRunning,
		TaskStateSucceeded, TaskStateFailed, TaskStateSkipped:
		return true
	default:
		return false
	}
}

// Terminal returns true if the state is one of succeeded, failed, or skipped.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateSucceeded, TaskStateFailed, TaskStateSkipped:
		return true
	default:
		return false
	}
}

// Requirement declares a prerequisite role for a task.
type Requirement struct {
	// Role is the prerequisite role name.
	Role string `json:"role" yaml:"role"`
	// Optional marks the prerequisite as non-mandatory: if it fails, the
	// dependent still runs with the result omitted from its input.
	Optional bool `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// Task is one node in a run's dependency graph.
type Task struct {
	// Role is the agent role name, unique within a run.
	Role string `json:"role"`
	// Requires lists the prerequisite roles, in declaration order.
	Requires []Requirement `json:"requires,omitempty"`
	// State is the current state of the task.
	State TaskState `json:"state"`
	// Attempts is the number of inference attempts made so far.
	Attempts int `json:"attempts"`
	// LastError is the most recent error message, if any.
	LastError string `json:"last_error,omitempty"`
}

// ErrorClass categorizes a task failure.
type ErrorClass string

const (
	// ErrClassConfiguration indicates a malformed graph, unknown role, or
	// invalid options. Fatal and never retried.
	ErrClassConfiguration ErrorClass = "configuration"
	// ErrClassTransient indicates a timeout, rate limit, or transient backend
	// failure. Retried per policy.
	ErrClassTransient ErrorClass = "transient_inference"
	// ErrClassPermanent indicates the backend rejected the request outright.
	// Never retried.
	ErrClassPermanent ErrorClass = "permanent_inference"
	// ErrClassDependencyUnmet indicates a mandatory prerequisite failed.
	ErrClassDependencyUnmet ErrorClass = "dependency_unmet"
	// ErrClassAggregation indicates the final synthesis call failed after
	// retries. The only class that fails the whole run.
	ErrClassAggregation ErrorClass = "aggregation"
	// ErrClassCancelled indicates the run was cancelled before the task
	// reached a terminal state on its own.
	ErrClassCancelled ErrorClass = "cancelled"
)

// FailureRecord captures one failed attempt of a task.
type FailureRecord struct {
	// Role is the role of the task that failed.
	Role string `json:"role"`
	// Attempt is the attempt number that produced this failure, 1-indexed.
	Attempt int `json:"attempt"`
	// Class is the failure classification.
	Class ErrorClass `json:"class"`
	// Message is the error message.
	Message string `json:"message"`
	// Timestamp is when the failure was recorded.
	Timestamp time.Time `json:"timestamp"`
}
