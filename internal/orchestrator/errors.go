package orchestrator

import (
	"errors"
	"fmt"

	"github.com/nevscope/nevscope/internal/inference"
	"github.com/nevscope/nevscope/pkg/models"
)

// ConfigurationError indicates the run could not be set up: an unknown role,
// a dependency cycle, or invalid options. No tasks are launched.
type ConfigurationError struct {
	// Reason describes what was wrong.
	Reason string
	// Err is the underlying error, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error { return e.Err }

// DuplicateWriteError indicates a second result write for the same role
// within one run. The store is append-only; this is a programming error.
type DuplicateWriteError struct {
	// Role is the role whose result was already recorded.
	Role string
}

// Error returns the string representation of the error.
func (e *DuplicateWriteError) Error() string {
	return fmt.Sprintf("result for role %s already recorded", e.Role)
}

// DependencyUnmetError explains why a task was skipped: a mandatory
// prerequisite ended in failure or was itself skipped.
type DependencyUnmetError struct {
	// Role is the skipped task.
	Role string
	// Prerequisite is the mandatory prerequisite that did not succeed.
	Prerequisite string
}

// Error returns the string representation of the error.
func (e *DependencyUnmetError) Error() string {
	return fmt.Sprintf("role %s skipped: prerequisite %s did not succeed", e.Role, e.Prerequisite)
}

// AggregationError indicates report synthesis failed after retries. The run
// is marked failed, but individual task results remain available.
type AggregationError struct {
	// Err is the underlying synthesis error.
	Err error
	// Attempts is how many synthesis calls were made, when known.
	Attempts int
}

// Error returns the string representation of the error.
func (e *AggregationError) Error() string {
	return fmt.Sprintf("report aggregation failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *AggregationError) Unwrap() error { return e.Err }

// Classify maps an error to its failure class for run summaries.
func Classify(err error) models.ErrorClass {
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return models.ErrClassConfiguration
	}
	var depErr *DependencyUnmetError
	if errors.As(err, &depErr) {
		return models.ErrClassDependencyUnmet
	}
	var aggErr *AggregationError
	if errors.As(err, &aggErr) {
		return models.ErrClassAggregation
	}
	if inference.IsTransient(err) {
		return models.ErrClassTransient
	}
	return models.ErrClassPermanent
}
