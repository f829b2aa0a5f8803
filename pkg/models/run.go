// Package models defines the shared data model for nevscope runs,
// agent tasks, results, and report artifacts.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the overall state of a run.
type RunStatus string

const (
	// RunStatusPending indicates the run has been created but not started.
	RunStatusPending RunStatus = "pending"
	// RunStatusRunning indicates the run is executing.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted indicates every agent task succeeded.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusCompletedWithErrors indicates at least one task failed or was
	// skipped but the report was still produced.
	RunStatusCompletedWithErrors RunStatus = "completed_with_errors"
	// RunStatusFailed indicates the report could not be produced.
	RunStatusFailed RunStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusPending, RunStatusRunning, RunStatusCompleted,
		RunStatusCompletedWithErrors, RunStatusFailed:
		return true
	default:
		return false
	}
}

// Run represents one end-to-end orchestration execution.
type Run struct {
	// ID is the unique identifier for this run.
	ID string `json:"id"`
	// Roles is the set of agent roles selected for this run, in declaration order.
	Roles []string `json:"roles"`
	// Status is the overall state of the run.
	Status RunStatus `json:"status"`
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is when the run reached a terminal status, if it has.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewRunID returns a date-derived run identifier with a short random suffix,
// e.g. "20230415-091205-3f2a81c4".
func NewRunID(now time.Time) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s-%s", now.Format("20060102-150405"), suffix)
}

// RoleStatus reports the terminal state of one role within a run summary.
type RoleStatus struct {
	// Role is the agent role name.
	Role string `json:"role"`
	// State is the terminal state the task reached.
	State TaskState `json:"state"`
	// Attempts is the number of inference attempts made.
	Attempts int `json:"attempts"`
	// Error is the final error message if the task failed.
	Error string `json:"error,omitempty"`
}

// RunSummary is returned to the caller for every run, including partial
// failures. It carries enough detail to diagnose a run without logs.
type RunSummary struct {
	// RunID is the identifier of the run this summary describes.
	RunID string `json:"run_id"`
	// Status is the overall run status.
	Status RunStatus `json:"status"`
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`
	// Duration is the total wall-clock time of the run.
	Duration time.Duration `json:"duration"`
	// Roles lists the terminal state of every selected role in declaration order.
	Roles []RoleStatus `json:"roles"`
	// Results holds every succeeded role's result in declaration order. It is
	// populated whether or not the report was produced, so partial results
	// survive a failed run.
	Results []AgentResult `json:"results,omitempty"`
	// Failures lists every failure recorded during the run, in order.
	Failures []FailureRecord `json:"failures,omitempty"`
	// Report is the synthesized report artifact, nil if the run failed.
	Report *ReportArtifact `json:"report,omitempty"`
}

// Succeeded returns the roles that reached the succeeded state.
func (s *RunSummary) Succeeded() []string {
	var roles []string
	for _, rs := range s.Roles {
		if rs.State == TaskStateSucceeded {
			roles = append(roles, rs.Role)
		}
	}
	return roles
}
