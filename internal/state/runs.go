package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nevscope/nevscope/pkg/models"
)

// SaveRun persists a finished run: its status, per-role outcomes, failures,
// and the report text when one was produced.
func (db *DB) SaveRun(summary *models.RunSummary) error {
	return db.Transaction(func(tx *sql.Tx) error {
		var report any
		if summary.Report != nil {
			report = summary.Report.Content
		}
		_, err := tx.Exec(
			"INSERT INTO runs (id, status, started_at, duration_ms, report) VALUES (?, ?, ?, ?, ?)",
			summary.RunID, string(summary.Status), formatTime(summary.StartedAt),
			summary.Duration.Milliseconds(), report,
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		results := make(map[string]*models.AgentResult)
		for i := range summary.Results {
			r := &summary.Results[i]
			results[r.Role] = r
		}

		for _, rs := range summary.Roles {
			var content any
			var promptTokens, completionTokens, latencyMs int64
			createdAt := summary.StartedAt
			if r := results[rs.Role]; r != nil {
				data, err := json.Marshal(r.Content)
				if err != nil {
					return fmt.Errorf("marshal result for %s: %w", rs.Role, err)
				}
				content = string(data)
				promptTokens = r.Usage.PromptTokens
				completionTokens = r.Usage.CompletionTokens
				latencyMs = r.Latency.Milliseconds()
				createdAt = r.Timestamp
			}
			_, err := tx.Exec(
				`INSERT INTO results (run_id, role, state, attempts, content, prompt_tokens, completion_tokens, latency_ms, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				summary.RunID, rs.Role, string(rs.State), rs.Attempts, content,
				promptTokens, completionTokens, latencyMs, formatTime(createdAt),
			)
			if err != nil {
				return fmt.Errorf("insert result for %s: %w", rs.Role, err)
			}
		}

		for _, f := range summary.Failures {
			_, err := tx.Exec(
				"INSERT INTO failures (run_id, role, attempt, class, message, created_at) VALUES (?, ?, ?, ?, ?, ?)",
				summary.RunID, f.Role, f.Attempt, string(f.Class), f.Message, formatTime(f.Timestamp),
			)
			if err != nil {
				return fmt.Errorf("insert failure for %s: %w", f.Role, err)
			}
		}
		return nil
	})
}

// RunRecord is one row of run history.
type RunRecord struct {
	// ID is the run identifier.
	ID string
	// Status is the final run status.
	Status models.RunStatus
	// StartedAt is when the run began.
	StartedAt time.Time
	// Duration is the total run time.
	Duration time.Duration
	// HasReport indicates whether a report was produced.
	HasReport bool
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]RunRecord, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(
		"SELECT id, status, started_at, duration_ms, report IS NOT NULL FROM runs ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var status, startedAt string
		var durationMs int64
		if err := rows.Scan(&rec.ID, &status, &startedAt, &durationMs, &rec.HasReport); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.Status = models.RunStatus(status)
		if rec.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, fmt.Errorf("parse run time: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetRun loads a persisted run with its role outcomes and failures. Returns
// sql.ErrNoRows if the run is unknown.
func (db *DB) GetRun(runID string) (*models.RunSummary, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	summary := &models.RunSummary{RunID: runID}
	var status, startedAt string
	var durationMs int64
	var report sql.NullString
	err := db.conn.QueryRow(
		"SELECT status, started_at, duration_ms, report FROM runs WHERE id = ?", runID,
	).Scan(&status, &startedAt, &durationMs, &report)
	if err != nil {
		return nil, err
	}
	summary.Status = models.RunStatus(status)
	if summary.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse run time: %w", err)
	}
	summary.Duration = time.Duration(durationMs) * time.Millisecond
	if report.Valid {
		summary.Report = &models.ReportArtifact{Content: report.String}
	}

	rows, err := db.conn.Query(
		"SELECT role, state, attempts, content, prompt_tokens, completion_tokens, latency_ms, created_at FROM results WHERE run_id = ? ORDER BY rowid",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var role, state, createdAt string
		var attempts int
		var content sql.NullString
		var promptTokens, completionTokens, latencyMs int64
		if err := rows.Scan(&role, &state, &attempts, &content, &promptTokens, &completionTokens, &latencyMs, &createdAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		summary.Roles = append(summary.Roles, models.RoleStatus{
			Role:     role,
			State:    models.TaskState(state),
			Attempts: attempts,
		})
		if content.Valid {
			result := models.AgentResult{
				Role: role,
				Usage: models.Usage{
					PromptTokens:     promptTokens,
					CompletionTokens: completionTokens,
					TotalTokens:      promptTokens + completionTokens,
				},
				Latency: time.Duration(latencyMs) * time.Millisecond,
			}
			if ts, err := parseTime(createdAt); err == nil {
				result.Timestamp = ts
			}
			if err := json.Unmarshal([]byte(content.String), &result.Content); err == nil {
				summary.Results = append(summary.Results, result)
				if summary.Report != nil {
					summary.Report.BuiltFrom = append(summary.Report.BuiltFrom, result)
				}
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	failureRows, err := db.conn.Query(
		"SELECT role, attempt, class, message, created_at FROM failures WHERE run_id = ? ORDER BY rowid",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer failureRows.Close()

	for failureRows.Next() {
		var f models.FailureRecord
		var class, createdAt string
		if err := failureRows.Scan(&f.Role, &f.Attempt, &class, &f.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		f.Class = models.ErrorClass(class)
		if ts, err := parseTime(createdAt); err == nil {
			f.Timestamp = ts
		}
		summary.Failures = append(summary.Failures, f)
	}
	return summary, failureRows.Err()
}
