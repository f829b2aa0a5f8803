package state

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nevscope/nevscope/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	return db
}

func sampleSummary() *models.RunSummary {
	started := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	return &models.RunSummary{
		RunID:     "20260829-120000-abcd1234",
		Status:    models.RunStatusCompletedWithErrors,
		StartedAt: started,
		Duration:  42 * time.Second,
		Roles: []models.RoleStatus{
			{Role: "macro", State: models.TaskStateSucceeded, Attempts: 1},
			{Role: "finance", State: models.TaskStateFailed, Attempts: 3, Error: "backend overloaded"},
			{Role: "forecast", State: models.TaskStateSkipped},
		},
		Failures: []models.FailureRecord{
			{Role: "finance", Attempt: 3, Class: models.ErrClassTransient, Message: "backend overloaded", Timestamp: started.Add(10 * time.Second)},
			{Role: "forecast", Class: models.ErrClassDependencyUnmet, Message: "prerequisite finance did not succeed", Timestamp: started.Add(11 * time.Second)},
		},
		Results: []models.AgentResult{
			{
				Role:      "macro",
				Content:   map[string]any{"macro_summary": "steady growth"},
				Timestamp: started.Add(5 * time.Second),
				Usage:     models.Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
				Latency:   2 * time.Second,
			},
		},
		Report: &models.ReportArtifact{
			Content: "# Report\n\nBody.",
			BuiltFrom: []models.AgentResult{
				{
					Role:      "macro",
					Content:   map[string]any{"macro_summary": "steady growth"},
					Timestamp: started.Add(5 * time.Second),
					Usage:     models.Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
					Latency:   2 * time.Second,
				},
			},
			Omitted: []string{"finance", "forecast"},
		},
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate() error: %v", err)
	}
}

func TestSaveAndGetRun(t *testing.T) {
	db := openTestDB(t)
	want := sampleSummary()
	if err := db.SaveRun(want); err != nil {
		t.Fatalf("SaveRun() error: %v", err)
	}

	got, err := db.GetRun(want.RunID)
	if err != nil {
		t.Fatalf("GetRun() error: %v", err)
	}
	if got.Status != want.Status {
		t.Errorf("status = %s, want %s", got.Status, want.Status)
	}
	if !got.StartedAt.Equal(want.StartedAt) {
		t.Errorf("started at = %s, want %s", got.StartedAt, want.StartedAt)
	}
	if got.Duration != want.Duration {
		t.Errorf("duration = %s, want %s", got.Duration, want.Duration)
	}
	if len(got.Roles) != 3 {
		t.Fatalf("roles = %d, want 3", len(got.Roles))
	}
	if got.Roles[1].Role != "finance" || got.Roles[1].State != models.TaskStateFailed || got.Roles[1].Attempts != 3 {
		t.Errorf("finance role = %+v", got.Roles[1])
	}
	if len(got.Failures) != 2 {
		t.Fatalf("failures = %d, want 2", len(got.Failures))
	}
	if got.Failures[1].Class != models.ErrClassDependencyUnmet {
		t.Errorf("failure class = %s", got.Failures[1].Class)
	}
	if got.Report == nil || got.Report.Content != want.Report.Content {
		t.Errorf("report = %+v", got.Report)
	}
	if len(got.Report.BuiltFrom) != 1 {
		t.Fatalf("built from = %d, want 1", len(got.Report.BuiltFrom))
	}
	if got.Report.BuiltFrom[0].Content["macro_summary"] != "steady growth" {
		t.Errorf("macro content = %v", got.Report.BuiltFrom[0].Content)
	}
	if got.Report.BuiltFrom[0].Usage.TotalTokens != 150 {
		t.Errorf("usage = %+v", got.Report.BuiltFrom[0].Usage)
	}
	if len(got.Results) != 1 || got.Results[0].Role != "macro" {
		t.Errorf("results = %+v, want macro result", got.Results)
	}
}

func TestSaveAndGetRunWithoutReport(t *testing.T) {
	db := openTestDB(t)

	// A failed run keeps its succeeded results even though no report exists.
	want := sampleSummary()
	want.Status = models.RunStatusFailed
	want.Report = nil
	if err := db.SaveRun(want); err != nil {
		t.Fatalf("SaveRun() error: %v", err)
	}

	got, err := db.GetRun(want.RunID)
	if err != nil {
		t.Fatalf("GetRun() error: %v", err)
	}
	if got.Report != nil {
		t.Errorf("report = %+v, want nil", got.Report)
	}
	if len(got.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(got.Results))
	}
	if got.Results[0].Content["macro_summary"] != "steady growth" {
		t.Errorf("macro content = %v", got.Results[0].Content)
	}
	if got.Results[0].Usage.TotalTokens != 150 {
		t.Errorf("usage = %+v", got.Results[0].Usage)
	}
}

func TestSaveRunRejectsDuplicateID(t *testing.T) {
	db := openTestDB(t)
	summary := sampleSummary()
	if err := db.SaveRun(summary); err != nil {
		t.Fatalf("SaveRun() error: %v", err)
	}
	if err := db.SaveRun(summary); err == nil {
		t.Fatal("expected error saving a run twice")
	}
}

func TestGetRunUnknown(t *testing.T) {
	db := openTestDB(t)
	_, err := db.GetRun("nope")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	db := openTestDB(t)

	first := sampleSummary()
	first.RunID = "20260828-090000-aaaa1111"
	first.StartedAt = time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	second := sampleSummary()

	if err := db.SaveRun(first); err != nil {
		t.Fatalf("SaveRun(first) error: %v", err)
	}
	if err := db.SaveRun(second); err != nil {
		t.Fatalf("SaveRun(second) error: %v", err)
	}

	records, err := db.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns() error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].ID != second.RunID {
		t.Errorf("records[0] = %s, want newest run first", records[0].ID)
	}
	if !records[0].HasReport {
		t.Error("expected HasReport for run with report")
	}
}
