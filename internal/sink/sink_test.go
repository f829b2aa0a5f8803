package sink

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nevscope/nevscope/internal/dataset"
	"github.com/nevscope/nevscope/pkg/models"
)

func TestWriteRunArtifacts(t *testing.T) {
	root := t.TempDir()
	sink, err := New(root, "20260829-120000-abcd1234")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	summary := &models.RunSummary{
		RunID:     "20260829-120000-abcd1234",
		Status:    models.RunStatusCompleted,
		StartedAt: time.Now(),
		Roles: []models.RoleStatus{
			{Role: "macro", State: models.TaskStateSucceeded, Attempts: 1},
		},
		Results: []models.AgentResult{
			{Role: "macro", Content: map[string]any{"macro_summary": "steady"}},
		},
		Report: &models.ReportArtifact{
			Content: "# NEV Report\n\nBody.",
			BuiltFrom: []models.AgentResult{
				{Role: "macro", Content: map[string]any{"macro_summary": "steady"}},
			},
		},
	}

	if err := sink.WriteRun(summary); err != nil {
		t.Fatalf("WriteRun() error: %v", err)
	}

	reportData, err := os.ReadFile(filepath.Join(sink.Dir(), "report.md"))
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if !strings.Contains(string(reportData), "# NEV Report") {
		t.Errorf("report content = %q", reportData)
	}

	var macro map[string]any
	macroData, err := os.ReadFile(filepath.Join(sink.Dir(), "macro.json"))
	if err != nil {
		t.Fatalf("reading macro result: %v", err)
	}
	if err := json.Unmarshal(macroData, &macro); err != nil {
		t.Fatalf("parsing macro result: %v", err)
	}
	if macro["macro_summary"] != "steady" {
		t.Errorf("macro result = %v", macro)
	}

	summaryData, err := os.ReadFile(filepath.Join(sink.Dir(), "analysis_summary.md"))
	if err != nil {
		t.Fatalf("reading analysis summary: %v", err)
	}
	if !strings.Contains(string(summaryData), "Macroeconomic Environment") {
		t.Errorf("analysis summary = %q", summaryData)
	}

	if _, err := os.Stat(filepath.Join(sink.Dir(), "run.json")); err != nil {
		t.Errorf("run.json not written: %v", err)
	}
}

func TestWriteRunFailedRunKeepsResults(t *testing.T) {
	sink, err := New(t.TempDir(), "run-failed")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// A failed run has no report, but succeeded roles still carry results.
	summary := &models.RunSummary{
		RunID:     "run-failed",
		Status:    models.RunStatusFailed,
		StartedAt: time.Now(),
		Roles: []models.RoleStatus{
			{Role: "macro", State: models.TaskStateSucceeded, Attempts: 1},
			{Role: "finance", State: models.TaskStateSucceeded, Attempts: 1},
		},
		Results: []models.AgentResult{
			{Role: "macro", Content: map[string]any{"macro_summary": "steady"}},
			{Role: "finance", Content: map[string]any{"finance_summary": "margins up"}},
		},
		Failures: []models.FailureRecord{
			{Role: "report", Class: models.ErrClassAggregation, Message: "synthesis did not complete"},
		},
	}

	if err := sink.WriteRun(summary); err != nil {
		t.Fatalf("WriteRun() error: %v", err)
	}

	for _, role := range []string{"macro", "finance"} {
		data, err := os.ReadFile(filepath.Join(sink.Dir(), role+".json"))
		if err != nil {
			t.Fatalf("result for %s not written: %v", role, err)
		}
		var content map[string]any
		if err := json.Unmarshal(data, &content); err != nil {
			t.Fatalf("parsing %s result: %v", role, err)
		}
		if len(content) == 0 {
			t.Errorf("%s result is empty", role)
		}
	}

	if _, err := os.Stat(filepath.Join(sink.Dir(), "report.md")); !os.IsNotExist(err) {
		t.Errorf("report.md written for a run without a report: %v", err)
	}
	if _, err := os.Stat(filepath.Join(sink.Dir(), "run.json")); err != nil {
		t.Errorf("run.json not written: %v", err)
	}
}

func TestWriteSeries(t *testing.T) {
	sink, err := New(t.TempDir(), "run1")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	series := []dataset.Series{
		{Name: "sales", Labels: []string{"2024-01", "2024-02"}, Values: []float64{120, 150}},
	}
	if err := sink.WriteSeries("production_trend", series); err != nil {
		t.Fatalf("WriteSeries() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(sink.Dir(), "charts", "production_trend.json"))
	if err != nil {
		t.Fatalf("reading series: %v", err)
	}
	var decoded []dataset.Series
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("parsing series: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Name != "sales" {
		t.Errorf("series = %+v", decoded)
	}
}
