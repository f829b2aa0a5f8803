// Package sink writes run artifacts to the output directory: one JSON file
// per role result, the Markdown report, the analysis summary, and optional
// chart series.
package sink

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/nevscope/nevscope/internal/dataset"
	"github.com/nevscope/nevscope/internal/report"
	"github.com/nevscope/nevscope/pkg/models"
)

// FileSink writes artifacts under a run-specific directory.
type FileSink struct {
	dir string
}

// New creates a sink writing into root/<runID>, creating the directory.
func New(root, runID string) (*FileSink, error) {
	dir := filepath.Join(root, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

// Dir returns the run's output directory.
func (s *FileSink) Dir() string {
	return s.dir
}

// WriteRun writes every artifact of a finished run. Per-role results come
// from the summary's result list, so they are written even when the run
// failed before a report was produced. Individual file failures abort with
// the offending path named.
func (s *FileSink) WriteRun(summary *models.RunSummary) error {
	for i := range summary.Results {
		result := &summary.Results[i]
		if err := s.writeJSON(result.Role+".json", result.Content); err != nil {
			return err
		}
	}
	if summary.Report != nil {
		if err := s.writeText("report.md", summary.Report.Content); err != nil {
			return err
		}
	}

	if err := s.writeText("analysis_summary.md", report.Summary(summary)); err != nil {
		return err
	}
	if err := s.writeJSON("run.json", summary); err != nil {
		return err
	}

	log.Printf("[sink] run artifacts written to %s", s.dir)
	return nil
}

// WriteSeries writes chart series under charts/<name>.json.
func (s *FileSink) WriteSeries(name string, series []dataset.Series) error {
	dir := filepath.Join(s.dir, "charts")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create charts directory: %w", err)
	}
	return writeJSONFile(filepath.Join(dir, name+".json"), series)
}

func (s *FileSink) writeJSON(name string, v any) error {
	return writeJSONFile(filepath.Join(s.dir, name), v)
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *FileSink) writeText(name, content string) error {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
