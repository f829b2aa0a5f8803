package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

const productionCSV = `month,sales,output
2024-01,120,130
2024-02,150,140
2024-03,180,175
`

func TestReadCSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "production_data.csv", productionCSV)

	table, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV() error: %v", err)
	}
	if len(table.Columns) != 3 {
		t.Errorf("columns = %v, want 3", table.Columns)
	}
	if len(table.Rows) != 3 {
		t.Errorf("rows = %d, want 3", len(table.Rows))
	}
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "production_data.csv", productionCSV)
	table, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV() error: %v", err)
	}

	stats := table.Stats("sales")
	if stats == nil {
		t.Fatal("expected numeric stats for sales")
	}
	if stats.Count != 3 {
		t.Errorf("count = %d, want 3", stats.Count)
	}
	if stats.Mean != 150 {
		t.Errorf("mean = %f, want 150", stats.Mean)
	}
	if stats.Min != 120 || stats.Max != 180 {
		t.Errorf("min/max = %f/%f, want 120/180", stats.Min, stats.Max)
	}

	if table.Stats("month") != nil {
		t.Error("expected no stats for non-numeric column")
	}
}

func TestResolvePrefersMapping(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nev_production_2024.csv", productionCSV)
	mapPath := writeFile(t, dir, "data_map.yaml",
		"production:\n  actual_file: nev_production_2024.csv\n  description: monthly production and sales\n")

	lib := NewLibrary(dir, mapPath)
	if got := lib.Resolve("production"); got != "nev_production_2024.csv" {
		t.Errorf("Resolve(production) = %s", got)
	}
}

func TestResolveFallsBackToSubstringMatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Monthly_Production_Data.csv", productionCSV)

	lib := NewLibrary(dir, "")
	if got := lib.Resolve("production"); got != "Monthly_Production_Data.csv" {
		t.Errorf("Resolve(production) = %s", got)
	}
}

func TestResolveExactFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "gdp.csv", "year,gdp\n2023,126\n")

	lib := NewLibrary(dir, "")
	if got := lib.Resolve("gdp.csv"); got != "gdp.csv" {
		t.Errorf("Resolve(gdp.csv) = %s", got)
	}
}

func TestSummaryContents(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "production.csv", productionCSV)

	lib := NewLibrary(dir, "")
	summary, err := lib.Summary("production")
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	for _, want := range []string{"Rows: 3", "month, sales, output", "2024-01", "mean=150.00"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestSummaryMissingDataset(t *testing.T) {
	lib := NewLibrary(t.TempDir(), "")
	if _, err := lib.Summary("nonexistent"); err == nil {
		t.Fatal("expected error for missing dataset")
	}
}

func TestLoadCaches(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "gdp.csv", "year,gdp\n2023,126\n")

	lib := NewLibrary(dir, "")
	first, err := lib.Load("gdp.csv")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Remove the backing file; the cached table must still be served.
	if err := os.Remove(path); err != nil {
		t.Fatalf("removing file: %v", err)
	}
	second, err := lib.Load("gdp.csv")
	if err != nil {
		t.Fatalf("Load() after removal error: %v", err)
	}
	if first != second {
		t.Error("expected cached table to be reused")
	}
}

func TestTrendSeries(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "production.csv", productionCSV)
	table, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV() error: %v", err)
	}

	series, err := TrendSeries(table, "month", []string{"sales", "output"})
	if err != nil {
		t.Fatalf("TrendSeries() error: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(series))
	}
	if series[0].Name != "sales" || len(series[0].Values) != 3 {
		t.Errorf("sales series = %+v", series[0])
	}
	if series[0].Labels[0] != "2024-01" {
		t.Errorf("label = %s, want 2024-01", series[0].Labels[0])
	}
}

func TestTrendSeriesUnknownColumn(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "production.csv", productionCSV)
	table, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV() error: %v", err)
	}
	if _, err := TrendSeries(table, "month", []string{"revenue"}); err == nil {
		t.Fatal("expected error for unknown column")
	}
}

func TestDistributionSeries(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "production.csv", productionCSV)
	table, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV() error: %v", err)
	}

	series, err := DistributionSeries(table, "sales", 3)
	if err != nil {
		t.Fatalf("DistributionSeries() error: %v", err)
	}
	total := 0.0
	for _, v := range series.Values {
		total += v
	}
	if total != 3 {
		t.Errorf("bucket counts sum to %f, want 3", total)
	}
}
