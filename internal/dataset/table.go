// Package dataset loads the CSV inputs behind each analysis role and turns
// them into the textual summaries that go into prompts.
package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Table is a loaded CSV file.
type Table struct {
	// Name is the file name the table was loaded from.
	Name string
	// Columns holds the header row.
	Columns []string
	// Rows holds the data rows, each the same length as Columns.
	Rows [][]string
}

// ReadCSV loads a CSV file into a Table. The first row is the header.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}

	return &Table{
		Name:    baseName(path),
		Columns: records[0],
		Rows:    records[1:],
	}, nil
}

func baseName(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// ColumnIndex returns the index of the named column, or -1 if absent.
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// NumericStats summarizes a numeric column.
type NumericStats struct {
	// Count is the number of parseable numeric values.
	Count int
	// Mean is the arithmetic mean.
	Mean float64
	// Std is the sample standard deviation.
	Std float64
	// Min is the smallest value.
	Min float64
	// Max is the largest value.
	Max float64
}

// Numeric returns the parseable values of a column. Returns nil when fewer
// than half the non-empty cells parse as numbers.
func (t *Table) Numeric(col string) []float64 {
	idx := t.ColumnIndex(col)
	if idx < 0 {
		return nil
	}

	var values []float64
	nonEmpty := 0
	for _, row := range t.Rows {
		if idx >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[idx])
		if cell == "" {
			continue
		}
		nonEmpty++
		v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	if nonEmpty == 0 || len(values)*2 < nonEmpty {
		return nil
	}
	return values
}

// Stats computes numeric statistics for a column, or nil if the column is
// not numeric.
func (t *Table) Stats(col string) *NumericStats {
	values := t.Numeric(col)
	if len(values) == 0 {
		return nil
	}

	stats := &NumericStats{
		Count: len(values),
		Min:   values[0],
		Max:   values[0],
	}
	sum := 0.0
	for _, v := range values {
		sum += v
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
	}
	stats.Mean = sum / float64(len(values))

	if len(values) > 1 {
		variance := 0.0
		for _, v := range values {
			d := v - stats.Mean
			variance += d * d
		}
		stats.Std = math.Sqrt(variance / float64(len(values)-1))
	}
	return stats
}

// Head renders the first n rows as aligned text for prompt previews.
func (t *Table) Head(n int) string {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}

	widths := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		widths[i] = len(col)
	}
	for _, row := range t.Rows[:n] {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			if i < len(widths) {
				fmt.Fprintf(&b, "%-*s", widths[i], cell)
			} else {
				b.WriteString(cell)
			}
		}
		b.WriteByte('\n')
	}
	writeRow(t.Columns)
	for _, row := range t.Rows[:n] {
		writeRow(row)
	}
	return b.String()
}
