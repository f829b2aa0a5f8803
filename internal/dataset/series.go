package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// Series is one labeled sequence of values prepared for an external chart
// renderer.
type Series struct {
	// Name labels the series (usually a column name).
	Name string `json:"name"`
	// Labels holds the x-axis labels, one per value.
	Labels []string `json:"labels"`
	// Values holds the data points.
	Values []float64 `json:"values"`
}

// TrendSeries extracts time series from a table: one Series per value column,
// labeled by the time column. Non-numeric cells are skipped together with
// their label.
func TrendSeries(t *Table, timeCol string, valueCols []string) ([]Series, error) {
	timeIdx := t.ColumnIndex(timeCol)
	if timeIdx < 0 {
		return nil, fmt.Errorf("column %s not found in %s", timeCol, t.Name)
	}

	var out []Series
	for _, col := range valueCols {
		idx := t.ColumnIndex(col)
		if idx < 0 {
			return nil, fmt.Errorf("column %s not found in %s", col, t.Name)
		}
		series := Series{Name: col}
		for _, row := range t.Rows {
			if timeIdx >= len(row) || idx >= len(row) {
				continue
			}
			v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(row[idx]), ",", ""), 64)
			if err != nil {
				continue
			}
			series.Labels = append(series.Labels, row[timeIdx])
			series.Values = append(series.Values, v)
		}
		out = append(out, series)
	}
	return out, nil
}

// DistributionSeries buckets a numeric column into equal-width bins.
func DistributionSeries(t *Table, col string, bins int) (*Series, error) {
	values := t.Numeric(col)
	if len(values) == 0 {
		return nil, fmt.Errorf("column %s in %s is not numeric", col, t.Name)
	}
	if bins <= 0 {
		bins = 10
	}

	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	series := &Series{Name: col}
	if min == max {
		series.Labels = []string{fmt.Sprintf("%.2f", min)}
		series.Values = []float64{float64(len(values))}
		return series, nil
	}

	width := (max - min) / float64(bins)
	counts := make([]float64, bins)
	for _, v := range values {
		bucket := int((v - min) / width)
		if bucket >= bins {
			bucket = bins - 1
		}
		counts[bucket]++
	}
	for i := 0; i < bins; i++ {
		lo := min + float64(i)*width
		series.Labels = append(series.Labels, fmt.Sprintf("%.2f-%.2f", lo, lo+width))
	}
	series.Values = counts
	return series, nil
}
