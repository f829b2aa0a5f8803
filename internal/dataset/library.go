package dataset

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// mappingEntry is one record in the data map file.
type mappingEntry struct {
	// ActualFile is the CSV file the logical name resolves to.
	ActualFile string `yaml:"actual_file"`
	// Description documents what the dataset contains.
	Description string `yaml:"description"`
}

// Library resolves logical dataset names to CSV files, loads them, and
// builds prompt summaries. Loaded tables are cached. Safe for concurrent use.
type Library struct {
	root    string
	mapping map[string]mappingEntry

	mu    sync.Mutex
	cache map[string]*Table
}

// NewLibrary creates a library over the given data directory. mappingPath
// names a YAML file of logical-name entries; a missing or unreadable map is
// tolerated and name resolution falls back to file matching.
func NewLibrary(root, mappingPath string) *Library {
	lib := &Library{
		root:    root,
		mapping: make(map[string]mappingEntry),
		cache:   make(map[string]*Table),
	}

	if mappingPath != "" {
		data, err := os.ReadFile(mappingPath)
		if err != nil {
			log.Printf("[dataset] data map %s unavailable: %v", mappingPath, err)
			return lib
		}
		if err := yaml.Unmarshal(data, &lib.mapping); err != nil {
			log.Printf("[dataset] data map %s malformed: %v", mappingPath, err)
			lib.mapping = make(map[string]mappingEntry)
		}
	}
	return lib
}

// Resolve maps a logical dataset name to a file name. Resolution order:
// the data map, an existing file of the same name, then a case-insensitive
// substring match over the CSV files in the data directory.
func (l *Library) Resolve(logical string) string {
	if entry, ok := l.mapping[logical]; ok && entry.ActualFile != "" {
		return entry.ActualFile
	}

	if _, err := os.Stat(filepath.Join(l.root, logical)); err == nil {
		return logical
	}

	matches, _ := filepath.Glob(filepath.Join(l.root, "*.csv"))
	needle := strings.ToLower(logical)
	for _, match := range matches {
		name := filepath.Base(match)
		if strings.Contains(strings.ToLower(name), needle) {
			return name
		}
	}
	return logical
}

// Load returns the table for a logical dataset name, reading and caching it
// on first use.
func (l *Library) Load(logical string) (*Table, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if table, ok := l.cache[logical]; ok {
		return table, nil
	}

	file := l.Resolve(logical)
	table, err := ReadCSV(filepath.Join(l.root, file))
	if err != nil {
		return nil, fmt.Errorf("loading dataset %s: %w", logical, err)
	}
	l.cache[logical] = table
	return table, nil
}

// maxSummaryStats caps how many numeric columns a summary describes.
const maxSummaryStats = 8

// Summary builds the textual overview of a dataset used in prompts: file
// name, shape, columns, a short preview, and numeric column statistics.
func (l *Library) Summary(logical string) (string, error) {
	table, err := l.Load(logical)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", table.Name)
	fmt.Fprintf(&b, "Rows: %d\n", len(table.Rows))
	fmt.Fprintf(&b, "Columns (%d): %s\n", len(table.Columns), strings.Join(table.Columns, ", "))

	b.WriteString("\nPreview:\n")
	b.WriteString(table.Head(5))

	statLines := 0
	for _, col := range table.Columns {
		if statLines >= maxSummaryStats {
			break
		}
		stats := table.Stats(col)
		if stats == nil {
			continue
		}
		if statLines == 0 {
			b.WriteString("\nStatistics:\n")
		}
		fmt.Fprintf(&b, "%s: count=%d mean=%.2f std=%.2f min=%.2f max=%.2f\n",
			col, stats.Count, stats.Mean, stats.Std, stats.Min, stats.Max)
		statLines++
	}

	return b.String(), nil
}

// Summaries builds summaries for several logical names at once. Any failure
// aborts with the offending dataset named.
func (l *Library) Summaries(logicals []string) (map[string]string, error) {
	out := make(map[string]string, len(logicals))
	for _, name := range logicals {
		summary, err := l.Summary(name)
		if err != nil {
			return nil, err
		}
		out[name] = summary
	}
	return out, nil
}

// List returns the CSV files present in the data directory.
func (l *Library) List() []string {
	matches, _ := filepath.Glob(filepath.Join(l.root, "*.csv"))
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		names = append(names, filepath.Base(match))
	}
	return names
}
