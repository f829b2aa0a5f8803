package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nevscope/nevscope/internal/config"
	"github.com/nevscope/nevscope/internal/dataset"
	"github.com/nevscope/nevscope/internal/inference"
	"github.com/nevscope/nevscope/internal/orchestrator"
	"github.com/nevscope/nevscope/internal/roles"
	"github.com/nevscope/nevscope/internal/sink"
	"github.com/nevscope/nevscope/internal/state"
	"github.com/nevscope/nevscope/pkg/models"
)

var (
	runRoles         []string
	runRolesFile     string
	runProvider      string
	runModel         string
	runBaseURL       string
	runMaxConcurrent int
	runMaxRetries    int
	runTaskTimeout   time.Duration
	runTemperature   float64
	runMaxTokens     int
	runDataDir       string
	runOutputDir     string
	runNoCharts      bool
	runDebugLog      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an analysis and synthesize a report",
	Long: `Run the analysis agents and synthesize their results into a report.

By default every registered role runs: macro, finance, market, policy,
and forecast. Use --roles to focus the run on a subset; mandatory
prerequisites of the selected roles are pulled in automatically.

Agents run concurrently up to --max-concurrent, ordered by how many
pending dependents each unblocks. Transient backend failures (rate
limits, timeouts, 5xx) are retried with exponential backoff; permanent
failures are not. When a mandatory prerequisite fails, its dependents
are skipped and the report notes the gap instead of inventing content.

Artifacts are written under <output-dir>/<run-id>/: one JSON file per
agent, report.md, analysis_summary.md, run.json, and chart series under
charts/ unless --no-charts is set. Run history is stored in the
project-local SQLite database (.nevscope/state.db).`,
	RunE: runAnalysis,
}

func init() {
	runCmd.Flags().StringSliceVar(&runRoles, "roles", nil, "Roles to run (default: all registered roles)")
	runCmd.Flags().StringVar(&runRolesFile, "roles-file", "", "YAML file with additional role definitions")
	runCmd.Flags().StringVar(&runProvider, "provider", "", "Inference provider: siliconflow, openai, or anthropic")
	runCmd.Flags().StringVar(&runModel, "model", "", "Model identifier (overrides config)")
	runCmd.Flags().StringVar(&runBaseURL, "base-url", "", "Backend base URL for OpenAI-compatible providers")
	runCmd.Flags().IntVar(&runMaxConcurrent, "max-concurrent", 0, "Maximum tasks running at once")
	runCmd.Flags().IntVar(&runMaxRetries, "max-retries", -1, "Retries per task after a transient failure")
	runCmd.Flags().DurationVar(&runTaskTimeout, "task-timeout", 0, "Per-attempt timeout (0 disables)")
	runCmd.Flags().Float64Var(&runTemperature, "temperature", 0, "Sampling temperature (0 uses the provider default)")
	runCmd.Flags().IntVar(&runMaxTokens, "max-tokens", 0, "Response token limit (0 uses the config default)")
	runCmd.Flags().StringVar(&runDataDir, "data-dir", "", "Directory holding the CSV datasets")
	runCmd.Flags().StringVar(&runOutputDir, "output-dir", "", "Root directory for run artifacts")
	runCmd.Flags().BoolVar(&runNoCharts, "no-charts", false, "Skip chart series export")
	runCmd.Flags().BoolVar(&runDebugLog, "debug-log", false, "Write a debug log under .nevscope/logs/")
}

func runAnalysis(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyRunFlags(cmd, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt, shutting down...")
		cancel()
	}()

	table := roles.Builtin()
	if runRolesFile != "" {
		if err := roles.LoadFile(table, runRolesFile); err != nil {
			return fmt.Errorf("load roles file: %w", err)
		}
	}

	library := dataset.NewLibrary(cfg.Data.Dir, mappingPath(cfg))

	client, err := createClient(ctx, cfg)
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	logger := orchestrator.NopLogger()
	if runDebugLog {
		logger = orchestrator.NewDebugLoggerForDir(cwd)
	}
	defer logger.Close()

	emitter := orchestrator.NewEventEmitter(64)
	printerDone := make(chan struct{})
	go printEvents(emitter.Events(), printerDone)

	orch := orchestrator.New(table, library, client, orchestrator.Options{
		Roles:         runRoles,
		MaxConcurrent: cfg.Run.MaxConcurrent,
		MaxRetries:    cfg.Run.MaxRetries,
		TaskTimeout:   cfg.Run.TaskTimeout,
		BaseDelay:     cfg.Run.BaseDelay,
		MaxDelay:      cfg.Run.MaxDelay,
		Model:         cfg.Inference.Model,
		Temperature:   cfg.Inference.Temperature,
		MaxTokens:     cfg.Inference.MaxTokens,
	}, emitter, logger)

	summary, runErr := orch.RunAnalysis(ctx)
	emitter.Close()
	<-printerDone

	if err := writeArtifacts(cfg, library, table, summary); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if err := saveRun(cwd, summary); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: saving run history: %v\n", err)
	}

	printRunResult(client, summary)
	return runErr
}

// applyRunFlags overlays explicitly set flags on the loaded configuration.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	if runProvider != "" {
		cfg.Inference.Provider = runProvider
	}
	if runModel != "" {
		cfg.Inference.Model = runModel
	}
	if runBaseURL != "" {
		cfg.Inference.BaseURL = runBaseURL
	}
	if runMaxConcurrent > 0 {
		cfg.Run.MaxConcurrent = runMaxConcurrent
	}
	if runMaxRetries >= 0 {
		cfg.Run.MaxRetries = runMaxRetries
	}
	if cmd.Flags().Changed("task-timeout") {
		cfg.Run.TaskTimeout = runTaskTimeout
	}
	if cmd.Flags().Changed("temperature") {
		cfg.Inference.Temperature = runTemperature
	}
	if runMaxTokens > 0 {
		cfg.Inference.MaxTokens = runMaxTokens
	}
	if runDataDir != "" {
		cfg.Data.Dir = runDataDir
	}
	if runOutputDir != "" {
		cfg.Output.Dir = runOutputDir
	}
	if runNoCharts {
		cfg.Output.Charts = false
	}
}

// mappingPath resolves the dataset mapping file relative to the data
// directory unless it is absolute.
func mappingPath(cfg *config.Config) string {
	if cfg.Data.Mapping == "" {
		return ""
	}
	if filepath.IsAbs(cfg.Data.Mapping) {
		return cfg.Data.Mapping
	}
	return filepath.Join(cfg.Data.Dir, cfg.Data.Mapping)
}

// printEvents renders run progress to stdout until the event channel closes.
func printEvents(events <-chan orchestrator.Event, done chan<- struct{}) {
	defer close(done)
	for ev := range events {
		switch ev.Type {
		case orchestrator.EventRunStarted:
			fmt.Printf("Run %s started\n", ev.Message)
		case orchestrator.EventTaskStarted:
			printStatus("▸", fmt.Sprintf("%s started", ev.Role), color.FgCyan)
		case orchestrator.EventTaskRetrying:
			printStatus("⟳", fmt.Sprintf("%s retrying (attempt %d): %v", ev.Role, ev.Attempt, ev.Error), color.FgYellow)
		case orchestrator.EventTaskCompleted:
			printStatus("✓", fmt.Sprintf("%s completed", ev.Role), color.FgGreen)
		case orchestrator.EventTaskFailed:
			printStatus("✗", fmt.Sprintf("%s failed: %v", ev.Role, ev.Error), color.FgRed)
		case orchestrator.EventTaskSkipped:
			printStatus("⚠", fmt.Sprintf("%s skipped: %s", ev.Role, ev.Message), color.FgYellow)
		case orchestrator.EventAggregationStarted:
			printStatus("▸", "synthesizing report", color.FgCyan)
		case orchestrator.EventAggregationCompleted:
			printStatus("✓", "report ready", color.FgGreen)
		}
	}
}

func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}

// writeArtifacts writes the run's output files and chart series.
func writeArtifacts(cfg *config.Config, library *dataset.Library, table *roles.Table, summary *models.RunSummary) error {
	out, err := sink.New(cfg.Output.Dir, summary.RunID)
	if err != nil {
		return err
	}
	if err := out.WriteRun(summary); err != nil {
		return err
	}
	if cfg.Output.Charts {
		writeCharts(out, library, table, summary)
	}
	fmt.Printf("Artifacts written to %s\n", out.Dir())
	return nil
}

// writeCharts exports trend series for every dataset used by a succeeded
// role. Datasets that cannot be charted are skipped silently.
func writeCharts(out *sink.FileSink, library *dataset.Library, table *roles.Table, summary *models.RunSummary) {
	succeeded := make(map[string]bool)
	for _, role := range summary.Succeeded() {
		succeeded[role] = true
	}

	seen := make(map[string]bool)
	for _, spec := range table.Specs() {
		if !succeeded[spec.Name] {
			continue
		}
		for _, logical := range spec.Datasets {
			if seen[logical] {
				continue
			}
			seen[logical] = true

			t, err := library.Load(logical)
			if err != nil || len(t.Columns) < 2 {
				continue
			}
			var valueCols []string
			for _, col := range t.Columns[1:] {
				if t.Stats(col) != nil {
					valueCols = append(valueCols, col)
				}
			}
			if len(valueCols) == 0 {
				continue
			}
			series, err := dataset.TrendSeries(t, t.Columns[0], valueCols)
			if err != nil {
				continue
			}
			if err := out.WriteSeries(logical, series); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: writing %s chart: %v\n", logical, err)
			}
		}
	}
}

// saveRun records the run in the project-local history database.
func saveRun(projectRoot string, summary *models.RunSummary) error {
	db, err := state.OpenProject(projectRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}
	return db.SaveRun(summary)
}

// printRunResult prints the final run status and token usage.
func printRunResult(client inference.Client, summary *models.RunSummary) {
	var c *color.Color
	switch summary.Status {
	case models.RunStatusCompleted:
		c = color.New(color.FgGreen)
	case models.RunStatusCompletedWithErrors:
		c = color.New(color.FgYellow)
	default:
		c = color.New(color.FgRed)
	}
	fmt.Printf("\nRun %s: %s in %s (%d/%d roles succeeded)\n",
		summary.RunID, c.Sprint(summary.Status), summary.Duration.Round(time.Millisecond),
		len(summary.Succeeded()), len(summary.Roles))

	if tracked, ok := client.(interface{ Tracker() *inference.TokenTracker }); ok {
		total := tracked.Tracker().Total()
		if total.TotalTokens > 0 {
			fmt.Printf("Tokens: %d prompt, %d completion, %d total over %d call(s)\n",
				total.PromptTokens, total.CompletionTokens, total.TotalTokens, tracked.Tracker().Calls())
		}
	}
}
