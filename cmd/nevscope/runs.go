package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nevscope/nevscope/internal/report"
	"github.com/nevscope/nevscope/internal/state"
	"github.com/nevscope/nevscope/pkg/models"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent analysis runs",
	Long: `List recent runs from the project-local history database, newest
first. Use 'nevscope runs show <run-id>' for a single run's details.`,
	RunE: listRuns,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run's summary",
	Args:  cobra.ExactArgs(1),
	RunE:  showRun,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to list")
	runsCmd.AddCommand(runsShowCmd)
}

// openHistoryDB opens the project database, falling back to the global one.
func openHistoryDB() (*state.DB, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	dbPath := state.ProjectDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		dbPath = state.GlobalDBPath()
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, errors.New("no run history yet; start with 'nevscope run'")
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	db, err := openHistoryDB()
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.ListRuns(runsLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	for _, rec := range records {
		marker := " "
		if rec.HasReport {
			marker = "R"
		}
		fmt.Printf("%s  %-22s %-10s %s [%s]\n",
			marker, rec.ID, statusColor(rec.Status).Sprint(rec.Status),
			rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
			rec.Duration.Round(time.Millisecond))
	}
	return nil
}

func showRun(cmd *cobra.Command, args []string) error {
	db, err := openHistoryDB()
	if err != nil {
		return err
	}
	defer db.Close()

	summary, err := db.GetRun(args[0])
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("run %s not found", args[0])
		}
		return fmt.Errorf("load run: %w", err)
	}

	fmt.Print(report.Summary(summary))
	return nil
}

func statusColor(status models.RunStatus) *color.Color {
	switch status {
	case models.RunStatusCompleted:
		return color.New(color.FgGreen)
	case models.RunStatusCompletedWithErrors:
		return color.New(color.FgYellow)
	case models.RunStatusFailed:
		return color.New(color.FgRed)
	default:
		return color.New(color.Reset)
	}
}
