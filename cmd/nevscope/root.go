package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nevscope",
	Short: "New-energy-vehicle industry analysis engine",
	Long: `Nevscope runs a team of LLM analysis agents over new-energy-vehicle
industry datasets and synthesizes their findings into a single report.

Each agent covers one angle (macroeconomy, finance, market, policy,
forecast). Agents run concurrently where their dependency graph allows,
transient backend failures are retried with backoff, and a missing
mandatory prerequisite skips the dependent agent instead of failing the
whole run.

Core capabilities:
- Schedules agents along an explicit dependency graph
- Summarizes CSV datasets into model prompts
- Retries transient inference failures with exponential backoff
- Degrades gracefully when individual agents fail
- Persists run history to SQLite and writes per-run artifacts`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(rolesCmd)
	rootCmd.AddCommand(datasetsCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
