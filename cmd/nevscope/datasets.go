package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nevscope/nevscope/internal/config"
	"github.com/nevscope/nevscope/internal/dataset"
)

var datasetsDataDir string

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List the available CSV datasets",
	Long: `List the CSV files in the data directory with their dimensions.
Files that cannot be parsed are reported but do not abort the listing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if datasetsDataDir != "" {
			cfg.Data.Dir = datasetsDataDir
		}

		library := dataset.NewLibrary(cfg.Data.Dir, mappingPath(cfg))
		names := library.List()
		if len(names) == 0 {
			fmt.Printf("No CSV datasets found in %s\n", cfg.Data.Dir)
			return nil
		}

		bold := color.New(color.Bold)
		for _, name := range names {
			t, err := library.Load(name)
			if err != nil {
				printStatus("✗", fmt.Sprintf("%s: %v", name, err), color.FgRed)
				continue
			}
			bold.Println(name)
			fmt.Printf("  %d row(s), %d column(s)\n", len(t.Rows), len(t.Columns))
		}
		return nil
	},
}

func init() {
	datasetsCmd.Flags().StringVar(&datasetsDataDir, "data-dir", "", "Directory holding the CSV datasets")
}
